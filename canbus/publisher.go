package canbus

import (
	"context"
	"fmt"

	"github.com/vignesh-tw/autoware.auto/motion"
)

// Signal names the actuation command frame must define.
const (
	SigLongAccel       = "long_accel_cmd_mps2"
	SigFrontWheelAngle = "front_wheel_angle_cmd_rad"
	SigRearWheelAngle  = "rear_wheel_angle_cmd_rad"
	SigVelocity        = "velocity_mps"
)

// CommandPublisher encodes controller commands into the actuation frame and
// transmits them.
type CommandPublisher struct {
	fd *FrameDef
	w  FrameWriter
}

// NewCommandPublisher resolves the actuation frame and verifies it carries
// all command signals.
func NewCommandPublisher(m *Map, frameName string, w FrameWriter) (*CommandPublisher, error) {
	fd, err := m.Frame(frameName)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(fd.Signals))
	for _, s := range fd.Signals {
		have[s.Name] = true
	}
	for _, want := range []string{SigLongAccel, SigFrontWheelAngle, SigRearWheelAngle, SigVelocity} {
		if !have[want] {
			return nil, fmt.Errorf("frame %s missing command signal %q", fd.Name, want)
		}
	}
	return &CommandPublisher{fd: fd, w: w}, nil
}

// Publish transmits one command.
func (p *CommandPublisher) Publish(ctx context.Context, cmd motion.Command) error {
	frame, err := p.fd.Encode(map[string]float64{
		SigLongAccel:       cmd.LongAccelMPS2,
		SigFrontWheelAngle: cmd.FrontWheelAngleRad,
		SigRearWheelAngle:  cmd.RearWheelAngleRad,
		SigVelocity:        cmd.VelocityMPS,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", p.fd.Name, err)
	}
	if err := p.w.WriteFrame(ctx, frame); err != nil {
		return fmt.Errorf("write %s: %w", p.fd.Name, err)
	}
	return nil
}

// Close releases the underlying writer.
func (p *CommandPublisher) Close() error { return p.w.Close() }
