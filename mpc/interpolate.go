package mpc

import (
	"math"
	"time"

	"github.com/vignesh-tw/autoware.auto/motion"
)

// interpolatedCommand converts the discrete post-solve control trajectory
// into one command valid at the configured lookahead past the vehicle state
// timestamp. The offset is clamped to [0, (N-1)*step]; the bracketing grid
// index is clamped to N-2 so both interpolation neighbors exist.
func (c *Controller) interpolatedCommand(stamp time.Time, x0Offset time.Duration) (motion.Command, error) {
	step := c.dims.Step
	// A negative x0 offset means the state arrived late relative to the
	// grid, so the actual "now" sits further into the horizon.
	dt := c.cfg.ControlLookahead() - x0Offset
	maxDT := time.Duration(c.dims.Horizon-1) * step
	if dt > maxDT {
		dt = maxDT
	}
	if dt < 0 {
		dt = 0
	}

	count := int(dt / step)
	if count > c.dims.Horizon-2 {
		count = c.dims.Horizon - 2
	}
	frac := float64(dt-time.Duration(count)*step) / float64(step)

	accel0, wheel0 := c.prob.controlAt(count)
	accel1, wheel1 := c.prob.controlAt(count + 1)
	cmd := motion.Command{
		Stamp:              stamp,
		LongAccelMPS2:      motion.Interpolate(accel0, accel1, frac),
		FrontWheelAngleRad: motion.Interpolate(wheel0, wheel1, frac),
		RearWheelAngleRad:  0, // not modeled
		// Velocity is read at the floor grid index, not blended. Preserved
		// as-is; see the documented asymmetry in the command tests.
		VelocityMPS: c.prob.stateVelocityAt(count),
	}

	if !isFinite(cmd.LongAccelMPS2) || !isFinite(cmd.FrontWheelAngleRad) {
		return motion.Command{}, &NonFiniteResult{
			LongAccelMPS2:      cmd.LongAccelMPS2,
			FrontWheelAngleRad: cmd.FrontWheelAngleRad,
		}
	}
	return cmd, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
