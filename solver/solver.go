// Package solver defines the boundary to the numerical optimization backend:
// the fixed problem dimensions, the flat workspace arrays the backend reads
// and writes, and the two-phase solve interface. The array layout mirrors
// generated embedded QP code, which is why everything is flat float64 slices
// indexed by hand rather than structured per-step records.
package solver

import (
	"fmt"
	"time"
)

// State variable indices within one state row.
const (
	IdxX       = 0
	IdxY       = 1
	IdxHeading = 2
	IdxVelLong = 3
)

// Control variable indices within one control row.
const (
	IdxJerk           = 0
	IdxWheelAngleRate = 1
)

// Online parameter indices within one parameter row.
const (
	IdxParamLf = 0
	IdxParamLr = 1
)

// Constraint indices. Acceleration and steer angle are control constraints;
// longitudinal velocity is the single affine state constraint.
const (
	IdxConAccel      = 0
	IdxConSteerAngle = 1
	IdxConVelLong    = 0
)

// Dims are the problem dimensions fixed at backend build time. A controller
// must validate them against the values it was written for before touching
// the workspace.
type Dims struct {
	Horizon          int           // N discrete steps
	NX               int           // state row width
	NU               int           // control row width
	NOD              int           // online parameter row width
	NY               int           // reference row width (NX + NU)
	NYN              int           // terminal reference row width
	CtrlConstraints  int           // control bound rows per step
	StateConstraints int           // affine state bound rows per step
	Step             time.Duration // fixed solver time step
	Backend          string        // backend identity
}

// Validate checks internal consistency of the dimension set.
func (d Dims) Validate() error {
	if d.Horizon < 3 {
		return fmt.Errorf("horizon %d too short for interpolation", d.Horizon)
	}
	if d.Step <= 0 {
		return fmt.Errorf("invalid solver time step %v", d.Step)
	}
	if d.NY != d.NX+d.NU {
		return fmt.Errorf("reference row width %d != NX+NU (%d)", d.NY, d.NX+d.NU)
	}
	if d.NYN != d.NX {
		return fmt.Errorf("terminal row width %d != NX (%d)", d.NYN, d.NX)
	}
	return nil
}

// Workspace is the flat storage shared between controller and backend. The
// backend owns the allocation for its lifetime; the controller has read and
// write access but never reallocates the slices.
type Workspace struct {
	X0 []float64 // NX: initial condition
	X  []float64 // Horizon x NX: predicted state trajectory
	U  []float64 // Horizon x NU: predicted control trajectory
	OD []float64 // Horizon x NOD: online parameters
	Y  []float64 // Horizon x NY: reference rows
	W  []float64 // Horizon x NY: diagonal tracking weights
	WN []float64 // NYN: diagonal terminal weights at the horizon end

	LBValues  []float64 // Horizon x CtrlConstraints
	UBValues  []float64 // Horizon x CtrlConstraints
	LBAValues []float64 // Horizon x StateConstraints
	UBAValues []float64 // Horizon x StateConstraints
}

// NewWorkspace allocates a zeroed workspace for the given dimensions.
func NewWorkspace(d Dims) *Workspace {
	return &Workspace{
		X0:        make([]float64, d.NX),
		X:         make([]float64, d.Horizon*d.NX),
		U:         make([]float64, d.Horizon*d.NU),
		OD:        make([]float64, d.Horizon*d.NOD),
		Y:         make([]float64, d.Horizon*d.NY),
		W:         make([]float64, d.Horizon*d.NY),
		WN:        make([]float64, d.NYN),
		LBValues:  make([]float64, d.Horizon*d.CtrlConstraints),
		UBValues:  make([]float64, d.Horizon*d.CtrlConstraints),
		LBAValues: make([]float64, d.Horizon*d.StateConstraints),
		UBAValues: make([]float64, d.Horizon*d.StateConstraints),
	}
}

// Solver is the two-phase solve surface of the backend. Prepare and Feedback
// return an integer status; zero means success, anything else is fatal for
// the cycle and carries backend-specific meaning.
type Solver interface {
	Dims() Dims
	Workspace() *Workspace
	Prepare() int
	Feedback() int
	// InitializeNodesByForwardSimulation seeds the state trajectory by
	// rolling the model forward from X0 under the current controls.
	InitializeNodesByForwardSimulation()
	// Iterations reports the iteration count of the last Feedback call;
	// backends that do not expose this report zero.
	Iterations() int
	Name() string
}
