// Package mpc implements the receding-horizon controller core: horizon
// management and temporal synchronization between an externally solved,
// fixed-grid optimization problem, a reference trajectory whose samples may
// not align with that grid, and vehicle states that arrive at arbitrary
// wall-clock times.
//
// The controller is stateful across cycles (reference index bookkeeping) and
// not reentrant: exactly one control loop may drive it, and no cycle may
// begin before the previous one's solve completed.
package mpc

import (
	"errors"
	"fmt"
	"time"

	"github.com/vignesh-tw/autoware.auto/motion"
	"github.com/vignesh-tw/autoware.auto/solver"
)

// Expected solver build dimensions. The workspace index math in this package
// is written against these; a backend generated with anything else is
// rejected at construction.
const (
	expectedNX               = 4
	expectedNU               = 2
	expectedNOD              = 2
	expectedCtrlConstraints  = 2
	expectedStateConstraints = 1
)

// Controller converts a reference trajectory and the current vehicle state
// into actuation commands, one per ComputeCommand call.
type Controller struct {
	cfg    Config
	solver solver.Solver
	dims   solver.Dims
	prob   problem

	traj               motion.Trajectory
	lastReferenceIndex int
}

// NewController validates the backend dimensions against the values this
// controller was written for and projects the configuration onto the
// workspace.
func NewController(cfg Config, s solver.Solver) (*Controller, error) {
	d := s.Dims()
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("solver dims: %w", err)
	}
	if d.NX != expectedNX {
		return nil, fmt.Errorf("unexpected num of state variables: %d", d.NX)
	}
	if d.NU != expectedNU {
		return nil, fmt.Errorf("unexpected num of control variables: %d", d.NU)
	}
	if d.NOD != expectedNOD {
		return nil, fmt.Errorf("unexpected num of online parameters: %d", d.NOD)
	}
	if d.CtrlConstraints != expectedCtrlConstraints || d.StateConstraints != expectedStateConstraints {
		return nil, fmt.Errorf("unexpected constraint counts: ctrl=%d state=%d",
			d.CtrlConstraints, d.StateConstraints)
	}
	if d.Backend == "" {
		return nil, errors.New("solver backend identity not set")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	c := &Controller{
		cfg:    cfg,
		solver: s,
		dims:   d,
		prob:   newProblem(s),
	}
	c.applyConfig()
	return c, nil
}

// Config returns the active configuration.
func (c *Controller) Config() Config { return c.cfg }

// SetConfig replaces the configuration and re-projects it onto the
// workspace.
func (c *Controller) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.cfg = cfg
	c.applyConfig()
	return nil
}

// applyConfig broadcasts geometry, bounds and weights across all horizon
// steps. Pure write; semantics were validated by the caller.
func (c *Controller) applyConfig() {
	c.prob.broadcastParameters(c.cfg.Vehicle)
	c.prob.broadcastBounds(c.cfg.Limits)
	c.prob.broadcastWeights(c.cfg.Optimization)
}

// SetTrajectory validates a candidate reference and, if accepted, makes it
// the active one and resets the index state (the next cycle is a cold
// start). On rejection the previous trajectory stays active and
// ErrTrajectoryRejected is returned.
func (c *Controller) SetTrajectory(t motion.Trajectory) error {
	if len(t.Points) == 0 {
		return fmt.Errorf("%w: empty", ErrTrajectoryRejected)
	}
	if !c.checkNewTrajectory(t) {
		return ErrTrajectoryRejected
	}
	if c.cfg.Interpolate {
		t = c.resampleToGrid(t)
		if len(t.Points) == 0 {
			return fmt.Errorf("%w: no samples on solver grid", ErrTrajectoryRejected)
		}
	}
	c.traj = motion.Trajectory{Stamp: t.Stamp, Points: append([]motion.TrajectoryPoint(nil), t.Points...)}
	c.lastReferenceIndex = 0
	return nil
}

// Trajectory returns the active reference trajectory.
func (c *Controller) Trajectory() motion.Trajectory { return c.traj }

// Reset clears the cross-cycle index state; the next cycle is a cold start.
func (c *Controller) Reset() { c.lastReferenceIndex = 0 }

// ComputeCommand runs one full control cycle: temporal alignment, reference
// window update, state prediction, solve and command interpolation. A
// returned error aborts command production for this cycle; there is no
// internal retry.
func (c *Controller) ComputeCommand(state motion.State) (motion.Command, error) {
	if len(c.traj.Points) == 0 {
		return motion.Command{}, errors.New("no reference trajectory")
	}

	currentIdx := c.currentTemporalIndex(state)
	coldStart, err := c.updateReferences(currentIdx)
	if err != nil {
		return motion.Command{}, err
	}

	dt := c.x0TimeOffset(state, currentIdx)
	c.prob.setInitialState(motion.Predict(state, dt))

	// Has to happen after the initial conditions are set and has to run
	// every cycle: there is no smoothness guarantee on the received state
	// or the reference.
	if c.ensureReferenceConsistency(currentIdx) {
		coldStart = true
	}

	if coldStart {
		c.prob.zeroControls()
		c.solver.InitializeNodesByForwardSimulation()
	}

	if status := c.solver.Prepare(); status != 0 {
		return motion.Command{}, &SolverFailure{Phase: "preparation", Status: status}
	}
	if status := c.solver.Feedback(); status != 0 {
		return motion.Command{}, &SolverFailure{Phase: "feedback", Status: status}
	}

	return c.interpolatedCommand(state.Stamp, dt)
}

// currentTemporalIndex resolves the reference index whose timestamp is the
// closest preceding the state's timestamp. Monotonically non-decreasing
// across cycles of one trajectory by construction.
func (c *Controller) currentTemporalIndex(state motion.State) int {
	idx := c.lastReferenceIndex
	for idx+1 < len(c.traj.Points) && !c.traj.PointTime(idx+1).After(state.Stamp) {
		idx++
	}
	return idx
}

// x0TimeOffset is the signed offset between where the solver grid says "now"
// is and the state's actual timestamp. Positive means the state arrived
// early relative to the grid.
func (c *Controller) x0TimeOffset(state motion.State, idx int) time.Duration {
	return c.traj.PointTime(idx).Sub(state.Stamp)
}

// ComputedTrajectory returns the solved state trajectory for monitoring and
// visualization.
func (c *Controller) ComputedTrajectory() motion.Trajectory {
	return c.prob.computedTrajectory(c.traj)
}

// ComputeIterations reports the backend's iteration count for the last
// solve; zero when the backend does not expose one.
func (c *Controller) ComputeIterations() int { return c.solver.Iterations() }

// Name identifies the controller and its solver backend.
func (c *Controller) Name() string {
	return "mpc controller " + c.dims.Backend
}
