package mpc

import (
	"math"
	"time"

	"github.com/vignesh-tw/autoware.auto/motion"
	"github.com/vignesh-tw/autoware.auto/solver"
)

// problem is the workspace adapter: a typed view over the backend's flat
// arrays. All index arithmetic against the workspace lives here; nothing
// above this file touches raw offsets.
type problem struct {
	d  solver.Dims
	ws *solver.Workspace
}

func newProblem(s solver.Solver) problem {
	return problem{d: s.Dims(), ws: s.Workspace()}
}

// setInitialState writes the predicted state as the optimizer's initial
// condition and pins the first predicted state row to it.
func (p problem) setInitialState(s motion.State) {
	p.ws.X0[solver.IdxX] = s.X
	p.ws.X0[solver.IdxY] = s.Y
	p.ws.X0[solver.IdxHeading] = s.Heading.Angle()
	p.ws.X0[solver.IdxVelLong] = s.LongitudinalVelocityMPS
	copy(p.ws.X[:p.d.NX], p.ws.X0)
}

func (p problem) setReferenceRow(i int, pt motion.TrajectoryPoint) {
	row := i * p.d.NY
	p.ws.Y[row+solver.IdxX] = pt.X
	p.ws.Y[row+solver.IdxY] = pt.Y
	p.ws.Y[row+solver.IdxHeading] = pt.Heading.Angle()
	p.ws.Y[row+solver.IdxVelLong] = pt.LongitudinalVelocityMPS
	// Control references stay at zero: the cost penalizes control effort,
	// not deviation from a control plan.
	p.ws.Y[row+p.d.NX+solver.IdxJerk] = 0
	p.ws.Y[row+p.d.NX+solver.IdxWheelAngleRate] = 0
}

// referenceRowMatches reports whether row i already holds pt (state part
// only) to within tol.
func (p problem) referenceRowMatches(i int, pt motion.TrajectoryPoint, tol float64) bool {
	row := i * p.d.NY
	return math.Abs(p.ws.Y[row+solver.IdxX]-pt.X) <= tol &&
		math.Abs(p.ws.Y[row+solver.IdxY]-pt.Y) <= tol &&
		math.Abs(p.ws.Y[row+solver.IdxHeading]-pt.Heading.Angle()) <= tol &&
		math.Abs(p.ws.Y[row+solver.IdxVelLong]-pt.LongitudinalVelocityMPS) <= tol
}

func (p problem) setRowWeights(i int, w Weights) {
	row := i * p.d.NY
	p.ws.W[row+solver.IdxX] = w.Pose
	p.ws.W[row+solver.IdxY] = w.Pose
	p.ws.W[row+solver.IdxHeading] = w.Heading
	p.ws.W[row+solver.IdxVelLong] = w.LongitudinalVelocity
	p.ws.W[row+p.d.NX+solver.IdxJerk] = w.Jerk
	p.ws.W[row+p.d.NX+solver.IdxWheelAngleRate] = w.SteerAngleRate
}

func (p problem) zeroRowWeights(i int) {
	row := i * p.d.NY
	for k := 0; k < p.d.NY; k++ {
		p.ws.W[row+k] = 0
	}
}

// rowWeights returns a copy of weight row i.
func (p problem) rowWeights(i int) []float64 {
	row := i * p.d.NY
	out := make([]float64, p.d.NY)
	copy(out, p.ws.W[row:row+p.d.NY])
	return out
}

func (p problem) setHorizonTerminalWeights(w Weights) {
	p.ws.WN[solver.IdxX] = w.Pose
	p.ws.WN[solver.IdxY] = w.Pose
	p.ws.WN[solver.IdxHeading] = w.Heading
	p.ws.WN[solver.IdxVelLong] = w.LongitudinalVelocity
}

func (p problem) zeroHorizonTerminalWeights() {
	for k := range p.ws.WN {
		p.ws.WN[k] = 0
	}
}

// shiftForward rolls states, controls, references and weights forward by
// advance rows, discarding the oldest. Tail rows keep their previous values
// until backfilled or tapered.
func (p problem) shiftForward(advance int) {
	if advance <= 0 || advance >= p.d.Horizon {
		return
	}
	copy(p.ws.X, p.ws.X[advance*p.d.NX:])
	copy(p.ws.U, p.ws.U[advance*p.d.NU:])
	copy(p.ws.Y, p.ws.Y[advance*p.d.NY:])
	copy(p.ws.W, p.ws.W[advance*p.d.NY:])
}

func (p problem) zeroControls() {
	for k := range p.ws.U {
		p.ws.U[k] = 0
	}
}

func (p problem) controlAt(i int) (accel, wheelAngle float64) {
	row := i * p.d.NU
	return p.ws.U[row+solver.IdxJerk], p.ws.U[row+solver.IdxWheelAngleRate]
}

func (p problem) stateVelocityAt(i int) float64 {
	return p.ws.X[i*p.d.NX+solver.IdxVelLong]
}

// broadcastParameters writes the vehicle geometry to every horizon step.
func (p problem) broadcastParameters(v VehicleConfig) {
	for i := 0; i < p.d.Horizon; i++ {
		row := i * p.d.NOD
		p.ws.OD[row+solver.IdxParamLf] = v.LengthCGFrontAxelM
		p.ws.OD[row+solver.IdxParamLr] = v.LengthCGRearAxelM
	}
}

// broadcastBounds writes the control and state bounds to every horizon step.
func (p problem) broadcastBounds(l LimitsConfig) {
	for i := 0; i < p.d.Horizon; i++ {
		crow := i * p.d.CtrlConstraints
		p.ws.LBValues[crow+solver.IdxConAccel] = l.Acceleration.Min
		p.ws.UBValues[crow+solver.IdxConAccel] = l.Acceleration.Max
		p.ws.LBValues[crow+solver.IdxConSteerAngle] = l.SteerAngle.Min
		p.ws.UBValues[crow+solver.IdxConSteerAngle] = l.SteerAngle.Max

		srow := i * p.d.StateConstraints
		p.ws.LBAValues[srow+solver.IdxConVelLong] = l.LongitudinalVelocity.Min
		p.ws.UBAValues[srow+solver.IdxConVelLong] = l.LongitudinalVelocity.Max
	}
}

// broadcastWeights resets every tracking row to the nominal weights and the
// horizon-end terminal row to the terminal weights.
func (p problem) broadcastWeights(o OptimizationConfig) {
	for i := 0; i < p.d.Horizon; i++ {
		p.setRowWeights(i, o.Nominal)
	}
	p.setHorizonTerminalWeights(o.Terminal)
}

// computedTrajectory reads the solved state/control trajectory back out of
// the workspace for monitoring.
func (p problem) computedTrajectory(base motion.Trajectory) motion.Trajectory {
	out := motion.Trajectory{
		Stamp:  base.Stamp,
		Points: make([]motion.TrajectoryPoint, p.d.Horizon),
	}
	for i := 0; i < p.d.Horizon; i++ {
		row := i * p.d.NX
		out.Points[i] = motion.TrajectoryPoint{
			TimeFromStart:           time.Duration(i) * p.d.Step,
			X:                       p.ws.X[row+solver.IdxX],
			Y:                       p.ws.X[row+solver.IdxY],
			Heading:                 motion.FromAngle(p.ws.X[row+solver.IdxHeading]),
			LongitudinalVelocityMPS: p.ws.X[row+solver.IdxVelLong],
		}
	}
	return out
}
