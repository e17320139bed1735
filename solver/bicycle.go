package solver

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Default bicycle backend dimensions. The workspace layout is fixed by these
// at construction; controllers validate against them at startup.
var bicycleDims = Dims{
	Horizon:          25,
	NX:               4,
	NU:               2,
	NOD:              2,
	NY:               6,
	NYN:              4,
	CtrlConstraints:  2,
	StateConstraints: 1,
	Step:             100 * time.Millisecond,
	Backend:          "bicycle gradient",
}

// Nonzero phase statuses reported by the bicycle backend.
const (
	statusBadInitialState = 11 // non-finite initial condition
	statusDiverged        = 21 // cost not finite after iterating
)

// Bicycle is a projected-gradient reference backend over a kinematic bicycle
// model. It presents the same call surface as generated embedded QP code so
// the controller cannot tell the difference; it is not a real-time solver.
type Bicycle struct {
	dims  Dims
	ws    *Workspace
	iters int

	// scratch rollout reused across cost evaluations
	nominal []float64
}

// NewBicycle constructs the backend with its build-time dimensions.
func NewBicycle() *Bicycle {
	d := bicycleDims
	return &Bicycle{
		dims:    d,
		ws:      NewWorkspace(d),
		nominal: make([]float64, d.Horizon*d.NX),
	}
}

func (b *Bicycle) Dims() Dims            { return b.dims }
func (b *Bicycle) Workspace() *Workspace { return b.ws }
func (b *Bicycle) Iterations() int       { return b.iters }
func (b *Bicycle) Name() string          { return "bicycle mpc gradient" }

// Prepare validates the workspace contents the iteration depends on.
func (b *Bicycle) Prepare() int {
	for _, v := range b.ws.X0 {
		if !isFinite(v) {
			return statusBadInitialState
		}
	}
	return 0
}

// InitializeNodesByForwardSimulation seeds X by rolling the model forward
// from X0 under the controls currently in U.
func (b *Bicycle) InitializeNodesByForwardSimulation() {
	b.rollout(b.ws.U, b.ws.X)
}

// Feedback runs the projected-gradient iteration and writes the solution
// back into U and X.
func (b *Bicycle) Feedback() int {
	const (
		maxIters = 40
		bump     = 1e-4
		minDrop  = 1e-9
	)
	u := b.ws.U
	grad := make([]float64, len(u))

	b.iters = 0
	cost := b.cost(u)
	for it := 0; it < maxIters; it++ {
		b.iters = it + 1
		// Finite-difference gradient over the control vector.
		for j := range u {
			orig := u[j]
			u[j] = orig + bump
			grad[j] = (b.cost(u) - cost) / bump
			u[j] = orig
		}
		norm := floats.Norm(grad, 2)
		if norm == 0 || !isFinite(norm) {
			break
		}
		// Backtracking line search along the negative gradient.
		step := 1.0 / norm
		improved := false
		for probe := 0; probe < 8; probe++ {
			floats.AddScaled(u, -step, grad)
			b.project(u)
			next := b.cost(u)
			if next < cost-minDrop {
				cost = next
				improved = true
				break
			}
			// Revert and shorten. Projection is idempotent, so adding the
			// step back restores at worst an interior point.
			floats.AddScaled(u, step, grad)
			b.project(u)
			step /= 2
		}
		if !improved {
			break
		}
	}
	if !isFinite(cost) {
		return statusDiverged
	}
	b.rollout(b.ws.U, b.ws.X)
	return 0
}

// rollout integrates the bicycle model from X0 under controls u into dst.
// The control row is interpreted as [longitudinal acceleration, front wheel
// angle], matching how commands are read back out of U.
func (b *Bicycle) rollout(u, dst []float64) {
	d := b.dims
	sec := d.Step.Seconds()
	x := b.ws.X0[IdxX]
	y := b.ws.X0[IdxY]
	heading := b.ws.X0[IdxHeading]
	vel := b.ws.X0[IdxVelLong]

	for i := 0; i < d.Horizon; i++ {
		row := i * d.NX
		dst[row+IdxX] = x
		dst[row+IdxY] = y
		dst[row+IdxHeading] = heading
		dst[row+IdxVelLong] = vel

		accel := u[i*d.NU+IdxJerk]
		wheel := u[i*d.NU+IdxWheelAngleRate]
		wheelbase := b.ws.OD[i*d.NOD+IdxParamLf] + b.ws.OD[i*d.NOD+IdxParamLr]
		if wheelbase <= 0 {
			wheelbase = 1
		}

		x += vel * math.Cos(heading) * sec
		y += vel * math.Sin(heading) * sec
		heading += vel * math.Tan(wheel) / wheelbase * sec
		vel += accel * sec

		// Affine velocity constraint enforced by projection in the rollout.
		lo := b.ws.LBAValues[i*d.StateConstraints+IdxConVelLong]
		hi := b.ws.UBAValues[i*d.StateConstraints+IdxConVelLong]
		if hi > lo {
			vel = math.Min(math.Max(vel, lo), hi)
		}
	}
}

// cost evaluates the weighted tracking objective of controls u.
func (b *Bicycle) cost(u []float64) float64 {
	d := b.dims
	b.rollout(u, b.nominal)

	total := 0.0
	for i := 0; i < d.Horizon; i++ {
		xrow := i * d.NX
		yrow := i * d.NY
		for k := 0; k < d.NX; k++ {
			diff := b.nominal[xrow+k] - b.ws.Y[yrow+k]
			if k == IdxHeading {
				diff = wrapAngle(diff)
			}
			total += b.ws.W[yrow+k] * diff * diff
		}
		for k := 0; k < d.NU; k++ {
			diff := u[i*d.NU+k] - b.ws.Y[yrow+d.NX+k]
			total += b.ws.W[yrow+d.NX+k] * diff * diff
		}
	}
	// Terminal cost against the last reference row's state part.
	last := (d.Horizon - 1) * d.NX
	lastRef := (d.Horizon - 1) * d.NY
	for k := 0; k < d.NYN; k++ {
		diff := b.nominal[last+k] - b.ws.Y[lastRef+k]
		if k == IdxHeading {
			diff = wrapAngle(diff)
		}
		total += b.ws.WN[k] * diff * diff
	}
	return total
}

// project clamps every control row into its bound box.
func (b *Bicycle) project(u []float64) {
	d := b.dims
	for i := 0; i < d.Horizon; i++ {
		crow := i * d.CtrlConstraints
		urow := i * d.NU
		for k := 0; k < d.NU && k < d.CtrlConstraints; k++ {
			lo := b.ws.LBValues[crow+k]
			hi := b.ws.UBValues[crow+k]
			if hi > lo {
				u[urow+k] = math.Min(math.Max(u[urow+k], lo), hi)
			}
		}
	}
}

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
