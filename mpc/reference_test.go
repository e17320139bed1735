package mpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vignesh-tw/autoware.auto/solver"
)

func TestTaperWhenTrajectoryEndsInsideHorizon(t *testing.T) {
	f := newFakeSolver()
	c := newTestController(t, testConfig(), f)
	// 5 points: after advancing to index 2 only N-2 = 3 points remain.
	require.NoError(t, c.SetTrajectory(gridTrajectory(5)))

	_, err := c.ComputeCommand(stateAt(0))
	require.NoError(t, err)

	_, err = c.ComputeCommand(stateAt(200 * time.Millisecond))
	require.NoError(t, err)

	nominal := c.cfg.Optimization.Nominal
	terminal := c.cfg.Optimization.Terminal

	// Rows 0..1 still track nominally.
	for i := 0; i <= 1; i++ {
		assert.Equalf(t, nominal.Pose, f.ws.W[i*c.dims.NY+solver.IdxX], "row %d pose weight", i)
		assert.Equalf(t, nominal.Heading, f.ws.W[i*c.dims.NY+solver.IdxHeading], "row %d heading weight", i)
	}
	// Row 2, the last real point, carries the terminal weight.
	assert.Equal(t, terminal.Pose, f.ws.W[2*c.dims.NY+solver.IdxX])
	assert.Equal(t, terminal.LongitudinalVelocity, f.ws.W[2*c.dims.NY+solver.IdxVelLong])
	// Rows beyond the remaining points contribute no cost at all.
	for i := 3; i < c.dims.Horizon; i++ {
		for k := 0; k < c.dims.NY; k++ {
			assert.Zerof(t, f.ws.W[i*c.dims.NY+k], "row %d weight %d", i, k)
		}
	}
	// Exactly one row carries the terminal pose weight.
	count := 0
	for i := 0; i < c.dims.Horizon; i++ {
		if f.ws.W[i*c.dims.NY+solver.IdxX] == terminal.Pose {
			count++
		}
	}
	assert.Equal(t, 1, count)
	// The horizon-end terminal weights are gone: the trajectory end is no
	// longer at the end of the window.
	for k := range f.ws.WN {
		assert.Zero(t, f.ws.WN[k])
	}
}

func TestTaperProgressesAsTrajectoryRunsOut(t *testing.T) {
	f := newFakeSolver()
	c := newTestController(t, testConfig(), f)
	require.NoError(t, c.SetTrajectory(gridTrajectory(5)))

	_, err := c.ComputeCommand(stateAt(0))
	require.NoError(t, err)
	for _, off := range []time.Duration{200, 300, 400} {
		_, err = c.ComputeCommand(stateAt(off * time.Millisecond))
		require.NoError(t, err)
	}

	// At index 4 only the last point remains: terminal weight on row 0,
	// everything else zeroed.
	assert.Equal(t, 4, c.lastReferenceIndex)
	assert.Equal(t, c.cfg.Optimization.Terminal.Pose, f.ws.W[solver.IdxX])
	for i := 1; i < c.dims.Horizon; i++ {
		for k := 0; k < c.dims.NY; k++ {
			assert.Zerof(t, f.ws.W[i*c.dims.NY+k], "row %d weight %d", i, k)
		}
	}
}

func TestTaperAfterIndexJumpBeyondHorizon(t *testing.T) {
	f := newFakeSolver()
	c := newTestController(t, testConfig(), f)
	require.NoError(t, c.SetTrajectory(gridTrajectory(10)))

	_, err := c.ComputeCommand(stateAt(0))
	require.NoError(t, err)

	// A long stall: the next state lands at index 8, a jump past the whole
	// window, with only two real points left. Every window row is stale
	// after the (no-op) shift and must be rebuilt from the trajectory.
	_, err = c.ComputeCommand(stateAt(800 * time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, 8, c.lastReferenceIndex)

	nominal := c.cfg.Optimization.Nominal
	terminal := c.cfg.Optimization.Terminal

	// Row 0 tracks point 8 nominally; row 1, the last real point, carries
	// the terminal weight.
	assert.InDelta(t, 8.0, f.ws.Y[0*c.dims.NY+solver.IdxX], 1e-12)
	assert.Equal(t, nominal.Pose, f.ws.W[0*c.dims.NY+solver.IdxX])
	assert.InDelta(t, 9.0, f.ws.Y[1*c.dims.NY+solver.IdxX], 1e-12)
	assert.Equal(t, terminal.Pose, f.ws.W[1*c.dims.NY+solver.IdxX])

	count := 0
	for i := 0; i < c.dims.Horizon; i++ {
		if f.ws.W[i*c.dims.NY+solver.IdxX] == terminal.Pose {
			count++
		}
	}
	assert.Equal(t, 1, count)
	for i := 2; i < c.dims.Horizon; i++ {
		for k := 0; k < c.dims.NY; k++ {
			assert.Zerof(t, f.ws.W[i*c.dims.NY+k], "row %d weight %d", i, k)
		}
	}
}

func TestTaperAfterPartialJumpRewritesStaleRows(t *testing.T) {
	f := newFakeSolver()
	c := newTestController(t, testConfig(), f)
	require.NoError(t, c.SetTrajectory(gridTrajectory(7)))

	_, err := c.ComputeCommand(stateAt(0))
	require.NoError(t, err)

	// Jump by three: the shift makes rows 0-1 current (points 3, 4), but
	// rows 2-3 still hold points 2-3 from the previous window and must be
	// rewritten to points 5-6 before the terminal weight lands on row 3.
	_, err = c.ComputeCommand(stateAt(300 * time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, 3, c.lastReferenceIndex)

	terminal := c.cfg.Optimization.Terminal
	for i, wantX := range []float64{3, 4, 5, 6} {
		assert.InDeltaf(t, wantX, f.ws.Y[i*c.dims.NY+solver.IdxX], 1e-12, "row %d reference", i)
	}
	count := 0
	for i := 0; i < c.dims.Horizon; i++ {
		if f.ws.W[i*c.dims.NY+solver.IdxX] == terminal.Pose {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, terminal.Pose, f.ws.W[3*c.dims.NY+solver.IdxX])
	for k := 0; k < c.dims.NY; k++ {
		assert.Zerof(t, f.ws.W[4*c.dims.NY+k], "tail row weight %d", k)
	}
}

func TestUpdateReferencesIndexRegression(t *testing.T) {
	f := newFakeSolver()
	c := newTestController(t, testConfig(), f)
	require.NoError(t, c.SetTrajectory(gridTrajectory(6)))

	c.lastReferenceIndex = 3
	_, err := c.updateReferences(1)
	var reg *IndexRegression
	require.ErrorAs(t, err, &reg)
	assert.Equal(t, 3, reg.Last)
	assert.Equal(t, 1, reg.Current)
	// The stored index is untouched by the failed update.
	assert.Equal(t, 3, c.lastReferenceIndex)
}

func TestUpdateReferencesColdStart(t *testing.T) {
	f := newFakeSolver()
	c := newTestController(t, testConfig(), f)
	require.NoError(t, c.SetTrajectory(gridTrajectory(6)))

	cold, err := c.updateReferences(0)
	require.NoError(t, err)
	assert.True(t, cold)

	c.lastReferenceIndex = 1
	cold, err = c.updateReferences(2)
	require.NoError(t, err)
	assert.False(t, cold)
	assert.Equal(t, 2, c.lastReferenceIndex)
}

func TestShiftForwardMovesSolution(t *testing.T) {
	f := newFakeSolver()
	c := newTestController(t, testConfig(), f)

	d := c.dims
	for i := 0; i < d.Horizon; i++ {
		f.ws.X[i*d.NX+solver.IdxX] = float64(i)
		f.ws.U[i*d.NU+solver.IdxJerk] = float64(i) * 10
	}
	c.prob.shiftForward(2)
	assert.InDelta(t, 2.0, f.ws.X[solver.IdxX], 1e-12)
	assert.InDelta(t, 20.0, f.ws.U[solver.IdxJerk], 1e-12)
	// Tail rows keep their previous values until backfilled or tapered.
	assert.InDelta(t, 4.0, f.ws.X[(d.Horizon-1)*d.NX+solver.IdxX], 1e-12)
}
