package mpc

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vignesh-tw/autoware.auto/solver"
)

// fillControls writes distinct control values at every grid step so
// interpolation results identify their source indices.
func fillControls(f *fakeSolver) {
	for i := 0; i < f.dims.Horizon; i++ {
		f.ws.U[i*f.dims.NU+solver.IdxJerk] = float64(i)
		f.ws.U[i*f.dims.NU+solver.IdxWheelAngleRate] = float64(i) * 0.1
		f.ws.X[i*f.dims.NX+solver.IdxVelLong] = float64(i) * 10
	}
}

func interpController(t *testing.T, lookaheadMS float64) (*Controller, *fakeSolver) {
	t.Helper()
	f := newFakeSolver()
	cfg := testConfig()
	cfg.ControlLookaheadMS = lookaheadMS
	c := newTestController(t, cfg, f)
	fillControls(f)
	return c, f
}

func TestInterpolateAtZeroOffsetIsGridValue(t *testing.T) {
	c, _ := interpController(t, 0)
	cmd, err := c.interpolatedCommand(testBase, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cmd.LongAccelMPS2)
	assert.Equal(t, 0.0, cmd.FrontWheelAngleRad)
	assert.Equal(t, 0.0, cmd.VelocityMPS)
	assert.Equal(t, 0.0, cmd.RearWheelAngleRad)
}

func TestInterpolateMidStepBlends(t *testing.T) {
	c, _ := interpController(t, 150)
	cmd, err := c.interpolatedCommand(testBase, 0)
	require.NoError(t, err)
	// Halfway between steps 1 and 2.
	assert.InDelta(t, 1.5, cmd.LongAccelMPS2, 1e-12)
	assert.InDelta(t, 0.15, cmd.FrontWheelAngleRad, 1e-12)
	// Velocity is read at the floor index, not blended: a deliberate,
	// preserved asymmetry with the blended control fields.
	assert.InDelta(t, 10.0, cmd.VelocityMPS, 1e-12)
}

func TestInterpolateMaxOffsetClamped(t *testing.T) {
	// Lookahead equal to the horizon span: count clamps to N-2, t to 1.
	c, _ := interpController(t, 400)
	cmd, err := c.interpolatedCommand(testBase, 0)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, cmd.LongAccelMPS2, 1e-12)

	// Far beyond the horizon: identical result, never indexes past N-1.
	c, _ = interpController(t, 10000)
	cmd, err = c.interpolatedCommand(testBase, 0)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, cmd.LongAccelMPS2, 1e-12)
	assert.InDelta(t, 0.4, cmd.FrontWheelAngleRad, 1e-12)
}

func TestInterpolateNegativeStateOffsetShiftsForward(t *testing.T) {
	// A state 100ms late relative to the grid moves the sample one step
	// further into the horizon.
	c, _ := interpController(t, 0)
	cmd, err := c.interpolatedCommand(testBase, -100*time.Millisecond)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cmd.LongAccelMPS2, 1e-12)

	// A large positive offset clamps the effective lookahead at zero.
	cmd, err = c.interpolatedCommand(testBase, 250*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cmd.LongAccelMPS2)
}

func TestNonFiniteResultOnNaNControl(t *testing.T) {
	tests := []struct {
		name   string
		inject func(*fakeSolver)
	}{
		{"nan accel", func(f *fakeSolver) { f.ws.U[1*f.dims.NU+solver.IdxJerk] = math.NaN() }},
		{"inf wheel angle", func(f *fakeSolver) { f.ws.U[1*f.dims.NU+solver.IdxWheelAngleRate] = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, f := interpController(t, 50)
			tt.inject(f)
			_, err := c.interpolatedCommand(testBase, 0)
			var nf *NonFiniteResult
			require.ErrorAs(t, err, &nf)
		})
	}
}

func TestFiniteBlendDespiteNaNOutsideBracket(t *testing.T) {
	// NaN at a grid point the interpolation bracket never touches must not
	// trip the finite check.
	c, f := interpController(t, 0)
	f.ws.U[3*f.dims.NU+solver.IdxJerk] = math.NaN()
	cmd, err := c.interpolatedCommand(testBase, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cmd.LongAccelMPS2)
}

func TestNonFiniteVelocityIsNotChecked(t *testing.T) {
	// Only the two blended actuation fields gate the command; the velocity
	// diagnostic field is passed through as-is.
	c, f := interpController(t, 0)
	f.ws.X[solver.IdxVelLong] = math.NaN()
	cmd, err := c.interpolatedCommand(testBase, 0)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(cmd.VelocityMPS))
}
