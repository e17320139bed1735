package mpc

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vignesh-tw/autoware.auto/motion"
)

func TestTrajectoryExactlyOnGridAccepted(t *testing.T) {
	f := newFakeSolver()
	cfg := testConfig()
	cfg.SamplePeriodToleranceMS = 0 // tolerance zero boundary case
	c := newTestController(t, cfg, f)

	assert.NoError(t, c.SetTrajectory(gridTrajectory(6)))
}

func TestTrajectoryOffGridRejected(t *testing.T) {
	f := newFakeSolver()
	cfg := testConfig()
	cfg.SamplePeriodToleranceMS = 5
	c := newTestController(t, cfg, f)

	traj := gridTrajectory(6)
	traj.Points[3].TimeFromStart += 5*time.Millisecond + time.Microsecond
	err := c.SetTrajectory(traj)
	assert.ErrorIs(t, err, ErrTrajectoryRejected)

	// Exactly at tolerance is still acceptable.
	traj = gridTrajectory(6)
	traj.Points[3].TimeFromStart += 5 * time.Millisecond
	assert.NoError(t, c.SetTrajectory(traj))
}

func TestTrajectoryBadHeadingAlwaysRejected(t *testing.T) {
	for _, interpolate := range []bool{false, true} {
		f := newFakeSolver()
		cfg := testConfig()
		cfg.Interpolate = interpolate
		c := newTestController(t, cfg, f)

		traj := gridTrajectory(6)
		traj.Points[2].Heading = motion.Heading{Real: 0.5, Imag: 0.5}
		err := c.SetTrajectory(traj)
		assert.ErrorIsf(t, err, ErrTrajectoryRejected, "interpolate=%v", interpolate)

		traj = gridTrajectory(6)
		traj.Points[0].Heading = motion.Heading{Real: math.NaN()}
		assert.ErrorIs(t, c.SetTrajectory(traj), ErrTrajectoryRejected)
	}
}

func TestInterpolateModeAcceptsAnySampling(t *testing.T) {
	f := newFakeSolver()
	cfg := testConfig()
	cfg.Interpolate = true
	c := newTestController(t, cfg, f)

	traj := motion.Trajectory{Stamp: testBase}
	for _, ms := range []int{0, 37, 141, 280, 433} {
		traj.Points = append(traj.Points, motion.TrajectoryPoint{
			TimeFromStart:           time.Duration(ms) * time.Millisecond,
			X:                       float64(ms) / 100,
			Heading:                 motion.FromAngle(0),
			LongitudinalVelocityMPS: 10,
		})
	}
	require.NoError(t, c.SetTrajectory(traj))

	// The active trajectory was resampled onto the 100ms solver grid.
	got := c.Trajectory()
	require.Len(t, got.Points, 5)
	for i, pt := range got.Points {
		assert.Equal(t, time.Duration(i)*100*time.Millisecond, pt.TimeFromStart)
		// X grows at 10 ms^-1 scaled: linear in time, so resampling keeps it
		// linear to within interpolation exactness.
		assert.InDelta(t, float64(i), pt.X, 1e-9)
	}
}

func TestRejectionKeepsPreviousTrajectory(t *testing.T) {
	f := newFakeSolver()
	c := newTestController(t, testConfig(), f)

	good := gridTrajectory(6)
	require.NoError(t, c.SetTrajectory(good))

	bad := gridTrajectory(6)
	bad.Points[1].Heading = motion.Heading{}
	assert.ErrorIs(t, c.SetTrajectory(bad), ErrTrajectoryRejected)

	if diff := cmp.Diff(good, c.Trajectory(), cmpopts.EquateApproxTime(0)); diff != "" {
		t.Errorf("active trajectory changed after rejection (-want +got):\n%s", diff)
	}

	assert.ErrorIs(t, c.SetTrajectory(motion.Trajectory{Stamp: testBase}), ErrTrajectoryRejected)
}
