package mpc

import (
	"time"

	"github.com/vignesh-tw/autoware.auto/motion"
)

// checkNewTrajectory decides whether a candidate reference trajectory may
// become the active one. Headings must always be valid normalized
// orientations. Timestamp alignment against the fixed solver grid is only
// enforced when the controller is not resampling the reference itself; the
// roll/backfill logic assumes grid-aligned points.
func (c *Controller) checkNewTrajectory(t motion.Trajectory) bool {
	for _, pt := range t.Points {
		if !pt.Heading.OK() {
			return false
		}
	}
	if c.cfg.Interpolate {
		return true
	}
	tol := c.cfg.SamplePeriodTolerance()
	for i, pt := range t.Points {
		expected := time.Duration(i) * c.dims.Step
		dev := pt.TimeFromStart - expected
		if dev < -tol || dev > tol {
			return false
		}
	}
	return true
}

// resampleToGrid produces a trajectory sampled exactly at the solver grid by
// linear interpolation between the incoming samples. The last grid point is
// the last one not beyond the final sample.
func (c *Controller) resampleToGrid(t motion.Trajectory) motion.Trajectory {
	out := motion.Trajectory{Stamp: t.Stamp}
	if len(t.Points) == 0 {
		return out
	}
	last := t.Points[len(t.Points)-1].TimeFromStart
	src := 0
	for k := 0; ; k++ {
		at := time.Duration(k) * c.dims.Step
		if at > last {
			break
		}
		for src+1 < len(t.Points) && t.Points[src+1].TimeFromStart <= at {
			src++
		}
		pt := t.Points[src]
		if src+1 < len(t.Points) {
			a, b := t.Points[src], t.Points[src+1]
			span := b.TimeFromStart - a.TimeFromStart
			frac := 0.0
			if span > 0 {
				frac = float64(at-a.TimeFromStart) / float64(span)
			}
			pt = motion.InterpolatePoint(a, b, frac)
		}
		pt.TimeFromStart = at
		out.Points = append(out.Points, pt)
	}
	return out
}
