package mpc

import (
	"errors"
	"fmt"
)

// ErrTrajectoryRejected is returned by SetTrajectory when a candidate
// reference fails validation. The active trajectory is left untouched, so
// callers handle it by keeping the last-good reference.
var ErrTrajectoryRejected = errors.New("reference trajectory rejected")

// SolverFailure is a nonzero status from one of the two solve phases. It is
// fatal for the cycle and is never retried here.
type SolverFailure struct {
	Phase  string
	Status int
}

func (e *SolverFailure) Error() string {
	return fmt.Sprintf("solver %s error: status %d", e.Phase, e.Status)
}

// NonFiniteResult means the interpolated command contains NaN or Inf. It is
// the terminal sanity check before a command reaches actuation; it signals an
// upstream numerical problem and must not be masked.
type NonFiniteResult struct {
	LongAccelMPS2      float64
	FrontWheelAngleRad float64
}

func (e *NonFiniteResult) Error() string {
	return fmt.Sprintf("interpolation failed, result is not finite: accel=%v wheel_angle=%v",
		e.LongAccelMPS2, e.FrontWheelAngleRad)
}

// IndexRegression means the reference index moved backwards between cycles.
// This is an integration error, not a recoverable runtime condition.
type IndexRegression struct {
	Last    int
	Current int
}

func (e *IndexRegression) Error() string {
	return fmt.Sprintf("reference index went backwards: %d -> %d", e.Last, e.Current)
}
