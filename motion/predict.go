package motion

import (
	"math"
	"time"
)

// Predict advances a state by dt under a constant-velocity, constant-heading
// kinematic model. dt may be negative, in which case the state is rolled
// backwards; the transform is exact in both directions.
func Predict(s State, dt time.Duration) State {
	sec := dt.Seconds()
	angle := s.Heading.Angle()
	s.X += s.LongitudinalVelocityMPS * math.Cos(angle) * sec
	s.Y += s.LongitudinalVelocityMPS * math.Sin(angle) * sec
	s.Stamp = s.Stamp.Add(dt)
	return s
}
