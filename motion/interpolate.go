package motion

// Interpolate linearly blends two scalars. t is clamped to [0, 1], so
// t=0 yields exactly a and t=1 yields exactly b.
func Interpolate(a, b, t float64) float64 {
	t = clamp01(t)
	return a + (b-a)*t
}

// InterpolatePoint blends two trajectory points at fraction t. The caller is
// responsible for setting TimeFromStart on the result.
func InterpolatePoint(a, b TrajectoryPoint, t float64) TrajectoryPoint {
	return TrajectoryPoint{
		X:                       Interpolate(a.X, b.X, t),
		Y:                       Interpolate(a.Y, b.Y, t),
		Heading:                 Nlerp(a.Heading, b.Heading, t),
		LongitudinalVelocityMPS: Interpolate(a.LongitudinalVelocityMPS, b.LongitudinalVelocityMPS, t),
	}
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
