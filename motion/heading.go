package motion

import "math"

// Heading encodes an orientation as a normalized 2D quaternion:
// Real = cos(angle/2), Imag = sin(angle/2). This is the wire representation;
// the solver works on the scalar angle.
type Heading struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imag"`
}

// HeadingNormTolerance bounds how far a heading's norm may drift from 1
// before it is considered an invalid orientation encoding.
const HeadingNormTolerance = 1e-3

// FromAngle converts a scalar angle (rad) to its heading encoding.
func FromAngle(rad float64) Heading {
	return Heading{Real: math.Cos(rad / 2), Imag: math.Sin(rad / 2)}
}

// Angle converts the heading back to a scalar angle in (-pi, pi].
func (h Heading) Angle() float64 {
	return 2 * math.Atan2(h.Imag, h.Real)
}

// OK reports whether the heading is a valid normalized orientation.
func (h Heading) OK() bool {
	n := h.Real*h.Real + h.Imag*h.Imag
	if math.IsNaN(n) {
		return false
	}
	return math.Abs(n-1) <= HeadingNormTolerance
}

// Nlerp blends two headings along the shortest arc and renormalizes.
// t is clamped to [0, 1].
func Nlerp(a, b Heading, t float64) Heading {
	t = clamp01(t)
	// Antipodal encodings represent the same rotation; flip for short arc.
	if a.Real*b.Real+a.Imag*b.Imag < 0 {
		b.Real, b.Imag = -b.Real, -b.Imag
	}
	h := Heading{
		Real: a.Real + (b.Real-a.Real)*t,
		Imag: a.Imag + (b.Imag-a.Imag)*t,
	}
	n := math.Hypot(h.Real, h.Imag)
	if n == 0 {
		return a
	}
	h.Real /= n
	h.Imag /= n
	return h
}
