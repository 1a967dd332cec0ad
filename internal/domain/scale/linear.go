// Package scale maps data values to pixels and colours.
package scale

import "math"

// eps absorbs float noise when snapping bounds to tick multiples.
const eps = 1e-9

// Extent returns the min and max of values. ok is false for an empty input.
func Extent(values []float64) (lo, hi float64, ok bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, true
}

// Linear maps the domain [D0, D1] onto the range [R0, R1].
type Linear struct {
	D0, D1 float64
	R0, R1 float64
}

// NewLinear builds a linear scale.
func NewLinear(d0, d1, r0, r1 float64) Linear {
	return Linear{D0: d0, D1: d1, R0: r0, R1: r1}
}

// Map projects v. A collapsed domain maps everything to the range midpoint.
func (s Linear) Map(v float64) float64 {
	span := s.D1 - s.D0
	t := 0.5
	if span != 0 {
		t = (v - s.D0) / span
	}
	return s.R0 + t*(s.R1-s.R0)
}

// Ticks returns about count round values inside the domain.
func (s Linear) Ticks(count int) []float64 {
	return Ticks(math.Min(s.D0, s.D1), math.Max(s.D0, s.D1), count)
}

// Ticks returns round tick values in [lo, hi] using 1-2-5 steps.
func Ticks(lo, hi float64, count int) []float64 {
	if count <= 0 || math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return nil
	}
	if lo == hi {
		return []float64{lo}
	}

	step := tickStep(lo, hi, count)
	if step <= 0 || math.IsInf(step, 0) {
		return nil
	}

	var out []float64
	if step >= 1 {
		for i := math.Ceil(lo/step - eps); i <= math.Floor(hi/step+eps); i++ {
			out = append(out, i*step)
		}
		return out
	}
	// Divide by the inverse step so values like 0.6 come out exact.
	inv := math.Round(1 / step)
	for i := math.Ceil(lo*inv - eps); i <= math.Floor(hi*inv+eps); i++ {
		out = append(out, i/inv)
	}
	return out
}

func tickStep(lo, hi float64, count int) float64 {
	raw := (hi - lo) / float64(count)
	power := math.Floor(math.Log10(raw))
	base := math.Pow(10, power)
	switch e := raw / base; {
	case e >= math.Sqrt(50):
		return base * 10
	case e >= math.Sqrt(10):
		return base * 5
	case e >= math.Sqrt(2):
		return base * 2
	default:
		return base
	}
}
