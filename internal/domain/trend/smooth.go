package trend

import "math"

// Sample is a point on a smoothed curve.
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Smooth interpolates points with a monotone cubic (Fritsch-Carlson), emitting
// perSegment samples between consecutive points plus the final point. The
// curve passes through every input point and never overshoots a monotone run.
func Smooth(points []Point, perSegment int) []Sample {
	n := len(points)
	if n == 0 {
		return nil
	}
	if n == 1 || perSegment < 1 {
		out := make([]Sample, n)
		for i, p := range points {
			out[i] = Sample{X: float64(p.Year), Y: p.Value}
		}
		return out
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		xs[i], ys[i] = float64(p.Year), p.Value
	}
	m := tangents(xs, ys)

	out := make([]Sample, 0, (n-1)*perSegment+1)
	for k := 0; k < n-1; k++ {
		h := xs[k+1] - xs[k]
		for s := 0; s < perSegment; s++ {
			t := float64(s) / float64(perSegment)
			out = append(out, Sample{
				X: xs[k] + t*h,
				Y: hermite(ys[k], ys[k+1], m[k]*h, m[k+1]*h, t),
			})
		}
	}
	return append(out, Sample{X: xs[n-1], Y: ys[n-1]})
}

func tangents(xs, ys []float64) []float64 {
	n := len(xs)
	d := make([]float64, n-1)
	for k := range d {
		h := xs[k+1] - xs[k]
		if h != 0 {
			d[k] = (ys[k+1] - ys[k]) / h
		}
	}

	m := make([]float64, n)
	m[0], m[n-1] = d[0], d[n-2]
	for k := 1; k < n-1; k++ {
		if d[k-1]*d[k] > 0 {
			m[k] = (d[k-1] + d[k]) / 2
		}
	}

	for k := range d {
		if d[k] == 0 {
			m[k], m[k+1] = 0, 0
			continue
		}
		a, b := m[k]/d[k], m[k+1]/d[k]
		if s := a*a + b*b; s > 9 {
			t := 3 / math.Sqrt(s)
			m[k] = t * a * d[k]
			m[k+1] = t * b * d[k]
		}
	}
	return m
}

func hermite(y0, y1, m0, m1, t float64) float64 {
	t2, t3 := t*t, t*t*t
	return (2*t3-3*t2+1)*y0 + (t3-2*t2+t)*m0 + (-2*t3+3*t2)*y1 + (t3-t2)*m1
}
