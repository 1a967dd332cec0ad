package scale

import (
	"fmt"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ylGnBu is the nine-class yellow-green-blue scheme, light to dark.
var ylGnBu = []string{
	"ffffd9", "edf8b1", "c7e9b4", "7fcdbb", "41b6c4",
	"1d91c0", "225ea8", "253494", "081d58",
}

// Neutral is used when there is no domain to colour against.
var Neutral = drawing.ColorFromHex("94a3b8")

// Sequential colours values by interpolating a multi-stop ramp over a domain.
type Sequential struct {
	lo, hi float64
	ok     bool
	stops  []drawing.Color
}

// NewYlGnBu builds a YlGnBu scale over [lo, hi].
func NewYlGnBu(lo, hi float64) Sequential {
	return Sequential{lo: lo, hi: hi, ok: true, stops: parseStops(ylGnBu)}
}

// NewYlGnBuFor builds the scale over the extent of values. An empty input
// yields a scale that always returns Neutral.
func NewYlGnBuFor(values []float64) Sequential {
	lo, hi, ok := Extent(values)
	s := NewYlGnBu(lo, hi)
	s.ok = ok
	return s
}

// Color returns the colour for v. Values outside the domain are clamped and
// a collapsed domain maps to the midpoint of the ramp.
func (s Sequential) Color(v float64) drawing.Color {
	if !s.ok || len(s.stops) == 0 {
		return Neutral
	}
	t := 0.5
	if s.hi != s.lo {
		t = (v - s.lo) / (s.hi - s.lo)
	}
	t = min(max(t, 0), 1)

	seg := t * float64(len(s.stops)-1)
	i := int(seg)
	if i >= len(s.stops)-1 {
		return s.stops[len(s.stops)-1]
	}
	return lerp(s.stops[i], s.stops[i+1], seg-float64(i))
}

// Hex formats c as #rrggbb.
func Hex(c drawing.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func parseStops(hex []string) []drawing.Color {
	out := make([]drawing.Color, len(hex))
	for i, h := range hex {
		out[i] = drawing.ColorFromHex(h)
	}
	return out
}

func lerp(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}
