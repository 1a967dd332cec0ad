// Package scatter draws GDP against happiness score for the filtered slice.
package scatter

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/internal/domain/scale"
)

// Axis titles.
const (
	XTitle = "GDP per Capita"
	YTitle = "Happiness Score"
)

var (
	pointFill = drawing.Color{R: 0x4f, G: 0x83, B: 0xff, A: 204}
	axisColor = drawing.ColorFromHex("475569")
	textColor = drawing.ColorFromHex("1e293b")
)

// Point is a drawn circle in SVG pixel space, used by the page to hit-test
// hover and click.
type Point struct {
	Country string  `json:"country"`
	Year    int     `json:"year"`
	Score   float64 `json:"score"`
	GDP     float64 `json:"gdp"`
	CX      int     `json:"cx"`
	CY      int     `json:"cy"`
	R       float64 `json:"r"`
	Tooltip string  `json:"tooltip"`
}

// View is a rendered scatter plot.
type View struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	SVG    string  `json:"svg"`
	Points []Point `json:"points"`
}

// Render redraws the plot for rows. Both axes span the extents of rows; an
// empty slice gets axes over [0, 1] and no points.
func Render(rows []model.Row, opts ...Option) (View, error) {
	c := config{
		width:  DefaultWidth,
		height: DefaultHeight,
		margin: DefaultMargin,
		radius: DefaultRadius,
		ticks:  DefaultTicks,
	}
	for _, opt := range opts {
		opt(&c)
	}

	gdps := make([]float64, len(rows))
	scores := make([]float64, len(rows))
	for i, r := range rows {
		gdps[i], scores[i] = r.GDP, r.Score
	}
	left, right := float64(c.margin), float64(c.width-c.margin)
	top, bottom := float64(c.margin), float64(c.height-c.margin)
	gLo, gHi := extentOr(gdps)
	sLo, sHi := extentOr(scores)
	x := scale.NewLinear(gLo, gHi, left, right)
	y := scale.NewLinear(sLo, sHi, bottom, top)

	r, err := chart.SVG(c.width, c.height)
	if err != nil {
		return View{}, fmt.Errorf("scatter renderer: %w", err)
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return View{}, fmt.Errorf("scatter font: %w", err)
	}
	r.SetFont(font)
	r.SetFontSize(10)
	r.SetFontColor(textColor)

	drawAxes(r, c, x, y)

	points := make([]Point, 0, len(rows))
	r.SetStrokeWidth(0)
	r.SetStrokeColor(drawing.ColorTransparent)
	r.SetFillColor(pointFill)
	for _, row := range rows {
		p := Point{
			Country: row.Country,
			Year:    row.Year,
			Score:   row.Score,
			GDP:     row.GDP,
			CX:      int(math.Round(x.Map(row.GDP))),
			CY:      int(math.Round(y.Map(row.Score))),
			R:       c.radius,
			Tooltip: fmt.Sprintf("%s: %.2f", row.Country, row.Score),
		}
		r.Circle(p.R, p.CX, p.CY)
		r.Fill()
		points = append(points, p)
	}

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return View{}, fmt.Errorf("scatter save: %w", err)
	}
	return View{Width: c.width, Height: c.height, SVG: buf.String(), Points: points}, nil
}

// Hit returns the topmost point within its radius of (px, py).
func (v View) Hit(px, py int) (Point, bool) {
	for i := len(v.Points) - 1; i >= 0; i-- {
		p := v.Points[i]
		dx, dy := float64(px-p.CX), float64(py-p.CY)
		if dx*dx+dy*dy <= p.R*p.R {
			return p, true
		}
	}
	return Point{}, false
}

// extentOr returns the extent of values, or [0, 1] when there are none.
func extentOr(values []float64) (float64, float64) {
	lo, hi, ok := scale.Extent(values)
	if !ok {
		return 0, 1
	}
	return lo, hi
}

func drawAxes(r chart.Renderer, c config, x, y scale.Linear) {
	left, bottom := c.margin, c.height-c.margin
	r.SetStrokeColor(axisColor)
	r.SetStrokeWidth(1)

	r.MoveTo(left, bottom)
	r.LineTo(c.width-c.margin, bottom)
	r.Stroke()
	r.MoveTo(left, c.margin)
	r.LineTo(left, bottom)
	r.Stroke()

	for _, v := range x.Ticks(c.ticks) {
		px := int(math.Round(x.Map(v)))
		r.MoveTo(px, bottom)
		r.LineTo(px, bottom+6)
		r.Stroke()
		label := formatTick(v)
		w := r.MeasureText(label).Width()
		r.Text(label, px-w/2, bottom+18)
	}
	for _, v := range y.Ticks(c.ticks) {
		py := int(math.Round(y.Map(v)))
		r.MoveTo(left-6, py)
		r.LineTo(left, py)
		r.Stroke()
		label := formatTick(v)
		w := r.MeasureText(label).Width()
		r.Text(label, left-9-w, py+3)
	}

	r.SetFontSize(12)
	w := r.MeasureText(XTitle).Width()
	r.Text(XTitle, c.width/2-w/2, bottom+40)

	w = r.MeasureText(YTitle).Width()
	r.SetTextRotation(-math.Pi / 2)
	r.Text(YTitle, left-35, c.height/2+w/2)
	r.ClearTextRotation()
	r.SetFontSize(10)
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
