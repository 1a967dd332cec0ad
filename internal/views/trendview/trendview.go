// Package trendview draws the yearly trend line, either the mean over every
// country or one country's history.
package trendview

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/internal/domain/scale"
	"github.com/okian/happymap/internal/domain/trend"
)

// Layout of the trend pane.
const (
	Width   = 440
	Height  = 240
	Margin  = 50
	Ticks   = 5
	Samples = 8
)

// Mode tells which series the pane shows.
type Mode string

// Modes.
const (
	ModeAggregate Mode = "aggregate"
	ModeCountry   Mode = "country"
)

var (
	aggregateStroke = drawing.ColorFromHex("4f83ff")
	countryStroke   = drawing.ColorFromHex("facc15")
	titleColor      = drawing.ColorFromHex("1e293b")
)

// View is a rendered trend chart.
type View struct {
	Mode    Mode          `json:"mode"`
	Country string        `json:"country,omitempty"`
	Title   string        `json:"title,omitempty"`
	Points  []trend.Point `json:"points"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	SVG     string        `json:"svg"`
}

// Title returns the heading shown in country mode.
func Title(country string) string {
	return "Trend " + country
}

// Render draws the aggregate series over all rows, or the series of country
// when it is non-empty. year is marked with a dot when the series has it.
// A country without rows yields a titled empty chart.
func Render(rows []model.Row, year int, country string) (View, error) {
	v := View{Mode: ModeAggregate, Width: Width, Height: Height}
	stroke := aggregateStroke
	if country == "" {
		v.Points = trend.Aggregate(rows)
	} else {
		v.Mode, v.Country, v.Title = ModeCountry, country, Title(country)
		v.Points = trend.Country(rows, country)
		stroke = countryStroke
	}

	var (
		svg string
		err error
	)
	if len(v.Points) == 0 {
		svg, err = renderEmpty(v.Title)
	} else {
		svg, err = renderSeries(v, year, stroke)
	}
	if err != nil {
		return View{}, fmt.Errorf("render trend: %w", err)
	}
	v.SVG = svg
	return v, nil
}

func renderSeries(v View, year int, stroke drawing.Color) (string, error) {
	first, last, _ := trend.YearRange(v.Points)
	xMin, xMax := float64(first), float64(last)
	if xMax <= xMin {
		xMin, xMax = xMin-0.5, xMax+0.5
	}
	yMax := trend.Max(v.Points)
	if yMax <= 0 {
		yMax = 1
	}

	curve := trend.Smooth(v.Points, Samples)
	xs := make([]float64, len(curve))
	ys := make([]float64, len(curve))
	for i, s := range curve {
		xs[i], ys[i] = s.X, s.Y
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "trend",
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: stroke, StrokeWidth: 2, DotWidth: dotWidth(len(v.Points)), DotColor: stroke},
		},
	}
	for _, p := range v.Points {
		if p.Year == year {
			series = append(series, chart.ContinuousSeries{
				Name:    "year",
				XValues: []float64{float64(p.Year)},
				YValues: []float64{p.Value},
				Style:   chart.Style{StrokeWidth: chart.Disabled, DotWidth: 4, DotColor: stroke},
			})
			break
		}
	}

	ch := chart.Chart{
		Title:      v.Title,
		TitleStyle: chart.Style{FontSize: 11, FontColor: titleColor},
		Width:      Width,
		Height:     Height,
		Background: chart.Style{Padding: chart.Box{Top: Margin / 2, Left: Margin, Right: Margin / 2, Bottom: Margin / 2}},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: xMin, Max: xMax},
			Ticks: yearTicks(first, last),
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
			Ticks: valueTicks(yMax),
		},
		Series: series,
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.SVG, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderEmpty draws a blank pane with an optional title.
func renderEmpty(title string) (string, error) {
	r, err := chart.SVG(Width, Height)
	if err != nil {
		return "", err
	}
	if title != "" {
		font, err := chart.GetDefaultFont()
		if err != nil {
			return "", err
		}
		r.SetFont(font)
		r.SetFontSize(11)
		r.SetFontColor(titleColor)
		r.Text(title, Margin, Margin/2)
	}
	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// A lone point has no line to show, so it gets a dot.
func dotWidth(points int) float64 {
	if points == 1 {
		return 4
	}
	return 0
}

func yearTicks(first, last int) []chart.Tick {
	var out []chart.Tick
	for _, v := range scale.Ticks(float64(first), float64(last), Ticks) {
		if v != math.Trunc(v) {
			continue
		}
		out = append(out, chart.Tick{Value: v, Label: strconv.Itoa(int(v))})
	}
	return out
}

func valueTicks(max float64) []chart.Tick {
	vals := scale.Ticks(0, max, Ticks)
	out := make([]chart.Tick, 0, len(vals))
	for _, v := range vals {
		out = append(out, chart.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', -1, 64)})
	}
	return out
}
