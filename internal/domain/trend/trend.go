// Package trend builds the time series shown in the trend pane.
package trend

import (
	"sort"

	"github.com/okian/happymap/internal/domain/model"
)

// Point is one year of a series.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Aggregate returns the mean score per year over rows, ordered by year.
func Aggregate(rows []model.Row) []Point {
	type acc struct {
		sum float64
		n   int
	}
	byYear := make(map[int]*acc)
	for _, r := range rows {
		a, ok := byYear[r.Year]
		if !ok {
			a = &acc{}
			byYear[r.Year] = a
		}
		a.sum += r.Score
		a.n++
	}

	out := make([]Point, 0, len(byYear))
	for y, a := range byYear {
		out = append(out, Point{Year: y, Value: a.sum / float64(a.n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Country returns the scores of one country ordered by year.
func Country(rows []model.Row, name string) []Point {
	out := make([]Point, 0)
	for _, r := range rows {
		if r.Country == name {
			out = append(out, Point{Year: r.Year, Value: r.Score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Max returns the largest value, or 0 for an empty series.
func Max(points []Point) float64 {
	var m float64
	for i, p := range points {
		if i == 0 || p.Value > m {
			m = p.Value
		}
	}
	return m
}

// YearRange returns the first and last year of an ordered series.
func YearRange(points []Point) (first, last int, ok bool) {
	if len(points) == 0 {
		return 0, 0, false
	}
	return points[0].Year, points[len(points)-1].Year, true
}
