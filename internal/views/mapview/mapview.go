// Package mapview renders the filtered slice as GeoJSON circle markers.
package mapview

import (
	"fmt"

	geojson "github.com/paulmach/go.geojson"

	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/internal/domain/scale"
)

// Marker styles. Property names follow the page's Leaflet path options.
const (
	Radius      = 6.0
	Weight      = 0.8
	Stroke      = "#1e293b"
	FillOpacity = 0.85

	HoverRadius = 8.0
	HoverWeight = 1.2
	HoverStroke = "#0f172a"

	DimOpacity = 0.4

	SelectedRadius = 9.0
	SelectedWeight = 2.0
	SelectedStroke = "#facc15"

	FocusZoom = 4
)

// Focus is where the map flies after a marker is selected.
type Focus struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

// Render builds one point feature per located row, coloured by score over
// the extent of rows. Rows without coordinates are skipped.
func Render(rows []model.Row) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	scores := make([]float64, len(rows))
	for i, r := range rows {
		scores[i] = r.Score
	}
	color := scale.NewYlGnBuFor(scores)

	for _, r := range rows {
		if !r.HasLocation() {
			continue
		}
		f := geojson.NewPointFeature([]float64{r.Lon, r.Lat})
		f.SetProperty("country", r.Country)
		f.SetProperty("region", r.Region)
		f.SetProperty("year", r.Year)
		f.SetProperty("score", r.Score)
		f.SetProperty("gdp", r.GDP)
		f.SetProperty("tooltip", fmt.Sprintf("%s · score %.2f", r.Country, r.Score))
		f.SetProperty("fill", scale.Hex(color.Color(r.Score)))
		f.SetProperty("radius", Radius)
		f.SetProperty("weight", Weight)
		f.SetProperty("color", Stroke)
		f.SetProperty("fill_opacity", FillOpacity)
		f.SetProperty("opacity", 1.0)
		f.SetProperty("hover_radius", HoverRadius)
		f.SetProperty("hover_weight", HoverWeight)
		f.SetProperty("hover_color", HoverStroke)
		fc.AddFeature(f)
	}
	return fc
}

// Select dims every marker and emphasises the first marker of country.
// It reports false and leaves fc untouched when no marker matches.
func Select(fc *geojson.FeatureCollection, country string) (Focus, bool) {
	var chosen *geojson.Feature
	for _, f := range fc.Features {
		if name, err := f.PropertyString("country"); err == nil && name == country {
			chosen = f
			break
		}
	}
	if chosen == nil {
		return Focus{}, false
	}

	for _, f := range fc.Features {
		f.SetProperty("opacity", DimOpacity)
		f.SetProperty("fill_opacity", DimOpacity)
	}
	chosen.SetProperty("radius", SelectedRadius)
	chosen.SetProperty("fill_opacity", 1.0)
	chosen.SetProperty("color", SelectedStroke)
	chosen.SetProperty("weight", SelectedWeight)
	chosen.SetProperty("opacity", 1.0)
	chosen.SetProperty("selected", true)

	pt := chosen.Geometry.Point
	return Focus{Lat: pt[1], Lon: pt[0], Zoom: FocusZoom}, true
}
