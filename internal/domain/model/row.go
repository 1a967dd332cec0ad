// Package model contains domain models passed between layers.
package model

// AllRegions is the region filter value that matches every row.
const AllRegions = "All"

// Row is one country in one year.
type Row struct {
	Country string  `json:"country"`
	Region  string  `json:"region"`
	Year    int     `json:"year"`
	Score   float64 `json:"score"`
	GDP     float64 `json:"gdp"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// HasLocation reports whether the row can be placed on the map.
// Zero stands for an absent coordinate, as in the source CSV.
func (r Row) HasLocation() bool {
	return r.Lat != 0 && r.Lon != 0
}

// Matches reports whether the row belongs to the (year, region) slice.
func (r Row) Matches(year int, region string) bool {
	return r.Year == year && (region == AllRegions || r.Region == region)
}

// Frame is an encoded dashboard view addressed to one session.
type Frame struct {
	SessionID string
	Seq       uint64
	Payload   []byte
}
