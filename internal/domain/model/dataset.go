package model

import (
	"errors"
	"slices"
	"sort"
)

// ErrEmptyDataset is returned when a dataset would hold no rows.
var ErrEmptyDataset = errors.New("dataset has no rows")

// Dataset is the immutable collection loaded at startup together with the
// sets derived from it. Accessors return copies.
type Dataset struct {
	rows    []Row
	years   []int
	regions []string
}

// NewDataset takes ownership of rows and derives years and regions.
// Regions keep first-seen order; empty regions are not offered.
func NewDataset(rows []Row) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	seenYear := make(map[int]struct{})
	seenRegion := make(map[string]struct{})
	d := &Dataset{rows: rows, regions: []string{AllRegions}}
	for _, r := range rows {
		if _, ok := seenYear[r.Year]; !ok {
			seenYear[r.Year] = struct{}{}
			d.years = append(d.years, r.Year)
		}
		if r.Region == "" || r.Region == AllRegions {
			continue
		}
		if _, ok := seenRegion[r.Region]; !ok {
			seenRegion[r.Region] = struct{}{}
			d.regions = append(d.regions, r.Region)
		}
	}
	sort.Ints(d.years)
	return d, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Rows returns a copy of every row in load order.
func (d *Dataset) Rows() []Row { return slices.Clone(d.rows) }

// Years returns the distinct years ascending.
func (d *Dataset) Years() []int { return slices.Clone(d.years) }

// Regions returns "All" followed by the distinct regions.
func (d *Dataset) Regions() []string { return slices.Clone(d.regions) }

// MinYear is the first slider position.
func (d *Dataset) MinYear() int { return d.years[0] }

// MaxYear is the last slider position and the initial year.
func (d *Dataset) MaxYear() int { return d.years[len(d.years)-1] }

// HasRegion reports whether region is a valid filter value.
func (d *Dataset) HasRegion(region string) bool {
	return slices.Contains(d.regions, region)
}

// ClampYear bounds year to [MinYear, MaxYear].
func (d *Dataset) ClampYear(year int) int {
	return min(max(year, d.MinYear()), d.MaxYear())
}

// NextYear advances by one, wrapping from MaxYear back to MinYear.
func (d *Dataset) NextYear(year int) int {
	if year >= d.MaxYear() {
		return d.MinYear()
	}
	return year + 1
}

// Filter returns the rows of year in region ("All" matches every region).
func (d *Dataset) Filter(year int, region string) []Row {
	out := make([]Row, 0)
	for _, r := range d.rows {
		if r.Matches(year, region) {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the row of country in year.
func (d *Dataset) Find(country string, year int) (Row, bool) {
	for _, r := range d.rows {
		if r.Country == country && r.Year == year {
			return r, true
		}
	}
	return Row{}, false
}
