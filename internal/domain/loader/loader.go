// Package loader reads the happiness CSV into an immutable dataset.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/okian/happymap/internal/domain/model"
)

// Canonical column names.
const (
	colCountry = "country"
	colRegion  = "region"
	colYear    = "year"
	colScore   = "score"
	colGDP     = "gdp"
	colLat     = "lat"
	colLon     = "lon"
)

// aliases maps normalised header spellings found in yearly happiness
// reports to canonical columns.
var aliases = map[string]string{
	"country":                  colCountry,
	"country name":             colCountry,
	"country or region":        colCountry,
	"region":                   colRegion,
	"year":                     colYear,
	"score":                    colScore,
	"happiness score":          colScore,
	"happiness score (0-10)":   colScore,
	"ladder score":             colScore,
	"gdp":                      colGDP,
	"economy (gdp per capita)": colGDP,
	"gdp per capita":           colGDP,
	"logged gdp per capita":    colGDP,
	"lat":                      colLat,
	"latitude":                 colLat,
	"lon":                      colLon,
	"lng":                      colLon,
	"longitude":                colLon,
}

var requiredColumns = []string{colCountry, colYear, colScore}

// Report summarises what the loader did to the raw rows.
type Report struct {
	Rows       int // rows kept in the dataset
	Coerced    int // rows with at least one field coerced to zero
	Skipped    int // rows dropped by PolicySkip
	Duplicates int // exact duplicates dropped
	Unnamed    int // rows dropped for an empty country
	Backfilled int // rows whose empty region was filled in
}

type loader struct {
	policy   Policy
	backfill bool
}

// Load opens path and parses it.
func Load(ctx context.Context, path string, opts ...Option) (*model.Dataset, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer f.Close()

	return Parse(ctx, f, opts...)
}

// Parse reads CSV records from r. The header row is required.
func Parse(ctx context.Context, r io.Reader, opts ...Option) (*model.Dataset, Report, error) {
	l := &loader{policy: PolicyCoerce, backfill: true}
	for _, opt := range opts {
		opt(l)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, Report{}, fmt.Errorf("%w: header: %w", ErrRead, err)
	}
	idx := indexHeader(header)
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return nil, Report{}, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	var (
		rep  Report
		rows []model.Row
		seen = make(map[model.Row]struct{})
	)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, Report{}, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Report{}, fmt.Errorf("%w: line %d: %w", ErrRead, line, err)
		}

		row, bad := l.decode(rec, idx)
		if row.Country == "" {
			rep.Unnamed++
			continue
		}
		if bad {
			if l.policy == PolicySkip {
				rep.Skipped++
				continue
			}
			rep.Coerced++
		}
		if _, dup := seen[row]; dup {
			rep.Duplicates++
			continue
		}
		seen[row] = struct{}{}
		rows = append(rows, row)
	}

	if l.backfill {
		rep.Backfilled = backfillRegions(rows)
	}

	ds, err := model.NewDataset(rows)
	if err != nil {
		return nil, Report{}, err
	}
	rep.Rows = ds.Len()
	return ds, rep, nil
}

// indexHeader maps canonical column names to record positions. The first
// matching alias wins.
func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		canon, ok := aliases[name]
		if !ok {
			continue
		}
		if _, dup := idx[canon]; !dup {
			idx[canon] = i
		}
	}
	return idx
}

// decode builds a row; bad reports a present but malformed numeric field.
// Missing optional columns and empty cells coerce to zero without being bad.
func (l *loader) decode(rec []string, idx map[string]int) (model.Row, bool) {
	field := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var bad bool
	num := func(col string) float64 {
		s := field(col)
		if s == "" {
			return 0
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			bad = true
			return 0
		}
		return v
	}

	row := model.Row{
		Country: field(colCountry),
		Region:  field(colRegion),
		Score:   num(colScore),
		GDP:     num(colGDP),
		Lat:     num(colLat),
		Lon:     num(colLon),
	}

	// Years like "2019.0" appear in exported spreadsheets.
	if s := field(colYear); s != "" {
		y, err := strconv.ParseFloat(s, 64)
		if err != nil || y != math.Trunc(y) {
			bad = true
		} else {
			row.Year = int(y)
		}
	} else {
		bad = true
	}
	return row, bad
}

// backfillRegions copies a country's region into its rows that lack one.
func backfillRegions(rows []model.Row) int {
	known := make(map[string]string)
	for _, r := range rows {
		if r.Region != "" {
			if _, ok := known[r.Country]; !ok {
				known[r.Country] = r.Region
			}
		}
	}
	n := 0
	for i := range rows {
		if rows[i].Region != "" {
			continue
		}
		if region, ok := known[rows[i].Country]; ok {
			rows[i].Region = region
			n++
		}
	}
	return n
}
