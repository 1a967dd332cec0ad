// Package export writes the current dashboard selection as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/internal/domain/trend"
)

// Sheet names.
const (
	CountriesSheet = "Countries"
	TrendSheet     = "Trend"
)

// ContentType is the MIME type of the written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Data is what gets exported: the filtered slice and the trend series on screen.
type Data struct {
	Year       int
	Region     string
	Rows       []model.Row
	TrendTitle string
	Trend      []trend.Point
}

// Filename suggests a download name for d.
func (d Data) Filename() string {
	return fmt.Sprintf("happiness-%d.xlsx", d.Year)
}

var countryHeader = []any{"Country", "Region", "Year", "Happiness Score", "GDP per Capita", "Latitude", "Longitude"}

// Write encodes d as an XLSX workbook with a countries sheet and a trend sheet.
func Write(w io.Writer, d Data) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", CountriesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := setRow(f, CountriesSheet, 1, countryHeader); err != nil {
		return err
	}
	for i, r := range d.Rows {
		vals := []any{r.Country, r.Region, r.Year, r.Score, r.GDP, r.Lat, r.Lon}
		if err := setRow(f, CountriesSheet, i+2, vals); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(CountriesSheet, "A1", "G1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	if _, err := f.NewSheet(TrendSheet); err != nil {
		return fmt.Errorf("add trend sheet: %w", err)
	}
	title := d.TrendTitle
	if title == "" {
		title = "Average happiness score"
	}
	if err := setRow(f, TrendSheet, 1, []any{title}); err != nil {
		return err
	}
	if err := setRow(f, TrendSheet, 2, []any{"Year", "Score"}); err != nil {
		return err
	}
	for i, p := range d.Trend {
		if err := setRow(f, TrendSheet, i+3, []any{p.Year, p.Value}); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(TrendSheet, "A1", "B2", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, vals []any) error {
	for col, v := range vals {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
