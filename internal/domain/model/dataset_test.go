package model_test

import (
	"errors"
	"testing"

	"github.com/okian/happymap/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleRows() []model.Row {
	return []model.Row{
		{Country: "Finland", Region: "Western Europe", Year: 2019, Score: 7.77, GDP: 1.34, Lat: 61.9, Lon: 25.7},
		{Country: "Finland", Region: "Western Europe", Year: 2018, Score: 7.63, GDP: 1.30, Lat: 61.9, Lon: 25.7},
		{Country: "Togo", Region: "Sub-Saharan Africa", Year: 2019, Score: 4.09, GDP: 0.27, Lat: 8.6, Lon: 0.8},
		{Country: "Togo", Region: "Sub-Saharan Africa", Year: 2017, Score: 3.49, GDP: 0.30, Lat: 8.6, Lon: 0.8},
		{Country: "Nowhere", Region: "", Year: 2018, Score: 5.0},
	}
}

func TestNewDataset(t *testing.T) {
	Convey("Given rows spanning several years and regions", t, func() {
		ds, err := model.NewDataset(sampleRows())
		So(err, ShouldBeNil)

		Convey("Then years are distinct and ascending", func() {
			So(ds.Years(), ShouldResemble, []int{2017, 2018, 2019})
			So(ds.MinYear(), ShouldEqual, 2017)
			So(ds.MaxYear(), ShouldEqual, 2019)
		})

		Convey("Then regions start with All and skip empty regions", func() {
			So(ds.Regions(), ShouldResemble, []string{"All", "Western Europe", "Sub-Saharan Africa"})
			So(ds.HasRegion("All"), ShouldBeTrue)
			So(ds.HasRegion("Atlantis"), ShouldBeFalse)
		})

		Convey("Then accessors return copies", func() {
			years := ds.Years()
			years[0] = 1900
			So(ds.MinYear(), ShouldEqual, 2017)
			rows := ds.Rows()
			rows[0].Score = 0
			So(ds.Rows()[0].Score, ShouldEqual, 7.77)
		})
	})

	Convey("Given no rows", t, func() {
		_, err := model.NewDataset(nil)

		Convey("Then construction fails", func() {
			So(errors.Is(err, model.ErrEmptyDataset), ShouldBeTrue)
		})
	})
}

func TestDatasetFilter(t *testing.T) {
	Convey("Given a dataset", t, func() {
		ds, err := model.NewDataset(sampleRows())
		So(err, ShouldBeNil)

		Convey("Every filtered row matches year and region and no match is missed", func() {
			for _, year := range []int{2016, 2017, 2018, 2019} {
				for _, region := range ds.Regions() {
					got := ds.Filter(year, region)
					want := 0
					for _, r := range ds.Rows() {
						if r.Year == year && (region == "All" || r.Region == region) {
							want++
						}
					}
					So(len(got), ShouldEqual, want)
					for _, r := range got {
						So(r.Matches(year, region), ShouldBeTrue)
					}
				}
			}
		})

		Convey("A region without rows in the year yields an empty, non-nil slice", func() {
			got := ds.Filter(2018, "Sub-Saharan Africa")
			So(got, ShouldNotBeNil)
			So(got, ShouldBeEmpty)
		})

		Convey("Find locates a country-year row", func() {
			r, ok := ds.Find("Togo", 2017)
			So(ok, ShouldBeTrue)
			So(r.Score, ShouldEqual, 3.49)
			_, ok = ds.Find("Togo", 2018)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestDatasetYearStepping(t *testing.T) {
	Convey("Given a dataset covering 2017-2019", t, func() {
		ds, err := model.NewDataset(sampleRows())
		So(err, ShouldBeNil)

		Convey("NextYear advances by one and wraps at the maximum", func() {
			So(ds.NextYear(2017), ShouldEqual, 2018)
			So(ds.NextYear(2018), ShouldEqual, 2019)
			So(ds.NextYear(2019), ShouldEqual, 2017)
		})

		Convey("ClampYear bounds the slider", func() {
			So(ds.ClampYear(1990), ShouldEqual, 2017)
			So(ds.ClampYear(2030), ShouldEqual, 2019)
			So(ds.ClampYear(2018), ShouldEqual, 2018)
		})
	})
}

func TestRowHasLocation(t *testing.T) {
	Convey("Rows with a zero coordinate are not placeable", t, func() {
		So(model.Row{Lat: 1, Lon: 1}.HasLocation(), ShouldBeTrue)
		So(model.Row{Lat: 0, Lon: 1}.HasLocation(), ShouldBeFalse)
		So(model.Row{Lat: 1, Lon: 0}.HasLocation(), ShouldBeFalse)
	})
}
