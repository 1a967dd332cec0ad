package service

import (
	"context"
	"sync"

	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var finland = []float64{7.406, 7.413, 7.469, 7.632, 7.769}

func fixtureDataset() *model.Dataset {
	var rows []model.Row
	for i, year := range []int{2015, 2016, 2017, 2018, 2019} {
		rows = append(rows,
			model.Row{Country: "Finland", Region: "Western Europe", Year: year, Score: finland[i], GDP: 1.29 + float64(i)*0.01, Lat: 64.0, Lon: 26.0},
			model.Row{Country: "Denmark", Region: "Western Europe", Year: year, Score: 7.5 + float64(i)*0.02, GDP: 1.32, Lat: 56.0, Lon: 10.0},
			model.Row{Country: "Rwanda", Region: "Sub-Saharan Africa", Year: year, Score: 3.4 + float64(i)*0.02, GDP: 0.22, Lat: -2.0, Lon: 30.0},
		)
	}
	// A region present only in one year.
	rows = append(rows, model.Row{Country: "Taiwan", Region: "Eastern Asia", Year: 2015, Score: 6.3, GDP: 1.29, Lat: 23.7, Lon: 121.0})
	ds, err := model.NewDataset(rows)
	if err != nil {
		panic(err)
	}
	return ds
}

// recorder captures published frames.
type recorder struct {
	mu     sync.Mutex
	frames []model.Frame
}

func (r *recorder) Publish(_ context.Context, f model.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}
