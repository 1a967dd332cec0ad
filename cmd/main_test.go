package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/happymap/internal/app"
	"github.com/okian/happymap/internal/config"
	"github.com/okian/happymap/pkg/logger"
)

const testData = "../data/world_happiness.csv"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestLoadDataset(t *testing.T) {
	convey.Convey("Given the bundled dataset", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.DataPath = testData

		convey.Convey("When it is loaded", func() {
			ds, err := loadDataset(ctx, cfg, logger.Get())

			convey.Convey("Then it spans 2015 to 2019", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ds.MinYear(), convey.ShouldEqual, 2015)
				convey.So(ds.MaxYear(), convey.ShouldEqual, 2019)
				row, ok := ds.Find("Finland", 2019)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(row.Score, convey.ShouldEqual, 7.769)
			})
		})

		convey.Convey("When the policy is unknown", func() {
			cfg.InvalidRows = "ignore"
			_, err := loadDataset(ctx, cfg, logger.Get())

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the file is missing", func() {
			cfg.DataPath = "does-not-exist.csv"
			_, err := loadDataset(ctx, cfg, logger.Get())

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestConfigFromEnv(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		_ = os.Setenv("HAPPYMAP_ADDR", ":8080")
		_ = os.Setenv("HAPPYMAP_FRAME_QUEUE_SIZE", "1000")
		_ = os.Setenv("HAPPYMAP_DELIVERY_WORKERS", "4")
		defer func() {
			_ = os.Unsetenv("HAPPYMAP_ADDR")
			_ = os.Unsetenv("HAPPYMAP_FRAME_QUEUE_SIZE")
			_ = os.Unsetenv("HAPPYMAP_DELIVERY_WORKERS")
		}()

		convey.Convey("Then configuration picks them up", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.FrameQueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.DeliveryWorkers, convey.ShouldEqual, 4)
		})
	})
}

func TestMux(t *testing.T) {
	convey.Convey("Given the full route table", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.DataPath = testData
		ds, err := loadDataset(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)

		svc := app.New(ds, app.WithWorkerCount(1))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop(ctx)
		mux := newMux(ctx, svc)

		convey.Convey("Then every surface answers", func() {
			for _, tc := range []struct {
				method, path string
				code         int
			}{
				{http.MethodGet, "/", http.StatusOK},
				{http.MethodGet, "/api-docs", http.StatusOK},
				{http.MethodGet, "/openapi.yaml", http.StatusOK},
				{http.MethodGet, "/api/controls", http.StatusOK},
				{http.MethodPost, "/api/sessions", http.StatusCreated},
				{http.MethodGet, "/healthz", http.StatusOK},
				{http.MethodGet, "/stats", http.StatusOK},
				{http.MethodGet, "/api/sessions/unknown", http.StatusNotFound},
			} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
				convey.So(w.Code, convey.ShouldEqual, tc.code)
			}
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop stops with its context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			stopped := false
			select {
			case <-done:
				stopped = true
			case <-time.After(time.Second):
			}
			convey.So(stopped, convey.ShouldBeTrue)
		})
	})
}
