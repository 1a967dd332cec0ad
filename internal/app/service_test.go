package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/happymap/internal/app"
	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func dataset() *model.Dataset {
	ds, err := model.NewDataset([]model.Row{
		{Country: "Finland", Region: "Western Europe", Year: 2018, Score: 7.63, GDP: 1.30, Lat: 64, Lon: 26},
		{Country: "Finland", Region: "Western Europe", Year: 2019, Score: 7.77, GDP: 1.34, Lat: 64, Lon: 26},
		{Country: "Rwanda", Region: "Sub-Saharan Africa", Year: 2019, Score: 3.33, GDP: 0.36, Lat: -2, Lon: 30},
	})
	if err != nil {
		panic(err)
	}
	return ds
}

func startService(opts ...service.Option) *service.Service {
	svc := service.New(dataset(), append([]service.Option{service.WithWorkerCount(2)}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(dataset())
		ctx := context.Background()

		Convey("Then sessions cannot be opened before Start", func() {
			_, _, err := svc.NewSession(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)

			svc.Stop(ctx)
			svc.Stop(ctx)

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Controls(t *testing.T) {
	Convey("Given a service with custom speeds", t, func() {
		svc := service.New(dataset(), service.WithSpeeds(250*time.Millisecond, []time.Duration{250 * time.Millisecond, time.Second}))

		Convey("Then the controls describe the dataset", func() {
			c := svc.Controls()
			So(c.MinYear, ShouldEqual, 2018)
			So(c.MaxYear, ShouldEqual, 2019)
			So(c.Years, ShouldResemble, []int{2018, 2019})
			So(c.Regions, ShouldResemble, []string{model.AllRegions, "Western Europe", "Sub-Saharan Africa"})
			So(c.SpeedsMs, ShouldResemble, []int64{250, 1000})
			So(c.DefaultSpeedMs, ShouldEqual, 250)
		})
	})
}

func TestService_Sessions(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startService(service.WithMaxSessions(2))
		ctx := context.Background()
		defer svc.Stop(ctx)

		Convey("When a session is opened", func() {
			d, v, err := svc.NewSession(ctx)
			So(err, ShouldBeNil)

			Convey("Then its first frame is the last year with every region", func() {
				So(v.Session, ShouldEqual, d.ID())
				So(v.Year, ShouldEqual, 2019)
				So(v.Count, ShouldEqual, 2)
				So(v.Trigger, ShouldEqual, service.TriggerSession)
			})

			Convey("And it can be looked up and closed", func() {
				got, err := svc.Session(ctx, d.ID())
				So(err, ShouldBeNil)
				So(got, ShouldEqual, d)

				So(svc.CloseSession(ctx, d.ID()), ShouldBeNil)
				_, err = svc.Session(ctx, d.ID())
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				So(errors.Is(svc.CloseSession(ctx, d.ID()), service.ErrSessionNotFound), ShouldBeTrue)
			})
		})

		Convey("When more sessions are opened than allowed", func() {
			_, _, err := svc.NewSession(ctx)
			So(err, ShouldBeNil)
			_, _, err = svc.NewSession(ctx)
			So(err, ShouldBeNil)
			_, _, err = svc.NewSession(ctx)

			Convey("Then the extra one is refused", func() {
				So(errors.Is(err, service.ErrCapacity), ShouldBeTrue)
				So(svc.GetStats()["sessions"], ShouldEqual, 2)
			})
		})
	})
}

func TestService_Subscribe(t *testing.T) {
	Convey("Given a session with a WebSocket subscriber", t, func() {
		svc := startService()
		ctx := context.Background()
		defer svc.Stop(ctx)

		d, _, err := svc.NewSession(ctx)
		So(err, ShouldBeNil)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = svc.Subscribe(w, r, d.ID())
		}))
		defer srv.Close()

		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
		So(err, ShouldBeNil)
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		Convey("Then the current frame arrives first", func() {
			_, msg, err := conn.ReadMessage()
			So(err, ShouldBeNil)
			So(string(msg), ShouldContainSubstring, `"year":2019`)

			Convey("And later redraws are pushed", func() {
				_, err := d.UpdateAll(ctx, 2018)
				So(err, ShouldBeNil)

				_, msg, err := conn.ReadMessage()
				So(err, ShouldBeNil)
				So(string(msg), ShouldContainSubstring, `"year":2018`)
				So(string(msg), ShouldContainSubstring, `"trigger":"year"`)
			})
		})
	})
}
