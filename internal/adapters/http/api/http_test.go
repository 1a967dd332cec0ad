package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/happymap/internal/adapters/http/api"
	service "github.com/okian/happymap/internal/app"
	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/internal/export"
	"github.com/okian/happymap/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(opts ...service.Option) (*http.ServeMux, *service.Service) {
	ds, err := model.NewDataset([]model.Row{
		{Country: "Finland", Region: "Western Europe", Year: 2018, Score: 7.63, GDP: 1.30, Lat: 64, Lon: 26},
		{Country: "Finland", Region: "Western Europe", Year: 2019, Score: 7.77, GDP: 1.34, Lat: 64, Lon: 26},
		{Country: "Rwanda", Region: "Sub-Saharan Africa", Year: 2019, Score: 3.33, GDP: 0.36, Lat: -2, Lon: 30},
	})
	if err != nil {
		panic(err)
	}
	svc := service.New(ds, append([]service.Option{service.WithWorkerCount(1)}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return mux, svc
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func openSession(mux http.Handler) string {
	w := do(mux, http.MethodPost, "/api/sessions", "")
	So(w.Code, ShouldEqual, http.StatusCreated)
	var resp struct {
		ID string `json:"id"`
	}
	So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
	return resp.ID
}

func decodeView(w *httptest.ResponseRecorder) service.View {
	var v service.View
	So(json.NewDecoder(w.Body).Decode(&v), ShouldBeNil)
	return v
}

func errorCode(w *httptest.ResponseRecorder) string {
	var e struct {
		Code string `json:"code"`
	}
	So(json.NewDecoder(w.Body).Decode(&e), ShouldBeNil)
	return e.Code
}

func TestControls(t *testing.T) {
	Convey("Given the API", t, func() {
		mux, svc := newMux()
		defer svc.Stop(context.Background())

		Convey("When the controls are requested", func() {
			w := do(mux, http.MethodGet, "/api/controls", "")

			Convey("Then they describe the dataset", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var c service.Controls
				So(json.NewDecoder(w.Body).Decode(&c), ShouldBeNil)
				So(c.MinYear, ShouldEqual, 2018)
				So(c.MaxYear, ShouldEqual, 2019)
				So(c.Regions[0], ShouldEqual, model.AllRegions)
				So(c.SpeedsMs, ShouldResemble, []int64{500, 1000, 1500, 2000})
				So(c.DefaultSpeedMs, ShouldEqual, 1000)
			})
		})
	})
}

func TestSessionLifecycle(t *testing.T) {
	Convey("Given an open session", t, func() {
		mux, svc := newMux()
		defer svc.Stop(context.Background())
		id := openSession(mux)
		base := "/api/sessions/" + id

		Convey("Then its current frame is available", func() {
			w := do(mux, http.MethodGet, base, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			v := decodeView(w)
			So(v.Year, ShouldEqual, 2019)
			So(v.Status, ShouldEqual, "Showing 2 countries for year 2019")
		})

		Convey("When the year is changed", func() {
			w := do(mux, http.MethodPost, base+"/year", `{"year":2018}`)

			Convey("Then the new frame is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				v := decodeView(w)
				So(v.Year, ShouldEqual, 2018)
				So(v.Count, ShouldEqual, 1)
			})
		})

		Convey("When the body is malformed", func() {
			So(errorCode(do(mux, http.MethodPost, base+"/year", `{"year":`)), ShouldEqual, "bad_request")
			So(errorCode(do(mux, http.MethodPost, base+"/year", `{}`)), ShouldEqual, "bad_request")
			So(errorCode(do(mux, http.MethodPost, base+"/speed", `{"speed_ms":0}`)), ShouldEqual, "bad_request")
		})

		Convey("When the region is changed", func() {
			w := do(mux, http.MethodPost, base+"/region", `{"region":"Western Europe"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeView(w).Count, ShouldEqual, 1)

			w = do(mux, http.MethodPost, base+"/region", `{"region":"Atlantis"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(errorCode(w), ShouldEqual, "unknown_region")
		})

		Convey("When the speed is changed", func() {
			w := do(mux, http.MethodPost, base+"/speed", `{"speed_ms":500}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeView(w).SpeedMs, ShouldEqual, 500)

			w = do(mux, http.MethodPost, base+"/speed", `{"speed_ms":750}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(errorCode(w), ShouldEqual, "unknown_speed")
		})

		Convey("When playback is toggled and reset", func() {
			w := do(mux, http.MethodPost, base+"/play", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeView(w).Playing, ShouldBeTrue)

			w = do(mux, http.MethodPost, base+"/reset", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			v := decodeView(w)
			So(v.Playing, ShouldBeFalse)
			So(v.Year, ShouldEqual, 2019)
			So(v.Region, ShouldEqual, model.AllRegions)
		})

		Convey("When a country is selected", func() {
			w := do(mux, http.MethodPost, base+"/select", `{"country":"Finland","source":"map"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			v := decodeView(w)
			So(v.Trend.Title, ShouldEqual, "Trend Finland")
			So(v.Info.ISO2, ShouldEqual, "FI")

			w = do(mux, http.MethodPost, base+"/select", `{"country":"Narnia","source":"map"}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "not_found")

			w = do(mux, http.MethodPost, base+"/select", `{"country":"Finland","source":"table"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the slice is exported", func() {
			w := do(mux, http.MethodGet, base+"/export.xlsx", "")

			Convey("Then a spreadsheet is attached", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, export.ContentType)
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "happiness-2019.xlsx")
				So(w.Body.Len(), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the session is deleted", func() {
			So(do(mux, http.MethodDelete, base, "").Code, ShouldEqual, http.StatusNoContent)

			Convey("Then it is gone", func() {
				w := do(mux, http.MethodGet, base, "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "session_not_found")
				So(do(mux, http.MethodDelete, base, "").Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestSessionCapacity(t *testing.T) {
	Convey("Given a service allowing one session", t, func() {
		mux, svc := newMux(service.WithMaxSessions(1))
		defer svc.Stop(context.Background())
		openSession(mux)

		Convey("Then a second session is refused", func() {
			w := do(mux, http.MethodPost, "/api/sessions", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(errorCode(w), ShouldEqual, "capacity")
		})
	})
}

func TestWebSocket(t *testing.T) {
	Convey("Given a session served over a real listener", t, func() {
		mux, svc := newMux()
		defer svc.Stop(context.Background())
		id := openSession(mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()
		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/ws"

		Convey("When a client subscribes", func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			So(err, ShouldBeNil)
			defer conn.Close()
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

			Convey("Then it receives the current frame", func() {
				var v service.View
				So(conn.ReadJSON(&v), ShouldBeNil)
				So(v.Session, ShouldEqual, id)
				So(v.Year, ShouldEqual, 2019)
			})
		})

		Convey("When the session does not exist", func() {
			_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/sessions/nope/ws", nil)

			Convey("Then the upgrade is refused with 404", func() {
				So(err, ShouldNotBeNil)
				So(resp, ShouldNotBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	Convey("Given the API", t, func() {
		mux, svc := newMux()
		defer svc.Stop(context.Background())

		Convey("Then /healthz and /metrics expose the registry", func() {
			for _, path := range []string{"/healthz", "/metrics"} {
				w := do(mux, http.MethodGet, path, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "happymap_dashboard_")
			}
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		handler := api.NewStatsHandler(&mockStatsProvider{
			stats: map[string]interface{}{"sessions": 3, "wsClients": 1},
		})

		Convey("When handling a GET", func() {
			w := httptest.NewRecorder()
			handler.HandleStats(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then it returns the stats", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var response map[string]interface{}
				So(json.NewDecoder(w.Body).Decode(&response), ShouldBeNil)
				So(response["sessions"], ShouldEqual, 3)
				So(response["wsClients"], ShouldEqual, 1)
			})
		})

		Convey("When handling a POST", func() {
			w := httptest.NewRecorder()
			handler.HandleStats(w, httptest.NewRequest(http.MethodPost, "/stats", nil))

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}
