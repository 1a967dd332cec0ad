package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a registered site", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		Convey("When the root is requested", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			Convey("Then the dashboard page is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(w.Header().Get("Cache-Control"), ShouldEqual, "no-cache")
				So(w.Body.String(), ShouldContainSubstring, "World Happiness and GDP")
				So(w.Body.String(), ShouldContainSubstring, "leaflet")
				So(w.Body.String(), ShouldContainSubstring, `id="scatter-tip"`)
			})
		})

		Convey("When the script is requested", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app.js", nil))
			js := w.Body.String()

			Convey("Then scatter points carry a hover tooltip", func() {
				So(js, ShouldContainSubstring, "'mousemove'")
				So(js, ShouldContainSubstring, "'mouseleave'")
				So(js, ShouldContainSubstring, "hit.tooltip")
			})

			Convey("Then a selected marker is flown to", func() {
				So(js, ShouldContainSubstring, "map.flyTo(")
				So(js, ShouldNotContainSubstring, "map.setView([v.focus")
			})

			Convey("Then an expired session is replaced", func() {
				So(js, ShouldContainSubstring, "'session_not_found'")
			})

			Convey("Then the info card is built from text nodes", func() {
				So(js, ShouldContainSubstring, "textContent = text")
				So(js, ShouldNotContainSubstring, "$('info').innerHTML")
			})
		})

		Convey("When the assets are requested", func() {
			for path, ctype := range map[string]string{"/app.js": "javascript", "/app.css": "text/css"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, ctype)
			}
		})

		Convey("When an unknown file is requested", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing.png", nil))

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the page is posted to", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

			Convey("Then the method is refused", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestSiteHandlerWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		Convey("Then registering panics", func() {
			So(func() { Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}
