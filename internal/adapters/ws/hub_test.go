package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/happymap/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func dial(srv *httptest.Server, session string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session=" + session
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	So(err, ShouldBeNil)
	return conn
}

func waitClients(h *Hub, n int) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h.Stats().Clients == n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func read(conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	So(err, ShouldBeNil)
	return string(msg)
}

func TestHub(t *testing.T) {
	Convey("Given a hub behind a test server", t, func() {
		So(logger.Init(), ShouldBeNil)
		hub := NewHub()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = hub.Serve(w, r, r.URL.Query().Get("session"), []byte(`{"initial":true}`))
		}))
		defer srv.Close()

		a := dial(srv, "s1")
		defer a.Close()
		b := dial(srv, "s2")
		defer b.Close()
		So(waitClients(hub, 2), ShouldBeTrue)

		Convey("Subscribers get the initial frame", func() {
			So(read(a), ShouldEqual, `{"initial":true}`)
			So(read(b), ShouldEqual, `{"initial":true}`)
		})

		Convey("Frames reach only the addressed session", func() {
			read(a)
			read(b)
			n, err := hub.Deliver(context.Background(), "s1", []byte(`{"seq":1}`))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			So(read(a), ShouldEqual, `{"seq":1}`)

			n, err = hub.Deliver(context.Background(), "nobody", []byte(`{}`))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("Stats count sessions and clients", func() {
			So(hub.Stats(), ShouldResemble, Stats{Sessions: 2, Clients: 2})
		})

		Convey("Closing a session disconnects its subscribers", func() {
			read(a)
			hub.Close("s1")
			_ = a.SetReadDeadline(time.Now().Add(time.Second))
			_, _, err := a.ReadMessage()
			So(err, ShouldNotBeNil)
			So(waitClients(hub, 1), ShouldBeTrue)
		})

		Convey("A client hanging up is removed", func() {
			_ = b.Close()
			So(waitClients(hub, 1), ShouldBeTrue)
		})
	})
}
