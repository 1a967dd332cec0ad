// Package ws streams dashboard frames to browsers over WebSocket.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/happymap/pkg/logger"
	"github.com/okian/happymap/pkg/metrics"
)

const writeTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client serialises writes to one connection.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub tracks subscribers per session.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[*client]struct{}
	logger   logger.Logger
}

// Stats is a snapshot of the hub.
type Stats struct {
	Sessions int `json:"sessions"`
	Clients  int `json:"clients"`
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*client]struct{}),
		logger:   logger.Get().Named("ws"),
	}
}

// Serve upgrades the request, sends initial when non-empty, and keeps the
// subscriber registered until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, initial []byte) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn}
	h.add(sessionID, c)
	defer h.remove(sessionID, c)

	if len(initial) > 0 {
		if err := c.write(initial); err != nil {
			return err
		}
	}

	// Incoming messages are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug(r.Context(), "websocket closed", logger.String("session", sessionID), logger.Error(err))
			}
			return nil
		}
	}
}

// Deliver writes payload to every subscriber of sessionID. Subscribers that
// fail are dropped; the first error is returned.
func (h *Hub) Deliver(_ context.Context, sessionID string, payload []byte) (int, error) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.sessions[sessionID]))
	for c := range h.sessions[sessionID] {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	var (
		sent int
		errs []error
	)
	for _, c := range clients {
		if err := c.write(payload); err != nil {
			errs = append(errs, err)
			h.remove(sessionID, c)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// Close disconnects every subscriber of sessionID.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	clients := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.updateMetricsLocked()
	h.mu.Unlock()

	for c := range clients {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
			time.Now().Add(writeTimeout))
		_ = c.conn.Close()
		c.mu.Unlock()
	}
}

// Stats returns the current subscriber counts.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statsLocked()
}

func (h *Hub) add(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[sessionID]
	if !ok {
		set = make(map[*client]struct{})
		h.sessions[sessionID] = set
	}
	set[c] = struct{}{}
	h.updateMetricsLocked()
}

func (h *Hub) remove(sessionID string, c *client) {
	h.mu.Lock()
	if set, ok := h.sessions[sessionID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	h.updateMetricsLocked()
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *Hub) statsLocked() Stats {
	s := Stats{Sessions: len(h.sessions)}
	for _, set := range h.sessions {
		s.Clients += len(set)
	}
	return s
}

func (h *Hub) updateMetricsLocked() {
	metrics.UpdateWebSocketClients(h.statsLocked().Clients)
}
