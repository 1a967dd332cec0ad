package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// apiError mirrors the JSON error body.
type apiError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// client wraps http.Client with JSON helpers and a request counter.
type client struct {
	base     string
	http     *http.Client
	requests *int64
}

func newClient(base string, timeout time.Duration, requests *int64) *client {
	return &client{
		base:     strings.TrimRight(base, "/"),
		http:     &http.Client{Timeout: timeout},
		requests: requests,
	}
}

// do sends body as JSON (when non-nil) and decodes a 2xx response into out.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	atomic.AddInt64(c.requests, 1)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		e := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, e)
		return e
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// subscribe opens the session's frame stream.
func (c *client) subscribe(ctx context.Context, session string) (*websocket.Conn, error) {
	url := "ws" + strings.TrimPrefix(c.base, "http") + "/api/sessions/" + session + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	return conn, err
}
