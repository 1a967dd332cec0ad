// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/happymap/internal/app"
)

// maxBodyBytes bounds control request bodies.
const maxBodyBytes = 4 << 10

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Controls() service.Controls
	NewSession(ctx context.Context) (*service.Dashboard, service.View, error)
	Session(ctx context.Context, id string) (*service.Dashboard, error)
	CloseSession(ctx context.Context, id string) error
	Subscribe(w http.ResponseWriter, r *http.Request, id string) error
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	controlsHandler *ControlsHandler
	sessionsHandler *SessionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		controlsHandler: NewControlsHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/controls", MetricsMiddleware(s.controlsHandler.HandleGetControls, "controls"))

	h := s.sessionsHandler
	mux.HandleFunc("POST /api/sessions", MetricsMiddleware(h.HandleCreate, "session_create"))
	mux.HandleFunc("GET /api/sessions/{id}", MetricsMiddleware(h.HandleGet, "session_get"))
	mux.HandleFunc("DELETE /api/sessions/{id}", MetricsMiddleware(h.HandleDelete, "session_delete"))
	mux.HandleFunc("POST /api/sessions/{id}/year", MetricsMiddleware(h.HandleYear, "year"))
	mux.HandleFunc("POST /api/sessions/{id}/region", MetricsMiddleware(h.HandleRegion, "region"))
	mux.HandleFunc("POST /api/sessions/{id}/play", MetricsMiddleware(h.HandlePlay, "play"))
	mux.HandleFunc("POST /api/sessions/{id}/reset", MetricsMiddleware(h.HandleReset, "reset"))
	mux.HandleFunc("POST /api/sessions/{id}/speed", MetricsMiddleware(h.HandleSpeed, "speed"))
	mux.HandleFunc("POST /api/sessions/{id}/select", MetricsMiddleware(h.HandleSelect, "select"))
	mux.HandleFunc("GET /api/sessions/{id}/export.xlsx", MetricsMiddleware(h.HandleExport, "export"))
	mux.HandleFunc("GET /api/sessions/{id}/ws", MetricsMiddleware(h.HandleWebSocket, "ws"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service sentinels into status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrDashboardClosed):
		writeError(w, http.StatusNotFound, "session_not_found", err)
	case errors.Is(err, service.ErrCountryNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrUnknownRegion):
		writeError(w, http.StatusConflict, "unknown_region", err)
	case errors.Is(err, service.ErrUnknownSpeed):
		writeError(w, http.StatusConflict, "unknown_speed", err)
	case errors.Is(err, service.ErrInvalidSource),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrBadBody):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrCapacity):
		writeError(w, http.StatusServiceUnavailable, "capacity", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decodeBody reads a small JSON body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	return nil
}
