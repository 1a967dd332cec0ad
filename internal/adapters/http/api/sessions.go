package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/happymap/internal/app"
	"github.com/okian/happymap/internal/export"
	"github.com/okian/happymap/pkg/logger"
)

type createResponse struct {
	ID       string           `json:"id"`
	Controls service.Controls `json:"controls"`
	Frame    service.View     `json:"frame"`
}

type yearRequest struct {
	Year *int `json:"year"`
}

type regionRequest struct {
	Region string `json:"region"`
}

type speedRequest struct {
	SpeedMs int64 `json:"speed_ms"`
}

type selectRequest struct {
	Country string `json:"country"`
	Source  string `json:"source"`
}

// SessionsHandler serves the per-session dashboard operations.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleCreate handles POST /api/sessions requests.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	d, v, err := h.deps.NewSession(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{ID: d.ID(), Controls: h.deps.Controls(), Frame: v})
}

// HandleGet handles GET /api/sessions/{id} requests.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.Current())
}

// HandleDelete handles DELETE /api/sessions/{id} requests.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.CloseSession(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleYear handles POST /api/sessions/{id}/year requests.
func (h *SessionsHandler) HandleYear(w http.ResponseWriter, r *http.Request) {
	var req yearRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Year == nil {
		writeServiceError(w, fmt.Errorf("%w: missing year", ErrBadRequest))
		return
	}
	h.apply(w, r, func(d *service.Dashboard, ctx context.Context) (service.View, error) {
		return d.UpdateAll(ctx, *req.Year)
	})
}

// HandleRegion handles POST /api/sessions/{id}/region requests.
func (h *SessionsHandler) HandleRegion(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Region) == "" {
		writeServiceError(w, fmt.Errorf("%w: missing region", ErrBadRequest))
		return
	}
	h.apply(w, r, func(d *service.Dashboard, ctx context.Context) (service.View, error) {
		return d.SetRegion(ctx, req.Region)
	})
}

// HandlePlay handles POST /api/sessions/{id}/play requests.
func (h *SessionsHandler) HandlePlay(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*service.Dashboard).TogglePlay)
}

// HandleReset handles POST /api/sessions/{id}/reset requests.
func (h *SessionsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*service.Dashboard).Reset)
}

// HandleSpeed handles POST /api/sessions/{id}/speed requests.
func (h *SessionsHandler) HandleSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.SpeedMs <= 0 {
		writeServiceError(w, fmt.Errorf("%w: speed_ms must be positive", ErrBadRequest))
		return
	}
	h.apply(w, r, func(d *service.Dashboard, ctx context.Context) (service.View, error) {
		return d.SetSpeed(ctx, time.Duration(req.SpeedMs)*time.Millisecond)
	})
}

// HandleSelect handles POST /api/sessions/{id}/select requests.
func (h *SessionsHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Country) == "" {
		writeServiceError(w, fmt.Errorf("%w: missing country", ErrBadRequest))
		return
	}
	h.apply(w, r, func(d *service.Dashboard, ctx context.Context) (service.View, error) {
		return d.HighlightCountry(ctx, req.Country, service.Source(req.Source))
	})
}

// HandleExport handles GET /api/sessions/{id}/export.xlsx requests.
func (h *SessionsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	name, err := d.Export(&buf)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// HandleWebSocket handles GET /api/sessions/{id}/ws requests. The session is
// checked before the upgrade so unknown ids get a JSON error.
func (h *SessionsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	if err := h.deps.Subscribe(w, r, d.ID()); err != nil {
		logger.Get().Named("api").Debug(r.Context(), "websocket ended", logger.String("session", d.ID()), logger.Error(err))
	}
}

func (h *SessionsHandler) dashboard(w http.ResponseWriter, r *http.Request) (*service.Dashboard, bool) {
	d, err := h.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return d, true
}

func (h *SessionsHandler) apply(w http.ResponseWriter, r *http.Request, op func(*service.Dashboard, context.Context) (service.View, error)) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	v, err := op(d, r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
