package api

import (
	"net/http"

	service "github.com/okian/happymap/internal/app"
)

// ControlsDependencies exposes the control choices.
type ControlsDependencies interface {
	Controls() service.Controls
}

// ControlsHandler serves the slider bounds, regions and speeds.
type ControlsHandler struct {
	deps ControlsDependencies
}

// NewControlsHandler creates a new controls handler.
func NewControlsHandler(deps ControlsDependencies) *ControlsHandler {
	return &ControlsHandler{deps: deps}
}

// HandleGetControls handles GET /api/controls requests.
func (h *ControlsHandler) HandleGetControls(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Controls())
}
