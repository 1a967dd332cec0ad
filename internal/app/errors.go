package service

import (
	"errors"

	"github.com/okian/happymap/internal/domain/selection"
)

// Sentinel errors returned by the service and dashboards.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrSessionNotFound = errors.New("session not found")
	ErrCapacity        = errors.New("too many open sessions")
	ErrCountryNotFound = errors.New("country not in the current selection")
	ErrInvalidSource   = errors.New("invalid highlight source")
	ErrDashboardClosed = errors.New("dashboard closed")
	ErrUnknownRegion   = selection.ErrUnknownRegion
	ErrUnknownSpeed    = selection.ErrUnknownSpeed
)
