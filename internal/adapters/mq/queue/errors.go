package queue

import "errors"

// Reasons a frame was not queued.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)
