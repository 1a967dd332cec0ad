package loader

import "errors"

// Sentinel kinds for dataset loading errors.
var (
	ErrOpen          = errors.New("open dataset failed")
	ErrRead          = errors.New("read dataset failed")
	ErrMissingColumn = errors.New("missing required column")
	ErrUnknownPolicy = errors.New("unknown invalid-row policy")
)
