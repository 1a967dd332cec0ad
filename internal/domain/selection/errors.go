package selection

import "errors"

var (
	// ErrUnknownRegion is returned for a region that is neither "All" nor in the dataset.
	ErrUnknownRegion = errors.New("unknown region")
	// ErrUnknownSpeed is returned for a playback interval outside the configured choices.
	ErrUnknownSpeed = errors.New("unknown speed")
)
