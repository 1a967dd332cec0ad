package loader

import "fmt"

// Policy decides what happens to a row with a malformed numeric field.
type Policy int

const (
	// PolicyCoerce keeps the row and turns the bad field into zero.
	PolicyCoerce Policy = iota
	// PolicySkip drops the row.
	PolicySkip
)

// ParsePolicy maps the config spelling to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "coerce":
		return PolicyCoerce, nil
	case "skip":
		return PolicySkip, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

func (p Policy) String() string {
	if p == PolicySkip {
		return "skip"
	}
	return "coerce"
}

// Option applies a configuration option to the loader.
type Option func(*loader)

// WithPolicy sets the invalid-row policy.
func WithPolicy(p Policy) Option {
	return func(l *loader) {
		l.policy = p
	}
}

// WithRegionBackfill toggles filling empty regions from the same country's other years.
func WithRegionBackfill(enabled bool) Option {
	return func(l *loader) {
		l.backfill = enabled
	}
}
