package selection

import "time"

// Default playback settings.
const (
	DefaultSpeed = time.Second
)

// DefaultSpeeds are the intervals offered by the speed selector.
var DefaultSpeeds = []time.Duration{
	500 * time.Millisecond,
	time.Second,
	1500 * time.Millisecond,
	2 * time.Second,
}

// Option configures a Panel.
type Option func(*Panel)

// WithSpeeds sets the allowed playback intervals. Non-positive values are ignored.
func WithSpeeds(speeds []time.Duration) Option {
	return func(p *Panel) {
		valid := make([]time.Duration, 0, len(speeds))
		for _, s := range speeds {
			if s > 0 {
				valid = append(valid, s)
			}
		}
		if len(valid) > 0 {
			p.speeds = valid
		}
	}
}

// WithSpeed sets the initial playback interval.
func WithSpeed(d time.Duration) Option {
	return func(p *Panel) {
		if d > 0 {
			p.sel.Speed = d
		}
	}
}

// WithTickHandler routes timer ticks to fn instead of advancing the year
// directly. fn receives the play generation to hand back to Advance.
func WithTickHandler(fn func(gen uint64)) Option {
	return func(p *Panel) {
		p.onTick = fn
	}
}
