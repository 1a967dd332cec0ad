package repository

import "time"

// Option applies a configuration option to the MemStore.
type Option func(*config)

type config struct {
	ttl         time.Duration
	maxSessions int
	interval    time.Duration
	now         func() time.Time
}

// WithTTL sets how long a session may stay idle before the janitor evicts it.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxSessions caps the number of live sessions. Zero means no cap.
func WithMaxSessions(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxSessions = n
		}
	}
}

// WithJanitorInterval sets how often idle sessions are swept.
func WithJanitorInterval(interval time.Duration) Option {
	return func(c *config) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
