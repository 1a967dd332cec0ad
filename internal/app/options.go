package service

import (
	"time"

	"github.com/okian/happymap/internal/domain/selection"
	"github.com/okian/happymap/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of frame delivery workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the frame queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxSessions caps concurrent sessions. Zero means no cap.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxSessions = n
		}
	}
}

// WithSessionTTL sets how long an idle session lives.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithSpeeds sets the playback interval choices and the initial one.
func WithSpeeds(def time.Duration, choices []time.Duration) Option {
	return func(s *Service) {
		if len(choices) > 0 {
			s.speeds = choices
		}
		if def > 0 {
			s.defaultSpeed = def
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func defaultSpeeds() []time.Duration {
	out := make([]time.Duration, len(selection.DefaultSpeeds))
	copy(out, selection.DefaultSpeeds)
	return out
}
