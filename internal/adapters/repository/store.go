// Package repository keeps live dashboard sessions in memory and expires
// the idle ones.
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/happymap/pkg/metrics"
)

// Default store configuration.
const (
	defaultTTL             = 30 * time.Minute
	defaultJanitorInterval = time.Minute
)

// Closer is released when its session is deleted or expires.
type Closer interface {
	Close()
}

// Store provides access to live sessions.
type Store[T Closer] interface {
	// Put adds a session. It fails with ErrExists or ErrCapacity.
	Put(ctx context.Context, id string, s T) error
	// Get returns a session and marks it as used. Unknown ids return ErrNotFound.
	Get(ctx context.Context, id string) (T, error)
	// Delete closes and removes a session.
	Delete(ctx context.Context, id string) error
	// Count returns the number of live sessions.
	Count(ctx context.Context) int
}

// Activity is implemented by sessions that stay busy without client calls,
// such as a playing dashboard. Expire treats an active session as just used.
type Activity interface {
	Active() bool
}

type entry[T Closer] struct {
	value    T
	lastSeen time.Time
}

// MemStore is a mutex-guarded map of sessions with idle expiry.
type MemStore[T Closer] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	cfg     config
}

// NewMemStore creates an empty store.
func NewMemStore[T Closer](opts ...Option) *MemStore[T] {
	cfg := config{ttl: defaultTTL, interval: defaultJanitorInterval, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemStore[T]{entries: make(map[string]*entry[T]), cfg: cfg}
}

// Put implements Store.
func (s *MemStore[T]) Put(_ context.Context, id string, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; ok {
		return fmt.Errorf("%w: %s", ErrExists, id)
	}
	if s.cfg.maxSessions > 0 && len(s.entries) >= s.cfg.maxSessions {
		metrics.RecordSessionRejected()
		return ErrCapacity
	}
	s.entries[id] = &entry[T]{value: v, lastSeen: s.cfg.now()}
	metrics.UpdateSessionsActive(len(s.entries))
	return nil
}

// Get implements Store.
func (s *MemStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.lastSeen = s.cfg.now()
	return e.value, nil
}

// Delete implements Store.
func (s *MemStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
		metrics.UpdateSessionsActive(len(s.entries))
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.value.Close()
	return nil
}

// Count implements Store.
func (s *MemStore[T]) Count(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Expire closes and removes sessions idle for longer than the TTL and
// returns how many were evicted. Sessions reporting Active are refreshed.
func (s *MemStore[T]) Expire() int {
	now := s.cfg.now()
	cutoff := now.Add(-s.cfg.ttl)

	s.mu.Lock()
	var stale []T
	for id, e := range s.entries {
		if a, ok := any(e.value).(Activity); ok && a.Active() {
			e.lastSeen = now
			continue
		}
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.value)
			delete(s.entries, id)
		}
	}
	metrics.UpdateSessionsActive(len(s.entries))
	s.mu.Unlock()

	for _, v := range stale {
		v.Close()
	}
	if len(stale) > 0 {
		metrics.RecordSessionsEvicted(len(stale))
	}
	return len(stale)
}

// Run sweeps idle sessions until ctx is done.
func (s *MemStore[T]) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Expire()
		}
	}
}

// Close closes and removes every session.
func (s *MemStore[T]) Close() {
	s.mu.Lock()
	all := make([]T, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e.value)
	}
	s.entries = make(map[string]*entry[T])
	metrics.UpdateSessionsActive(0)
	s.mu.Unlock()

	for _, v := range all {
		v.Close()
	}
}
