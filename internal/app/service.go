// Package service owns the dataset, the dashboard sessions and the frame
// pipeline that feeds WebSocket subscribers.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/happymap/internal/adapters/mq/queue"
	workerpool "github.com/okian/happymap/internal/adapters/mq/worker"
	repository "github.com/okian/happymap/internal/adapters/repository"
	"github.com/okian/happymap/internal/adapters/ws"
	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/internal/domain/selection"
	"github.com/okian/happymap/pkg/logger"
	"github.com/okian/happymap/pkg/metrics"
)

// Controls describes the inputs the page offers.
type Controls struct {
	MinYear        int      `json:"min_year"`
	MaxYear        int      `json:"max_year"`
	Years          []int    `json:"years"`
	Regions        []string `json:"regions"`
	SpeedsMs       []int64  `json:"speeds_ms"`
	DefaultSpeedMs int64    `json:"default_speed_ms"`
}

// Service implements the API dependencies for the dashboard.
type Service struct {
	mu sync.RWMutex

	ds       *model.Dataset
	sessions *repository.MemStore[*Dashboard]
	frames   *eventqueue.InMemoryQueue
	hub      *ws.Hub
	pool     *workerpool.Pool

	workerCount  int
	queueSize    int
	maxSessions  int
	sessionTTL   time.Duration
	speeds       []time.Duration
	defaultSpeed time.Duration

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service over ds with default configuration.
func New(ds *model.Dataset, opts ...Option) *Service {
	s := &Service{
		ds:           ds,
		workerCount:  runtime.NumCPU(),
		queueSize:    4096,
		maxSessions:  1000,
		sessionTTL:   30 * time.Minute,
		speeds:       defaultSpeeds(),
		defaultSpeed: selection.DefaultSpeed,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the session store and the frame pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.sessions = repository.NewMemStore[*Dashboard](
		repository.WithTTL(s.sessionTTL),
		repository.WithMaxSessions(s.maxSessions),
	)
	s.frames = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.hub = ws.NewHub()
	s.pool = workerpool.NewPool(s.workerCount, s.frames, s.hub)
	s.pool.Start(runCtx)
	go s.sessions.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "dashboard service started",
		logger.Int("rows", s.ds.Len()),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxSessions", s.maxSessions),
		logger.Duration("sessionTTL", s.sessionTTL),
	)
	return nil
}

// Stop closes every session, drains the frame queue and stops the workers.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.sessions.Close()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.cancel()
	s.started = false
	s.logger.Info(ctx, "dashboard service stopped")
}

// Dataset returns the loaded dataset.
func (s *Service) Dataset() *model.Dataset { return s.ds }

// Controls returns the slider bounds, regions and speed choices.
func (s *Service) Controls() Controls {
	speeds := make([]int64, len(s.speeds))
	for i, d := range s.speeds {
		speeds[i] = d.Milliseconds()
	}
	return Controls{
		MinYear:        s.ds.MinYear(),
		MaxYear:        s.ds.MaxYear(),
		Years:          s.ds.Years(),
		Regions:        s.ds.Regions(),
		SpeedsMs:       speeds,
		DefaultSpeedMs: s.defaultSpeed.Milliseconds(),
	}
}

// NewSession opens a dashboard and draws its first frame at the last year.
func (s *Service) NewSession(ctx context.Context) (*Dashboard, View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, View{}, ErrNotStarted
	}

	id := uuid.NewString()
	hub := s.hub
	d := newDashboard(id, s.ds, s, func() { hub.Close(id) }, s.logger,
		selection.WithSpeeds(s.speeds),
		selection.WithSpeed(s.defaultSpeed),
	)
	if err := s.sessions.Put(ctx, id, d); err != nil {
		if errors.Is(err, repository.ErrCapacity) {
			return nil, View{}, fmt.Errorf("%w: %d", ErrCapacity, s.maxSessions)
		}
		return nil, View{}, err
	}

	v, err := d.redraw(ctx, s.ds.MaxYear(), TriggerSession)
	if err != nil {
		_ = s.sessions.Delete(ctx, id)
		return nil, View{}, err
	}
	metrics.RecordSessionCreated()
	s.logger.Debug(ctx, "session opened", logger.String("session", id))
	return d, v, nil
}

// Session returns an open dashboard.
func (s *Service) Session(ctx context.Context, id string) (*Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	d, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return d, nil
}

// CloseSession stops and forgets a dashboard.
func (s *Service) CloseSession(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.logger.Debug(ctx, "session closed", logger.String("session", id))
	return nil
}

// Subscribe streams the session's frames over a WebSocket, starting with the
// current one. It returns when the client disconnects.
func (s *Service) Subscribe(w http.ResponseWriter, r *http.Request, id string) error {
	d, err := s.Session(r.Context(), id)
	if err != nil {
		return err
	}
	initial, err := encodeView(d.Current())
	if err != nil {
		return err
	}
	return s.hub.Serve(w, r, id, initial)
}

// Publish implements Publisher by offering the frame to the delivery queue.
func (s *Service) Publish(ctx context.Context, f model.Frame) error {
	return s.frames.Enqueue(ctx, f)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"rows":        s.ds.Len(),
		"years":       len(s.ds.Years()),
		"regions":     len(s.ds.Regions()) - 1,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"maxSessions": s.maxSessions,
	}
	if s.started {
		hub := s.hub.Stats()
		stats["sessions"] = s.sessions.Count(ctx)
		stats["queueLength"] = s.frames.Len(ctx)
		stats["wsClients"] = hub.Clients
	}
	return stats
}
