package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/happymap/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

// ErrPropertiesViolated is returned when at least one check failed.
var ErrPropertiesViolated = errors.New("dashboard properties violated")

// Run drives cfg.Sessions sessions concurrently and returns the statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("probe")

	log.Info(ctx, "starting dashboard probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("verbose", cfg.Verbose))

	c := newClient(cfg.BaseURL, cfg.Timeout, &stats.Requests)

	// Step 1: Check service health
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	log.Info(ctx, "service is healthy")

	// Step 2: Drive sessions concurrently
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		frames int64
		jobs   = make(chan int, cfg.Workers*WorkerChannelMultiplier)
	)
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				id, failures, err := runSession(ctx, c, &stats.Checks, &frames)
				mu.Lock()
				stats.SessionsOpened++
				stats.Failures = append(stats.Failures, failures...)
				if err != nil {
					stats.SessionsFailed++
					log.Warn(ctx, "session scenario aborted", logger.String("session", id), logger.Error(err))
				}
				mu.Unlock()
				if cfg.Verbose {
					log.Info(ctx, "session done", logger.String("session", id), logger.Int("failures", len(failures)))
				}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Sessions; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	stats.FramesPushed = atomic.LoadInt64(&frames)
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	// Step 3: Report
	if cfg.OutputFile != "" {
		if err := saveReport(cfg.OutputFile, stats); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		} else {
			log.Info(ctx, "report saved", logger.String("filename", cfg.OutputFile))
		}
	}
	displayFinalStats(ctx, stats)

	for _, f := range stats.Failures {
		log.Error(ctx, "property violated", logger.String("session", f.Session), logger.String("check", f.Check), logger.String("detail", f.Detail))
	}
	if len(stats.Failures) > 0 || stats.SessionsFailed > 0 {
		return stats, fmt.Errorf("%w: %d failures, %d aborted sessions", ErrPropertiesViolated, len(stats.Failures), stats.SessionsFailed)
	}
	return stats, nil
}

// saveReport writes stats as indented JSON.
func saveReport(filename string, stats *Stats) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(filename, data, reportPermission)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var passRate, requestsPerSecond float64
	if stats.Checks > 0 {
		passRate = float64(stats.Checks-int64(len(stats.Failures))) / float64(stats.Checks) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.Requests) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("sessionsOpened", stats.SessionsOpened),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("requests", int(stats.Requests)),
		logger.Int("checks", int(stats.Checks)),
		logger.Int("failures", len(stats.Failures)),
		logger.Int("framesPushed", int(stats.FramesPushed)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("passRate", passRate),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
