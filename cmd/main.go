package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/happymap/internal/adapters/http/api"
	"github.com/okian/happymap/internal/adapters/http/site"
	"github.com/okian/happymap/internal/adapters/http/swagger"
	app "github.com/okian/happymap/internal/app"
	"github.com/okian/happymap/internal/config"
	"github.com/okian/happymap/internal/domain/loader"
	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/pkg/logger"
	"github.com/okian/happymap/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> dotenv -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	// The dataset is loaded before the listener opens; a bad file stops startup.
	ds, err := loadDataset(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to load dataset", logger.String("path", cfg.DataPath), logger.Error(err))
		return err
	}

	svc := app.New(ds,
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.DeliveryWorkers),
		app.WithQueueSize(cfg.FrameQueueSize),
		app.WithMaxSessions(cfg.MaxSessions),
		app.WithSessionTTL(cfg.SessionTTL()),
		app.WithSpeeds(cfg.DefaultSpeed(), cfg.SpeedChoices()),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	svc.Stop(shutdownCtx)

	log.Info(ctx, "server stopped")
	return nil
}

// loadDataset reads the CSV and publishes the dataset gauges.
func loadDataset(ctx context.Context, cfg *config.Config, log logger.Logger) (*model.Dataset, error) {
	policy, err := loader.ParsePolicy(cfg.InvalidRows)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	ds, report, err := loader.Load(ctx, cfg.DataPath, loader.WithPolicy(policy))
	if err != nil {
		return nil, err
	}

	metrics.UpdateDataset(ds.Len(), len(ds.Years()), len(ds.Regions())-1)
	metrics.RecordRowsCoerced(report.Coerced)
	metrics.RecordRowsSkipped(report.Skipped)

	log.Info(ctx, "dataset loaded",
		logger.String("path", cfg.DataPath),
		logger.String("policy", policy.String()),
		logger.Int("rows", report.Rows),
		logger.Int("coerced", report.Coerced),
		logger.Int("skipped", report.Skipped),
		logger.Int("duplicates", report.Duplicates),
		logger.Int("unnamed", report.Unnamed),
		logger.Int("backfilled", report.Backfilled),
		logger.Int("minYear", ds.MinYear()),
		logger.Int("maxYear", ds.MaxYear()),
		logger.Duration("took", time.Since(start)),
	)
	return ds, nil
}

// newMux registers the page, the API docs and the dashboard API.
func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
