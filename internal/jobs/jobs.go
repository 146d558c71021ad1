// Package jobs runs periodic maintenance tasks next to the HTTP server.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// ExportPurger removes expired admin exports from object storage.
type ExportPurger interface {
	PurgeExpiredExports(ctx context.Context) (int, error)
}

// Config wires the scheduled jobs.
type Config struct {
	Exports    ExportPurger
	PurgeEvery time.Duration
	Logger     *slog.Logger
	// Timeout bounds a single run. Defaults to one minute.
	Timeout time.Duration
}

// Start schedules the maintenance jobs and starts them in the background.
// Callers stop the returned scheduler on shutdown.
func Start(ctx context.Context, cfg Config) (*gocron.Scheduler, error) {
	if cfg.Exports == nil {
		return nil, errors.New("export purger required")
	}
	if cfg.PurgeEvery <= 0 {
		return nil, errors.New("purge interval must be positive")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	scheduler := gocron.NewScheduler(time.Local)
	scheduler.SingletonModeAll()
	if _, err := scheduler.Every(cfg.PurgeEvery).Do(func() {
		PurgeExports(ctx, cfg.Exports, timeout, logger)
	}); err != nil {
		return nil, err
	}
	scheduler.StartAsync()
	logger.Info("export purge scheduled", "every", cfg.PurgeEvery)
	return scheduler, nil
}

// PurgeExports runs one cleanup pass and logs the outcome.
func PurgeExports(ctx context.Context, purger ExportPurger, timeout time.Duration, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	n, err := purger.PurgeExpiredExports(runCtx)
	if err != nil {
		logger.Warn("export purge failed", "purged", n, "err", err)
		return
	}
	if n > 0 {
		logger.Info("expired exports purged", "purged", n)
	}
}
