package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/specloom/specloom/internal/config"
	"github.com/specloom/specloom/internal/controller"
	"github.com/specloom/specloom/internal/journal"
	"github.com/specloom/specloom/internal/planner"
	"github.com/specloom/specloom/internal/schedule"
	"github.com/specloom/specloom/internal/specstore"
	"github.com/specloom/specloom/internal/telemetry"
)

// buildController constructs the full stack from configuration: store,
// planner, journal, and telemetry. The caller owns the returned controller
// and must Close it.
func buildController(ctx context.Context) (*controller.Controller, error) {
	cfg := config.Load()
	logger := newLogger(cfg.Verbose)

	store, err := specstore.Open(cfg.SpecPath,
		specstore.WithLogger(logger),
		specstore.WithLockTimeout(cfg.LockTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("opening spec %s: %w", cfg.SpecPath, err)
	}

	p := planner.New(store,
		planner.WithLogger(logger),
		planner.WithScheduler(schedule.New(schedule.Strategy(cfg.Strategy))),
	)

	opts := []controller.Option{
		controller.WithLogger(logger),
		controller.WithStatePath(cfg.StatePath),
	}
	if cfg.JournalPath != "" {
		j, err := journal.Open(ctx, cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("opening journal %s: %w", cfg.JournalPath, err)
		}
		opts = append(opts, controller.WithJournal(j))
	}
	if cfg.TelemetryPath != "" {
		em, err := telemetry.NewEmitter(cfg.TelemetryPath)
		if err != nil {
			return nil, fmt.Errorf("opening telemetry %s: %w", cfg.TelemetryPath, err)
		}
		opts = append(opts, controller.WithTelemetry(em))
	}

	return controller.New(store, p, opts...)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
