// Command scenegen runs one batch over the configured catalog and exits.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/kiranshivaraju/scenegen/internal/app"
	"github.com/kiranshivaraju/scenegen/internal/batch"
	"github.com/kiranshivaraju/scenegen/internal/cache"
	"github.com/kiranshivaraju/scenegen/internal/config"
	"github.com/kiranshivaraju/scenegen/internal/store"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

func main() {
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("batch failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ca cache.Cache
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		ca = redisCache
	}

	runID := uuid.New()
	var ledger *runLedger
	if cfg.Database.URL != "" {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		ledger = &runLedger{store: store.NewPostgresStore(pool), id: runID}
		if err := ledger.start(ctx, cfg); err != nil {
			return err
		}
	}

	components, err := app.Build(ctx, cfg, ca, logger)
	if err != nil {
		ledger.finish(nil, err)
		return fmt.Errorf("build components: %w", err)
	}
	defer components.Close()

	var rec batch.Recorder
	if ledger != nil {
		rec = ledger.store
	}
	orch, err := components.Orchestrator(runID, "", rec)
	if err != nil {
		ledger.finish(nil, err)
		return err
	}

	logger.Info("batch started", "run_id", runID, "mode", cfg.Batch.Mode, "input", cfg.Catalog.InputPath)
	summary, err := orch.Run(ctx)
	ledger.finish(summary, err)
	if summary != nil {
		fmt.Printf("Processed: %d  Skipped: %d  Errors: %d\n", summary.Processed, summary.Skipped, summary.Errors)
	}
	if err != nil {
		return err
	}

	logger.Info("batch finished",
		"run_id", runID,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"errors", summary.Errors,
		"output", cfg.Catalog.OutputPath,
	)
	return nil
}

// runLedger mirrors a CLI batch into the run tables. A nil ledger is a no-op.
type runLedger struct {
	store store.Store
	id    uuid.UUID
}

func (l *runLedger) start(ctx context.Context, cfg *config.Config) error {
	now := time.Now().UTC()
	err := l.store.CreateRun(ctx, &models.Run{
		ID:         l.id,
		Mode:       cfg.Batch.Mode,
		Status:     models.RunStatusPending,
		InputPath:  cfg.Catalog.InputPath,
		OutputPath: cfg.Catalog.OutputPath,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	if err := l.store.UpdateRunStatus(ctx, l.id, models.RunStatusRunning); err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	return nil
}

func (l *runLedger) finish(summary *batch.Summary, runErr error) {
	if l == nil {
		return
	}
	ctx := context.Background()
	var opts []store.RunUpdateOption
	if summary != nil {
		opts = append(opts, store.WithCounts(summary.Processed, summary.Skipped, summary.Errors))
	}
	status := models.RunStatusCompleted
	if runErr != nil {
		status = models.RunStatusFailed
		opts = append(opts, store.WithErrorMessage(runErr.Error()))
	}
	if err := l.store.UpdateRunStatus(ctx, l.id, status, opts...); err != nil {
		slog.Warn("failed to update run ledger", "run_id", l.id, "error", err)
	}
}
