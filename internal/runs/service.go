// Package runs executes catalog batches in the background and tracks them in
// the run ledger.
package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/scenegen/internal/batch"
	"github.com/kiranshivaraju/scenegen/internal/cache"
	"github.com/kiranshivaraju/scenegen/internal/store"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

// StatusTTL is how long a run status stays in the cache.
const StatusTTL = 30 * time.Minute

var (
	// ErrRunInProgress is returned when a run is triggered while another one
	// is still working on the catalog.
	ErrRunInProgress = errors.New("a run is already in progress")
	ErrInvalidMode   = errors.New("invalid run mode")
	ErrNotFound      = errors.New("run not found")
)

// Batch is one executable batch; *batch.Orchestrator satisfies it.
type Batch interface {
	Run(ctx context.Context) (*batch.Summary, error)
}

// Launcher builds the batch for run. rec records row outcomes into the ledger.
type Launcher func(run *models.Run, rec batch.Recorder) (Batch, error)

// TriggerParams holds validated parameters for a new run.
type TriggerParams struct {
	Mode string
}

// Service starts runs and reports on them.
type Service struct {
	store  store.Store
	cache  cache.Cache
	launch Launcher

	inputPath  string
	outputPath string

	mu     sync.Mutex
	active uuid.UUID
	wg     sync.WaitGroup
}

// NewService creates a Service. ca may be nil.
func NewService(st store.Store, ca cache.Cache, launch Launcher, inputPath, outputPath string) *Service {
	return &Service{
		store:      st,
		cache:      ca,
		launch:     launch,
		inputPath:  inputPath,
		outputPath: outputPath,
	}
}

// Trigger creates a pending run and dispatches it in a background goroutine.
// Returns the run immediately without waiting for it to finish.
func (s *Service) Trigger(ctx context.Context, params TriggerParams) (*models.Run, error) {
	mode := params.Mode
	if mode == "" {
		mode = models.RunModeGenerate
	}
	if mode != models.RunModeGenerate && mode != models.RunModeRefine {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != uuid.Nil {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, s.active)
	}

	now := time.Now().UTC()
	run := &models.Run{
		ID:         uuid.New(),
		Mode:       mode,
		Status:     models.RunStatusPending,
		InputPath:  s.inputPath,
		OutputPath: s.outputPath,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	s.setStatus(ctx, run.ID, models.RunStatusPending)

	s.active = run.ID
	s.wg.Add(1)
	go s.execute(run)

	return run, nil
}

// execute runs the batch. It recovers from panics and always marks the run
// as completed or failed.
func (s *Service) execute(run *models.Run) {
	ctx := context.Background()
	logger := slog.With("run_id", run.ID, "mode", run.Mode)

	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.active = uuid.Nil
		s.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in run", "error", r)
			s.fail(ctx, run.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	// Mark as running
	if err := s.store.UpdateRunStatus(ctx, run.ID, models.RunStatusRunning); err != nil {
		logger.Error("failed to mark run running", "error", err)
	}
	s.setStatus(ctx, run.ID, models.RunStatusRunning)

	b, err := s.launch(run, s.store)
	if err != nil {
		s.fail(ctx, run.ID, fmt.Sprintf("building batch: %v", err))
		return
	}

	summary, err := b.Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		opts := []store.RunUpdateOption{store.WithErrorMessage(err.Error())}
		if summary != nil {
			opts = append(opts, store.WithCounts(summary.Processed, summary.Skipped, summary.Errors))
		}
		_ = s.store.UpdateRunStatus(ctx, run.ID, models.RunStatusFailed, opts...)
		s.setStatus(ctx, run.ID, models.RunStatusFailed)
		return
	}

	// Mark completed
	logger.Info("run completed", "processed", summary.Processed, "skipped", summary.Skipped, "errors", summary.Errors)
	_ = s.store.UpdateRunStatus(ctx, run.ID, models.RunStatusCompleted,
		store.WithCounts(summary.Processed, summary.Skipped, summary.Errors))
	s.setStatus(ctx, run.ID, models.RunStatusCompleted)
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, msg string) {
	_ = s.store.UpdateRunStatus(ctx, id, models.RunStatusFailed, store.WithErrorMessage(msg))
	s.setStatus(ctx, id, models.RunStatusFailed)
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetRunStatus(ctx, id, status, StatusTTL); err != nil {
		slog.Warn("failed to cache run status", "run_id", id, "error", err)
	}
}

// Get returns the run with id. A cached status newer than the stored one
// takes precedence.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	run, err := s.store.GetRun(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	if s.cache != nil {
		if status, ok, err := s.cache.GetRunStatus(ctx, id); err == nil && ok && rank(status) > rank(run.Status) {
			run.Status = status
		}
	}
	return run, nil
}

// Rows returns the row ledger of run id in row order.
func (s *Service) Rows(ctx context.Context, id uuid.UUID) ([]*models.RowResult, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.store.ListRowResults(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing rows: %w", err)
	}
	return rows, nil
}

// Wait blocks until the active run, if any, has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func rank(status string) int {
	switch status {
	case models.RunStatusPending:
		return 1
	case models.RunStatusRunning:
		return 2
	case models.RunStatusCompleted, models.RunStatusFailed:
		return 3
	}
	return 0
}
