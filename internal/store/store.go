package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/scenegen/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid run status transition")

// Store is the run ledger. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error

	RecordRow(ctx context.Context, row *models.RowResult) error
	ListRowResults(ctx context.Context, runID uuid.UUID) ([]*models.RowResult, error)
}

type runUpdateParams struct {
	ErrorMessage *string
	Counts       *counts
}

type counts struct {
	processed, skipped, errors int
}

type RunUpdateOption func(*runUpdateParams)

func WithErrorMessage(msg string) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.ErrorMessage = &msg
	}
}

// WithCounts stores the row outcome totals of a finished run.
func WithCounts(processed, skipped, errors int) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.Counts = &counts{processed: processed, skipped: skipped, errors: errors}
	}
}
