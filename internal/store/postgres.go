package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiranshivaraju/scenegen/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.Run) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, mode, status, input_path, output_path, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Mode, run.Status, run.InputPath, run.OutputPath, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	var r models.Run
	err := s.pool.QueryRow(ctx,
		`SELECT id, mode, status, input_path, output_path, processed, skipped, errors,
		        error_message, started_at, completed_at, created_at, updated_at
		 FROM runs WHERE id = $1`, id,
	).Scan(&r.ID, &r.Mode, &r.Status, &r.InputPath, &r.OutputPath, &r.Processed, &r.Skipped, &r.Errors,
		&r.ErrorMessage, &r.StartedAt, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &r, nil
}

var validTransitions = map[string][]string{
	models.RunStatusPending: {models.RunStatusRunning, models.RunStatusFailed},
	models.RunStatusRunning: {models.RunStatusCompleted, models.RunStatusFailed},
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error {
	params := &runUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	// Fetch current status
	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM runs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get run status: %w", err)
	}

	if !slices.Contains(validTransitions[currentStatus], status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE runs SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if status == models.RunStatusRunning {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status == models.RunStatusCompleted || status == models.RunStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.Counts != nil {
		query += fmt.Sprintf(", processed = $%d, skipped = $%d, errors = $%d", argIdx, argIdx+1, argIdx+2)
		args = append(args, params.Counts.processed, params.Counts.skipped, params.Counts.errors)
	}

	query += " WHERE id = $1"

	_, err = s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

// --- Row results ---

// RecordRow inserts the ledger entry for one row. Recording the same row of a
// run twice replaces the earlier entry.
func (s *PostgresStore) RecordRow(ctx context.Context, row *models.RowResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO row_results (id, run_id, row_index, identifier, outcome, image_url, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (run_id, row_index) DO UPDATE SET
		   identifier = EXCLUDED.identifier,
		   outcome = EXCLUDED.outcome,
		   image_url = EXCLUDED.image_url,
		   error_message = EXCLUDED.error_message`,
		row.ID, row.RunID, row.RowIndex, row.Identifier, row.Outcome, row.ImageURL, row.ErrorMessage, row.CreatedAt)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("record row: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRowResults(ctx context.Context, runID uuid.UUID) ([]*models.RowResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, row_index, identifier, outcome, image_url, error_message, created_at
		 FROM row_results WHERE run_id = $1 ORDER BY row_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list row results: %w", err)
	}
	defer rows.Close()

	results := []*models.RowResult{}
	for rows.Next() {
		var r models.RowResult
		if err := rows.Scan(&r.ID, &r.RunID, &r.RowIndex, &r.Identifier, &r.Outcome,
			&r.ImageURL, &r.ErrorMessage, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row result: %w", err)
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}

// isForeignKeyError checks if a pgx error is a foreign key violation.
func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
