package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kiranshivaraju/scenegen/internal/store"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("scenegen_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, store.RunMigrations(connStr, migrationsDir()))
	// A second run is a no-op.
	require.NoError(t, store.RunMigrations(connStr, migrationsDir()))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func newRun(t *testing.T, s store.Store) *models.Run {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	run := &models.Run{
		ID:         uuid.New(),
		Mode:       models.RunModeGenerate,
		Status:     models.RunStatusPending,
		InputPath:  "products.xlsx",
		OutputPath: "products_updated.xlsx",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.CreateRun(context.Background(), run))
	return run
}

// --- Run Tests ---

func TestRun_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	run := newRun(t, s)

	got, err := s.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, models.RunModeGenerate, got.Mode)
	assert.Equal(t, models.RunStatusPending, got.Status)
	assert.Equal(t, "products.xlsx", got.InputPath)
	assert.Zero(t, got.Processed)
	assert.Nil(t, got.StartedAt)
}

func TestRun_CreateDuplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	run := newRun(t, s)

	err := s.CreateRun(context.Background(), run)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestRun_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))

	_, err := s.GetRun(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRun_UpdateStatusLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()
	run := newRun(t, s)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, models.RunStatusRunning))
	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, got.Status)
	assert.NotNil(t, got.StartedAt)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, models.RunStatusCompleted, store.WithCounts(4, 2, 1)))
	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, 4, got.Processed)
	assert.Equal(t, 2, got.Skipped)
	assert.Equal(t, 1, got.Errors)
}

func TestRun_UpdateStatusFailedWithMessage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()
	run := newRun(t, s)
	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, models.RunStatusRunning))

	err := s.UpdateRunStatus(ctx, run.ID, models.RunStatusFailed, store.WithErrorMessage("reading catalog: no such file"))
	require.NoError(t, err)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "reading catalog: no such file", *got.ErrorMessage)
}

func TestRun_UpdateStatusInvalidTransition(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	run := newRun(t, s)

	err := s.UpdateRunStatus(context.Background(), run.ID, models.RunStatusCompleted) // pending -> completed is invalid
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestRun_UpdateStatusNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))

	err := s.UpdateRunStatus(context.Background(), uuid.New(), models.RunStatusRunning)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- Row Result Tests ---

func TestRowResults_RecordAndList(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()
	run := newRun(t, s)
	now := time.Now().UTC().Truncate(time.Microsecond)

	url := "https://cdn.example.com/WL-1_room.png"
	reason := "already has lifestyle image"
	require.NoError(t, s.RecordRow(ctx, &models.RowResult{
		ID: uuid.New(), RunID: run.ID, RowIndex: 1, Identifier: "WL-2",
		Outcome: models.RowOutcomeSkipped, ErrorMessage: &reason, CreatedAt: now,
	}))
	require.NoError(t, s.RecordRow(ctx, &models.RowResult{
		ID: uuid.New(), RunID: run.ID, RowIndex: 0, Identifier: "WL-1",
		Outcome: models.RowOutcomeProcessed, ImageURL: &url, CreatedAt: now,
	}))

	rows, err := s.ListRowResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].RowIndex)
	require.NotNil(t, rows[0].ImageURL)
	assert.Equal(t, url, *rows[0].ImageURL)
	assert.Equal(t, models.RowOutcomeSkipped, rows[1].Outcome)
	assert.Nil(t, rows[1].ImageURL)
}

func TestRowResults_RecordReplacesSameRow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()
	run := newRun(t, s)
	now := time.Now().UTC()

	msg := "timeout"
	require.NoError(t, s.RecordRow(ctx, &models.RowResult{
		ID: uuid.New(), RunID: run.ID, RowIndex: 0, Outcome: models.RowOutcomeError, ErrorMessage: &msg, CreatedAt: now,
	}))
	url := "https://cdn.example.com/a.png"
	require.NoError(t, s.RecordRow(ctx, &models.RowResult{
		ID: uuid.New(), RunID: run.ID, RowIndex: 0, Outcome: models.RowOutcomeProcessed, ImageURL: &url, CreatedAt: now,
	}))

	rows, err := s.ListRowResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.RowOutcomeProcessed, rows[0].Outcome)
	assert.Nil(t, rows[0].ErrorMessage)
}

func TestRowResults_UnknownRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))

	err := s.RecordRow(context.Background(), &models.RowResult{
		ID: uuid.New(), RunID: uuid.New(), Outcome: models.RowOutcomeSkipped, CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRowResults_ListEmpty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))

	rows, err := s.ListRowResults(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// --- Ping Test ---

func TestPing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))

	assert.NoError(t, s.Ping(context.Background()))
}
