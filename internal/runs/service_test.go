package runs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/scenegen/internal/batch"
	"github.com/kiranshivaraju/scenegen/internal/store"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

// --- mocks ---

type mockStore struct {
	mu           sync.Mutex
	runs         map[uuid.UUID]*models.Run
	rows         []*models.RowResult
	statuses     []string
	createRunErr error
}

func newMockStore() *mockStore {
	return &mockStore{runs: make(map[uuid.UUID]*models.Run)}
}

func (s *mockStore) Ping(context.Context) error { return nil }

func (s *mockStore) CreateRun(_ context.Context, run *models.Run) error {
	if s.createRunErr != nil {
		return s.createRunErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *mockStore) GetRun(_ context.Context, id uuid.UUID) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *mockStore) UpdateRunStatus(_ context.Context, id uuid.UUID, status string, _ ...store.RunUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = status
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *mockStore) RecordRow(_ context.Context, row *models.RowResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

func (s *mockStore) ListRowResults(_ context.Context, runID uuid.UUID) ([]*models.RowResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.RowResult
	for _, r := range s.rows {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockCache struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]string
}

func newMockCache() *mockCache {
	return &mockCache{statuses: make(map[uuid.UUID]string)}
}

func (c *mockCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (c *mockCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (c *mockCache) Delete(context.Context, string) error                     { return nil }
func (c *mockCache) Ping(context.Context) error                               { return nil }
func (c *mockCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

func (c *mockCache) SetRunStatus(_ context.Context, id uuid.UUID, status string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[id] = status
	return nil
}

func (c *mockCache) GetRunStatus(_ context.Context, id uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[id]
	return s, ok, nil
}

type batchFunc func(ctx context.Context) (*batch.Summary, error)

func (f batchFunc) Run(ctx context.Context) (*batch.Summary, error) { return f(ctx) }

func launcher(fn batchFunc) Launcher {
	return func(*models.Run, batch.Recorder) (Batch, error) { return fn, nil }
}

// --- tests ---

func TestTrigger_Completes(t *testing.T) {
	st, ca := newMockStore(), newMockCache()
	var recorded batch.Recorder
	svc := NewService(st, ca, func(run *models.Run, rec batch.Recorder) (Batch, error) {
		recorded = rec
		return batchFunc(func(ctx context.Context) (*batch.Summary, error) {
			return &batch.Summary{Processed: 2, Skipped: 1}, nil
		}), nil
	}, "in.xlsx", "out.xlsx")

	run, err := svc.Trigger(context.Background(), TriggerParams{})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPending, run.Status)
	assert.Equal(t, models.RunModeGenerate, run.Mode)
	assert.Equal(t, "in.xlsx", run.InputPath)

	svc.Wait()

	got, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, []string{models.RunStatusRunning, models.RunStatusCompleted}, st.statuses)
	assert.Equal(t, models.RunStatusCompleted, ca.statuses[run.ID])
	assert.Same(t, st, recorded)
}

func TestTrigger_BatchFailureMarksFailed(t *testing.T) {
	st := newMockStore()
	svc := NewService(st, nil, launcher(func(ctx context.Context) (*batch.Summary, error) {
		return nil, errors.New("reading catalog: no such file")
	}), "in.xlsx", "out.xlsx")

	run, err := svc.Trigger(context.Background(), TriggerParams{Mode: models.RunModeRefine})
	require.NoError(t, err)
	svc.Wait()

	got, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
}

func TestTrigger_PanicMarksFailed(t *testing.T) {
	st := newMockStore()
	svc := NewService(st, newMockCache(), launcher(func(ctx context.Context) (*batch.Summary, error) {
		panic("boom")
	}), "in.xlsx", "out.xlsx")

	run, err := svc.Trigger(context.Background(), TriggerParams{})
	require.NoError(t, err)
	svc.Wait()

	got, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
}

func TestTrigger_LaunchErrorMarksFailed(t *testing.T) {
	st := newMockStore()
	svc := NewService(st, nil, func(*models.Run, batch.Recorder) (Batch, error) {
		return nil, errors.New("unsupported catalog format")
	}, "in.txt", "out.txt")

	run, err := svc.Trigger(context.Background(), TriggerParams{})
	require.NoError(t, err)
	svc.Wait()

	got, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
}

func TestTrigger_RejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	svc := NewService(newMockStore(), nil, launcher(func(ctx context.Context) (*batch.Summary, error) {
		<-release
		return &batch.Summary{}, nil
	}), "in.xlsx", "out.xlsx")

	_, err := svc.Trigger(context.Background(), TriggerParams{})
	require.NoError(t, err)

	_, err = svc.Trigger(context.Background(), TriggerParams{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	svc.Wait()

	_, err = svc.Trigger(context.Background(), TriggerParams{})
	assert.NoError(t, err, "a new run may start once the previous one finished")
	svc.Wait()
}

func TestTrigger_InvalidMode(t *testing.T) {
	svc := NewService(newMockStore(), nil, nil, "in.xlsx", "out.xlsx")

	_, err := svc.Trigger(context.Background(), TriggerParams{Mode: "upscale"})
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestTrigger_StoreError(t *testing.T) {
	st := newMockStore()
	st.createRunErr = errors.New("connection refused")
	svc := NewService(st, nil, nil, "in.xlsx", "out.xlsx")

	_, err := svc.Trigger(context.Background(), TriggerParams{})
	assert.ErrorContains(t, err, "creating run")

	// The failed trigger must not block later runs.
	st.createRunErr = nil
	svc.launch = launcher(func(ctx context.Context) (*batch.Summary, error) { return &batch.Summary{}, nil })
	_, err = svc.Trigger(context.Background(), TriggerParams{})
	assert.NoError(t, err)
	svc.Wait()
}

func TestGet_PrefersNewerCachedStatus(t *testing.T) {
	st, ca := newMockStore(), newMockCache()
	id := uuid.New()
	st.runs[id] = &models.Run{ID: id, Status: models.RunStatusPending}
	ca.statuses[id] = models.RunStatusRunning

	svc := NewService(st, ca, nil, "", "")
	got, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, got.Status)

	st.runs[id].Status = models.RunStatusCompleted
	got, err = svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(newMockStore(), nil, nil, "", "")

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Rows(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRows(t *testing.T) {
	st := newMockStore()
	id := uuid.New()
	st.runs[id] = &models.Run{ID: id, Status: models.RunStatusCompleted}
	st.rows = []*models.RowResult{
		{RunID: id, RowIndex: 0, Outcome: models.RowOutcomeProcessed},
		{RunID: uuid.New(), RowIndex: 0, Outcome: models.RowOutcomeSkipped},
	}

	rows, err := NewService(st, nil, nil, "", "").Rows(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.RowOutcomeProcessed, rows[0].Outcome)
}
