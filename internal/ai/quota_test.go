package ai

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeCounter struct {
	counts map[string]int64
	keys   []string
	err    error
}

func (c *fakeCounter) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	c.keys = append(c.keys, key)
	return c.counts[key], nil
}

func TestRedisQuota_AllowsWithinWindow(t *testing.T) {
	counter := &fakeCounter{}
	q := NewRedisQuota(counter, "image", 2)
	base := time.Date(2026, 3, 1, 12, 0, 10, 0, time.UTC)
	q.now = func() time.Time { return base }

	require.NoError(t, q.Wait(context.Background()))
	require.NoError(t, q.Wait(context.Background()))
	assert.Equal(t, []string{
		"quota:image:" + strconv.FormatInt(base.Truncate(time.Minute).Unix(), 10),
		"quota:image:" + strconv.FormatInt(base.Truncate(time.Minute).Unix(), 10),
	}, counter.keys)
}

func TestRedisQuota_WaitsForNextWindow(t *testing.T) {
	counter := &fakeCounter{}
	q := NewRedisQuota(counter, "text", 1)
	clock := time.Date(2026, 3, 1, 12, 0, 45, 0, time.UTC)
	q.now = func() time.Time { return clock }

	var waited []time.Duration
	q.after = func(d time.Duration) <-chan time.Time {
		waited = append(waited, d)
		clock = clock.Add(d)
		ch := make(chan time.Time, 1)
		ch <- clock
		return ch
	}

	require.NoError(t, q.Wait(context.Background()))
	require.NoError(t, q.Wait(context.Background()))

	assert.Equal(t, []time.Duration{15 * time.Second}, waited)
	assert.Len(t, counter.counts, 2)
}

func TestRedisQuota_CancelledWhileWaiting(t *testing.T) {
	q := NewRedisQuota(&fakeCounter{}, "text", 1)
	q.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	q.after = func(time.Duration) <-chan time.Time { return make(chan time.Time) }

	require.NoError(t, q.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	assert.ErrorIs(t, q.Wait(ctx), context.Canceled)
}

func TestRedisQuota_FailsOpen(t *testing.T) {
	q := NewRedisQuota(&fakeCounter{err: errors.New("connection refused")}, "text", 1)
	for i := 0; i < 5; i++ {
		assert.NoError(t, q.Wait(context.Background()))
	}
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter("text", 0, nil))

	_, ok := NewLimiter("text", 30, nil).(*rate.Limiter)
	assert.True(t, ok)

	_, ok = NewLimiter("text", 30, &fakeCounter{}).(*RedisQuota)
	assert.True(t, ok)
}
