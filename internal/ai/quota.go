package ai

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/kiranshivaraju/scenegen/internal/cache"
)

// Counter is the slice of cache.Cache used by RedisQuota.
type Counter interface {
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// NewLimiter returns the request limiter for perMinute model calls. With a
// counter the budget is shared through Redis across processes; without one an
// in-process token bucket is used. perMinute <= 0 disables limiting.
func NewLimiter(name string, perMinute int, counter Counter) Limiter {
	if perMinute <= 0 {
		return nil
	}
	if counter != nil {
		return NewRedisQuota(counter, name, perMinute)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// RedisQuota is a fixed one-minute window shared by every process that uses
// the same name. When the window is exhausted Wait sleeps until the next one.
// Redis failures fail open.
type RedisQuota struct {
	counter Counter
	name    string
	limit   int64

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewRedisQuota creates a quota allowing perMinute calls per window.
func NewRedisQuota(counter Counter, name string, perMinute int) *RedisQuota {
	return &RedisQuota{
		counter: counter,
		name:    name,
		limit:   int64(perMinute),
		now:     time.Now,
		after:   time.After,
	}
}

func (q *RedisQuota) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := q.now()
		window := now.Truncate(time.Minute)
		n, err := q.counter.IncrWithExpiry(ctx, cache.QuotaKey(q.name, window.Unix()), 2*time.Minute)
		if err != nil {
			slog.Warn("model quota check failed, continuing without limit", "quota", q.name, "error", err)
			return nil
		}
		if n <= q.limit {
			return nil
		}

		wait := window.Add(time.Minute).Sub(now)
		slog.Debug("model quota exhausted, waiting for next window", "quota", q.name, "wait", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.after(wait):
		}
	}
}

var (
	_ Limiter = (*RedisQuota)(nil)
	_ Limiter = (*rate.Limiter)(nil)
)
