package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiranshivaraju/scenegen/pkg/models"
)

// Limiter blocks until the caller may issue one more model request.
// *rate.Limiter and *RedisQuota both satisfy it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Options configures the decorators applied by Wrap.
type Options struct {
	Timeout time.Duration
	Limiter Limiter
}

// Wrap applies the configured limiter and timeout to m. The limiter wait is
// not counted against the timeout.
func Wrap(m models.ChatModel, opts Options) models.ChatModel {
	return WithLimiter(WithTimeout(m, opts.Timeout), opts.Limiter)
}

// WithTimeout bounds every Invoke call by d. A zero d returns m unchanged.
func WithTimeout(m models.ChatModel, d time.Duration) models.ChatModel {
	if d <= 0 {
		return m
	}
	return &timeoutModel{next: m, timeout: d}
}

type timeoutModel struct {
	next    models.ChatModel
	timeout time.Duration
}

func (m *timeoutModel) Name() string { return m.next.Name() }

func (m *timeoutModel) Invoke(ctx context.Context, messages []models.Message) (*models.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.next.Invoke(ctx, messages)
	if err != nil && !errors.Is(err, ErrInferenceTimeout) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s did not answer within %s", ErrInferenceTimeout, m.next.Name(), m.timeout)
	}
	return resp, err
}

// WithLimiter makes every Invoke wait on l first. A nil l returns m unchanged.
func WithLimiter(m models.ChatModel, l Limiter) models.ChatModel {
	if l == nil {
		return m
	}
	return &limitedModel{next: m, limiter: l}
}

type limitedModel struct {
	next    models.ChatModel
	limiter Limiter
}

func (m *limitedModel) Name() string { return m.next.Name() }

func (m *limitedModel) Invoke(ctx context.Context, messages []models.Message) (*models.Response, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for model quota: %w", err)
	}
	return m.next.Invoke(ctx, messages)
}
