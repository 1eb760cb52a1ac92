package mock

import (
	"context"
	"sync"

	"github.com/kiranshivaraju/scenegen/internal/ai"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

// Model satisfies models.ChatModel for testing.
type Model struct {
	Name_      string
	InvokeFunc func(ctx context.Context, messages []models.Message) (*models.Response, error)

	// Calls records every conversation passed to Invoke.
	Calls [][]models.Message
	mu    sync.Mutex
}

func (m *Model) Name() string { return m.Name_ }

func (m *Model) Invoke(ctx context.Context, messages []models.Message) (*models.Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, messages)
	m.mu.Unlock()
	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, messages)
	}
	return &models.Response{Model: m.Name_}, nil
}

// NewTextModel returns a Model that always replies with text.
func NewTextModel(text string) *Model {
	return &Model{
		Name_: "mock-text",
		InvokeFunc: func(_ context.Context, _ []models.Message) (*models.Response, error) {
			return &models.Response{Model: "mock-text", Parts: []models.Part{models.TextPart(text)}}, nil
		},
	}
}

// NewImageModel returns a Model that always replies with one inline image.
func NewImageModel(data []byte, mimeType string) *Model {
	return &Model{
		Name_: "mock-image",
		InvokeFunc: func(_ context.Context, _ []models.Message) (*models.Response, error) {
			return &models.Response{Model: "mock-image", Parts: []models.Part{models.ImagePart(data, mimeType)}}, nil
		},
	}
}

// NewFailingModel returns a Model that always returns the given error.
func NewFailingModel(err error) *Model {
	return &Model{
		Name_: "mock-failing",
		InvokeFunc: func(_ context.Context, _ []models.Message) (*models.Response, error) {
			return nil, err
		},
	}
}

// NewTimeoutModel returns a Model that blocks until context is cancelled.
func NewTimeoutModel() *Model {
	return &Model{
		Name_: "mock-timeout",
		InvokeFunc: func(ctx context.Context, _ []models.Message) (*models.Response, error) {
			<-ctx.Done()
			return nil, ai.ErrInferenceTimeout
		},
	}
}

// Compile-time check that Model implements ChatModel.
var _ models.ChatModel = (*Model)(nil)
