package vision

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/kiranshivaraju/scenegen/internal/cache"
	"github.com/kiranshivaraju/scenegen/internal/imagefetch"
)

type mockAnalyzer struct {
	fn    func(ctx context.Context, image []byte) (*Annotations, error)
	calls int
}

func (m *mockAnalyzer) Annotate(ctx context.Context, image []byte) (*Annotations, error) {
	m.calls++
	return m.fn(ctx, image)
}

type mockFetcher struct {
	fn func(ctx context.Context, url string) ([]byte, string, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	return m.fn(ctx, url)
}

type memCache struct {
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = value
	return nil
}

func okFetcher() *mockFetcher {
	return &mockFetcher{fn: func(context.Context, string) ([]byte, string, error) {
		return []byte("jpeg"), "image/jpeg", nil
	}}
}

func TestFromResponse(t *testing.T) {
	r := &visionpb.AnnotateImageResponse{}
	require.NoError(t, protojson.Unmarshal([]byte(`{
		"labelAnnotations": [{"description": "Furniture"}, {"description": "Clock"}],
		"localizedObjectAnnotations": [{"name": "Cabinet"}],
		"webDetection": {"webEntities": [{"description": "Grandfather clock"}, {"score": 0.2}]},
		"imagePropertiesAnnotation": {"dominantColors": {"colors": [
			{"color": {"red": 60, "green": 40, "blue": 30}, "score": 0.6},
			{"color": {"red": 250, "green": 250, "blue": 250}, "score": 0.3}
		]}}
	}`), r))

	a := fromResponse(r)
	assert.Equal(t, []string{"Furniture", "Clock"}, a.Labels)
	assert.Equal(t, []string{"Cabinet"}, a.Objects)
	assert.Equal(t, []string{"Grandfather clock"}, a.WebEntities)
	require.NotNil(t, a.DominantColor)
	assert.Equal(t, RGB{R: 60, G: 40, B: 30}, *a.DominantColor)
}

func TestFromResponse_NoColors(t *testing.T) {
	a := fromResponse(&visionpb.AnnotateImageResponse{})
	assert.Nil(t, a.DominantColor)
	assert.Empty(t, a.Labels)
}

func TestClassifier_Classify(t *testing.T) {
	analyzer := &mockAnalyzer{fn: func(context.Context, []byte) (*Annotations, error) {
		return &Annotations{
			Labels:        []string{"Clock", "Wall"},
			DominantColor: &RGB{R: 230, G: 230, B: 230},
		}, nil
	}}

	result, err := NewClassifier(analyzer, okFetcher()).Classify(context.Background(), "https://cdn.example.com/c.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, "wall clock", result.FurnitureType)
	assert.Equal(t, "light", result.ColorDesc)
	assert.Equal(t, []string{"clock", "wall"}, result.Labels)
}

func TestClassifier_WebsiteHints(t *testing.T) {
	analyzer := &mockAnalyzer{fn: func(context.Context, []byte) (*Annotations, error) {
		return &Annotations{Labels: []string{"Furniture"}}, nil
	}}

	result, err := NewClassifier(analyzer, okFetcher()).Classify(context.Background(),
		"https://cdn.example.com/c.jpg", "https://shop.example.com/products/oak-curio-cabinet")
	require.NoError(t, err)
	assert.Equal(t, "curio cabinet", result.FurnitureType)
	assert.Equal(t, "oak wood", result.Material)
	assert.Equal(t, "medium wood", result.ColorDesc)
}

func TestClassifier_UsesCache(t *testing.T) {
	analyzer := &mockAnalyzer{fn: func(context.Context, []byte) (*Annotations, error) {
		return &Annotations{Labels: []string{"Bookcase"}}, nil
	}}
	mc := &memCache{}
	c := NewClassifier(analyzer, okFetcher(), WithCache(mc, time.Hour))

	for i := 0; i < 2; i++ {
		result, err := c.Classify(context.Background(), "https://cdn.example.com/b.jpg", "")
		require.NoError(t, err)
		assert.Equal(t, "bookcase", result.FurnitureType)
	}
	assert.Equal(t, 1, analyzer.calls)

	raw, ok := mc.data[cache.AnnotationKey("https://cdn.example.com/b.jpg")]
	require.True(t, ok)
	var ann Annotations
	require.NoError(t, json.Unmarshal(raw, &ann))
	assert.Equal(t, []string{"Bookcase"}, ann.Labels)
}

func TestClassifier_FetchError(t *testing.T) {
	fetcher := &mockFetcher{fn: func(context.Context, string) ([]byte, string, error) {
		return nil, "", imagefetch.ErrHTTPStatus
	}}
	analyzer := &mockAnalyzer{fn: func(context.Context, []byte) (*Annotations, error) {
		t.Fatal("analyzer must not be called")
		return nil, nil
	}}

	_, err := NewClassifier(analyzer, fetcher).Classify(context.Background(), "https://x", "")
	assert.ErrorIs(t, err, imagefetch.ErrHTTPStatus)
}

func TestClassifier_AnalyzerError(t *testing.T) {
	analyzer := &mockAnalyzer{fn: func(context.Context, []byte) (*Annotations, error) {
		return nil, ErrAnnotate
	}}

	_, err := NewClassifier(analyzer, okFetcher()).Classify(context.Background(), "https://x", "")
	assert.True(t, errors.Is(err, ErrAnnotate))
}
