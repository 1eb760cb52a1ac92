package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kiranshivaraju/scenegen/internal/cache"
	"github.com/kiranshivaraju/scenegen/internal/classify"
	"github.com/kiranshivaraju/scenegen/internal/imagefetch"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

// AnnotationCache stores encoded annotations by key.
type AnnotationCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Classifier downloads a product image, annotates it and classifies it.
type Classifier struct {
	analyzer Analyzer
	fetcher  imagefetch.Fetcher
	cache    AnnotationCache
	ttl      time.Duration
	logger   *slog.Logger
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithCache caches annotations by image URL for ttl.
func WithCache(c AnnotationCache, ttl time.Duration) ClassifierOption {
	return func(cl *Classifier) {
		cl.cache = c
		cl.ttl = ttl
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ClassifierOption {
	return func(cl *Classifier) { cl.logger = l }
}

func NewClassifier(analyzer Analyzer, fetcher imagefetch.Fetcher, opts ...ClassifierOption) *Classifier {
	c := &Classifier{analyzer: analyzer, fetcher: fetcher, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify analyses the image at imageURL. websiteURL contributes extra hints
// taken from the product page path.
func (c *Classifier) Classify(ctx context.Context, imageURL, websiteURL string) (models.ClassificationResult, error) {
	ann, err := c.annotations(ctx, imageURL)
	if err != nil {
		return models.ClassificationResult{}, err
	}

	hints := classify.BuildHints(ann.Labels, ann.Objects, ann.WebEntities, websiteURL)
	result := classify.Classify(hints)

	result.Labels = make([]string, 0, len(ann.Labels))
	for _, l := range ann.Labels {
		result.Labels = append(result.Labels, strings.ToLower(l))
	}
	if ann.DominantColor != nil {
		result.ColorDesc = classify.ColorDescription(ann.DominantColor.R, ann.DominantColor.G, ann.DominantColor.B)
	}

	c.logger.Info("product image classified",
		"furniture_type", result.FurnitureType,
		"sub_type", result.SubType,
		"style", result.Style,
		"color", result.ColorDesc,
	)
	return result, nil
}

func (c *Classifier) annotations(ctx context.Context, imageURL string) (*Annotations, error) {
	key := cache.AnnotationKey(imageURL)
	if c.cache != nil {
		if raw, found, err := c.cache.Get(ctx, key); err != nil {
			c.logger.Warn("annotation cache read failed", "error", err)
		} else if found {
			var ann Annotations
			if err := json.Unmarshal(raw, &ann); err == nil {
				return &ann, nil
			}
		}
	}

	data, _, err := c.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("downloading image for analysis: %w", err)
	}

	ann, err := c.analyzer.Annotate(ctx, data)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(ann); err == nil {
			if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
				c.logger.Warn("annotation cache write failed", "error", err)
			}
		}
	}
	return ann, nil
}
