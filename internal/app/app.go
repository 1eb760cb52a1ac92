// Package app assembles the batch collaborators from configuration. Both
// entry points share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/scenegen/internal/ai"
	"github.com/kiranshivaraju/scenegen/internal/ai/gemini"
	"github.com/kiranshivaraju/scenegen/internal/batch"
	"github.com/kiranshivaraju/scenegen/internal/cache"
	"github.com/kiranshivaraju/scenegen/internal/catalog"
	"github.com/kiranshivaraju/scenegen/internal/config"
	"github.com/kiranshivaraju/scenegen/internal/imagefetch"
	"github.com/kiranshivaraju/scenegen/internal/imageproc"
	"github.com/kiranshivaraju/scenegen/internal/pipeline"
	"github.com/kiranshivaraju/scenegen/internal/publish"
	"github.com/kiranshivaraju/scenegen/internal/room"
	"github.com/kiranshivaraju/scenegen/internal/vision"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

// Components holds the long-lived collaborators of a batch.
type Components struct {
	Text      models.ChatModel
	Image     models.ChatModel
	Fetcher   imagefetch.Fetcher
	Resizer   imageproc.Resizer
	Publisher publish.Publisher
	Prompts   batch.PromptSource

	cfg     *config.Config
	logger  *slog.Logger
	closers []func() error
}

// Build creates the models, fetcher, publisher and prompt source for cfg.
// ca may be nil; when set it backs the vision cache and the shared model quota.
func Build(ctx context.Context, cfg *config.Config, ca cache.Cache, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Components{cfg: cfg, logger: logger}

	text, image, err := gemini.NewModels(ctx, cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("create models: %w", err)
	}

	var counter ai.Counter
	if ca != nil {
		counter = ca
	}
	c.Text = ai.Wrap(text, ai.Options{
		Timeout: cfg.AI.InferenceTimeout,
		Limiter: ai.NewLimiter(cfg.AI.TextModel, cfg.AI.RequestsPerMinute, counter),
	})
	c.Image = ai.Wrap(image, ai.Options{
		Timeout: cfg.AI.InferenceTimeout,
		Limiter: ai.NewLimiter(cfg.AI.ImageModel, cfg.AI.RequestsPerMinute, counter),
	})

	c.Fetcher = imagefetch.NewHTTPClient(cfg.Batch.FetchTimeout)
	c.Resizer = imageproc.NewPadResizer()

	c.Publisher, err = publish.New(cfg.Publish)
	if err != nil {
		return nil, fmt.Errorf("create publisher: %w", err)
	}

	c.Prompts = batch.PlacePrompts{}
	if cfg.Batch.PromptStrategy == "scene" {
		analyzer, err := vision.NewGoogleAnalyzer(ctx, cfg.AI.Google.CredentialsPath, cfg.Vision.MaxLabels)
		if err != nil {
			return nil, fmt.Errorf("create vision analyzer: %w", err)
		}
		c.closers = append(c.closers, analyzer.Close)

		opts := []vision.ClassifierOption{vision.WithLogger(logger)}
		if ca != nil {
			opts = append(opts, vision.WithCache(ca, cfg.Vision.CacheTTL))
		}
		c.Prompts = &batch.ScenePrompts{
			Classifier: vision.NewClassifier(analyzer, c.Fetcher, opts...),
			Rooms:      selector(cfg.Batch.RoomSeed),
			Fallback:   batch.PlacePrompts{},
			Logger:     logger,
		}
	}

	logger.Info("components initialized",
		"provider", cfg.AI.Provider,
		"text_model", c.Text.Name(),
		"image_model", c.Image.Name(),
		"publish_backend", cfg.Publish.Backend,
		"prompt_strategy", cfg.Batch.PromptStrategy,
	)
	return c, nil
}

func selector(seed int64) *room.Selector {
	if seed == 0 {
		return room.NewSelector(nil)
	}
	return room.NewSeededSelector(seed)
}

// Orchestrator builds a batch over the configured catalog. mode overrides
// cfg.Batch.Mode when set; rec may be nil.
func (c *Components) Orchestrator(runID uuid.UUID, mode string, rec batch.Recorder) (*batch.Orchestrator, error) {
	store, err := catalog.NewStore(c.cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("create catalog store: %w", err)
	}
	if mode == "" {
		mode = c.cfg.Batch.Mode
	}

	d := pipeline.Deps{
		Text:    c.Text,
		Image:   c.Image,
		Fetcher: c.Fetcher,
		Resizer: c.Resizer,
		Logger:  c.logger,
	}

	return batch.New(batch.Dependencies{
		Catalog:   store,
		Generate:  pipeline.NewTwoStage(d),
		Refine:    pipeline.NewRefinement(d),
		Prompts:   c.Prompts,
		Publisher: c.Publisher,
		Fetcher:   c.Fetcher,
		Recorder:  rec,
	}, batch.Options{
		Mode:              mode,
		OutputDir:         c.cfg.Batch.OutputDir,
		RowDelay:          c.cfg.Batch.RowDelay,
		Workers:           c.cfg.Batch.Workers,
		TargetWidth:       c.cfg.Batch.TargetWidth,
		TargetHeight:      c.cfg.Batch.TargetHeight,
		RefineWithComment: c.cfg.Batch.RefineWithComment,
		RunID:             runID,
		Logger:            c.logger.With("run_id", runID),
	}), nil
}

// Close releases clients opened by Build.
func (c *Components) Close() error {
	var errs []error
	for _, fn := range c.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}
