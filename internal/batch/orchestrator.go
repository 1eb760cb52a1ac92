// Package batch walks the product catalog, runs the generation pipeline for
// each eligible row and writes the resulting image URLs back.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/scenegen/internal/catalog"
	"github.com/kiranshivaraju/scenegen/internal/imagefetch"
	"github.com/kiranshivaraju/scenegen/internal/pipeline"
	"github.com/kiranshivaraju/scenegen/internal/publish"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

// ErrorPrefix marks a failed row in the output column.
const ErrorPrefix = "ERROR: "

// DefaultRowDelay is applied after each successful generation.
const DefaultRowDelay = 2 * time.Second

// Modes.
const (
	ModeGenerate = models.RunModeGenerate
	ModeRefine   = models.RunModeRefine
)

// Recorder receives the outcome of every row. *store.PostgresStore satisfies it.
type Recorder interface {
	RecordRow(ctx context.Context, r *models.RowResult) error
}

// Dependencies holds the collaborators of an Orchestrator. Refine is only
// needed in refine mode; Prompts defaults to PlacePrompts.
type Dependencies struct {
	Catalog   catalog.Store
	Generate  pipeline.Runner
	Refine    pipeline.Runner
	Prompts   PromptSource
	Publisher publish.Publisher
	Fetcher   imagefetch.Fetcher
	Recorder  Recorder
}

// Options tunes a run.
type Options struct {
	Mode      string
	OutputDir string
	// RowDelay of 0 disables the delay; use DefaultRowDelay for the standard pacing.
	RowDelay time.Duration
	Workers  int

	TargetWidth  int
	TargetHeight int
	// RefineWithComment runs the refinement stage after generation for rows
	// that carry a Comment.
	RefineWithComment bool

	RunID  uuid.UUID
	Logger *slog.Logger
}

// Summary counts row outcomes.
type Summary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

func (s *Summary) add(outcome string) {
	switch outcome {
	case models.RowOutcomeProcessed:
		s.Processed++
	case models.RowOutcomeSkipped:
		s.Skipped++
	case models.RowOutcomeError:
		s.Errors++
	}
}

// Orchestrator runs one batch over a catalog.
type Orchestrator struct {
	deps   Dependencies
	opts   Options
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(deps Dependencies, opts Options) *Orchestrator {
	if opts.Mode == "" {
		opts.Mode = ModeGenerate
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "./output"
	}
	if deps.Prompts == nil {
		deps.Prompts = PlacePrompts{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{deps: deps, opts: opts, logger: logger, sleep: sleepCtx}
}

// rowResult is the evaluated outcome of one row, applied to the sheet later.
type rowResult struct {
	index      int
	identifier string
	outcome    string
	column     string
	value      string
	reason     string
}

// Run processes every row and persists the catalog. Catalog read, validation
// and write failures are fatal; row failures are recorded in the row.
// Cancellation stops taking new rows; the catalog is still written and the
// context error returned.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	// 1. Load and validate the catalog
	sheet, err := o.deps.Catalog.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if err := catalog.Validate(sheet); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	if o.opts.Mode == ModeRefine {
		if err := sheet.RequireColumns(catalog.ColComment); err != nil {
			return nil, fmt.Errorf("validating catalog: %w", err)
		}
		if o.deps.Refine == nil {
			return nil, errors.New("refine mode requires a refinement pipeline")
		}
	}

	o.logger.Info("processing catalog", "rows", sheet.Len(), "mode", o.opts.Mode, "workers", o.opts.Workers)

	// 2. Process rows
	summary := &Summary{}
	if o.opts.Workers > 1 {
		o.runConcurrent(ctx, sheet, summary)
	} else {
		o.runSequential(ctx, sheet, summary)
	}

	// 3. Persist the catalog even when cancelled
	if err := o.deps.Catalog.Write(context.WithoutCancel(ctx), sheet); err != nil {
		return summary, fmt.Errorf("writing catalog: %w", err)
	}

	o.logger.Info("processing complete",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"errors", summary.Errors,
	)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, sheet *catalog.Sheet, summary *Summary) {
	last := sheet.Len() - 1
	for i := 0; i < sheet.Len(); i++ {
		if ctx.Err() != nil {
			return
		}

		r := o.evaluate(ctx, sheet, i)
		o.apply(ctx, sheet, r, summary)

		if r.outcome == models.RowOutcomeProcessed && i < last {
			if err := o.sleep(ctx, o.opts.RowDelay); err != nil {
				return
			}
		}
	}
}

// runConcurrent evaluates rows on a bounded pool. Rows only read the sheet
// while in flight; results are applied in row order afterwards.
func (o *Orchestrator) runConcurrent(ctx context.Context, sheet *catalog.Sheet, summary *Summary) {
	results := make([]*rowResult, sheet.Len())
	last := sheet.Len() - 1

	g := new(errgroup.Group)
	g.SetLimit(o.opts.Workers)
	for i := 0; i < sheet.Len(); i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r := o.evaluate(ctx, sheet, i)
			results[i] = &r
			if r.outcome == models.RowOutcomeProcessed && i < last {
				_ = o.sleep(ctx, o.opts.RowDelay)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r != nil {
			o.apply(ctx, sheet, *r, summary)
		}
	}
}

func (o *Orchestrator) evaluate(ctx context.Context, sheet *catalog.Sheet, i int) (r rowResult) {
	r = rowResult{index: i, identifier: rowIdentifier(sheet, i)}
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("panic while processing row", "row", i+1, "error", rec)
			r.outcome, r.value, r.reason = models.RowOutcomeError, ErrorPrefix+fmt.Sprintf("panic: %v", rec), fmt.Sprintf("panic: %v", rec)
			r.column = o.outputColumn()
		}
	}()

	o.logger.Info("processing row", "row", i+1, "total", sheet.Len(), "product", r.identifier)

	p, err := catalog.ParseRecord(sheet, i)
	if err != nil {
		return o.failed(r, err)
	}

	if reason := o.skipReason(p, sheet.HasColumn(catalog.ColWL)); reason != "" {
		o.logger.Info("skipping row", "row", i+1, "product", r.identifier, "reason", reason)
		r.outcome, r.reason = models.RowOutcomeSkipped, reason
		return r
	}

	url, err := o.generate(ctx, p)
	if err != nil {
		return o.failed(r, err)
	}

	o.logger.Info("row processed", "row", i+1, "product", r.identifier, "url", url)
	r.outcome, r.column, r.value = models.RowOutcomeProcessed, o.outputColumn(), url
	return r
}

func (o *Orchestrator) failed(r rowResult, err error) rowResult {
	o.logger.Error("row failed", "row", r.index+1, "product", r.identifier, "error", err)
	r.outcome = models.RowOutcomeError
	r.column = o.outputColumn()
	r.value = ErrorPrefix + err.Error()
	r.reason = err.Error()
	return r
}

func (o *Orchestrator) outputColumn() string {
	if o.opts.Mode == ModeRefine {
		return catalog.ColEditedImage
	}
	return catalog.ColLifestyleImage
}

// skipReason returns why p is not processed, or "". The Model cell is always
// required; WL is required whenever the catalog carries a WL column.
func (o *Orchestrator) skipReason(p models.ProductRecord, hasWL bool) string {
	switch {
	case strings.TrimSpace(p.Model) == "":
		return "missing model identifier"
	case hasWL && strings.TrimSpace(p.WL) == "":
		return "missing WL id"
	case strings.TrimSpace(p.SiloImage) == "":
		return "missing silo image"
	}

	if o.opts.Mode == ModeRefine {
		switch {
		case !p.HasLifestyleImage() || strings.HasPrefix(p.LifestyleImage, ErrorPrefix):
			return "no lifestyle image to refine"
		case p.Comment == "":
			return "no edit request"
		case p.HasEditedImage():
			return "already has edited image"
		}
		return ""
	}

	if p.HasLifestyleImage() {
		return "already has lifestyle image"
	}
	return ""
}

// generate runs the pipeline for p, stores the first returned image locally
// and publishes it.
func (o *Orchestrator) generate(ctx context.Context, p models.ProductRecord) (string, error) {
	state := &pipeline.State{
		Product:      p,
		TargetWidth:  o.opts.TargetWidth,
		TargetHeight: o.opts.TargetHeight,
	}

	runner, suffix := o.deps.Generate, "_room"
	if o.opts.Mode == ModeRefine {
		runner, suffix = o.deps.Refine, "_edited"
		state.OriginalPrompt = p.Comment
		state.Refinement = &pipeline.Refinement{
			SiloImageURL:      p.SiloImage,
			LifestyleImageURL: p.LifestyleImage,
			EditRequest:       p.Comment,
		}
	} else {
		state.OriginalPrompt = o.deps.Prompts.Prompt(ctx, p)
		if o.opts.RefineWithComment && p.Comment != "" {
			state.Refinement = &pipeline.Refinement{SiloImageURL: p.SiloImage, EditRequest: p.Comment}
		}
	}

	final, err := runner.Run(ctx, state)
	if err != nil {
		return "", err
	}
	if final.Response == nil {
		if final.Err != nil {
			return "", final.Err
		}
		return "", pipeline.ErrNoImage
	}

	data, mimeType, err := pipeline.FirstImage(ctx, final.Response, o.deps.Fetcher)
	if err != nil {
		return "", err
	}

	name := publish.SanitizeName(p.Identifier() + suffix + extension(mimeType))
	localPath, err := publish.WriteImage(o.opts.OutputDir, name, data)
	if err != nil {
		return "", err
	}
	return o.deps.Publisher.Upload(ctx, localPath, name)
}

func (o *Orchestrator) apply(ctx context.Context, sheet *catalog.Sheet, r rowResult, summary *Summary) {
	summary.add(r.outcome)
	if r.column != "" {
		sheet.Set(r.index, r.column, r.value)
	}

	if o.deps.Recorder == nil {
		return
	}
	rec := &models.RowResult{
		ID:         uuid.New(),
		RunID:      o.opts.RunID,
		RowIndex:   r.index,
		Identifier: r.identifier,
		Outcome:    r.outcome,
		CreatedAt:  time.Now().UTC(),
	}
	switch r.outcome {
	case models.RowOutcomeProcessed:
		rec.ImageURL = &r.value
	case models.RowOutcomeError, models.RowOutcomeSkipped:
		rec.ErrorMessage = &r.reason
	}
	if err := o.deps.Recorder.RecordRow(context.WithoutCancel(ctx), rec); err != nil {
		o.logger.Warn("failed to record row result", "row", r.index+1, "error", err)
	}
}

func rowIdentifier(sheet *catalog.Sheet, i int) string {
	if id := sheet.Get(i, catalog.ColWL); id != "" {
		return id
	}
	return sheet.Get(i, catalog.ColModel)
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
