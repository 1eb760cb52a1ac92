// Package pipeline runs the per-product generation state machine: a fixed,
// acyclic sequence of steps over one mutable State.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/scenegen/internal/imagefetch"
	"github.com/kiranshivaraju/scenegen/internal/imageproc"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

var (
	// ErrPreconditionViolation is returned when an edit step runs without
	// source image bytes or MIME type.
	ErrPreconditionViolation = errors.New("pipeline precondition violated")
	// ErrNoImage is returned when a model reply carries no image.
	ErrNoImage = errors.New("model reply contains no image")
)

// State is the work item carried through a pipeline. It is owned by exactly
// one run; steps mutate it in place.
type State struct {
	OriginalPrompt string
	ImprovedPrompt string
	Product        models.ProductRecord
	Response       *models.Response
	// Err holds the most recent recoverable step failure.
	Err error

	SourceImage []byte
	SourceMIME  string

	// TargetWidth and TargetHeight of 0 mean unset.
	TargetWidth  int
	TargetHeight int

	Refinement *Refinement
}

// Refinement carries the inputs of the second (edit) stage.
type Refinement struct {
	SiloImageURL      string
	LifestyleImageURL string
	EditRequest       string

	// ReferenceImage is the product silo photo sent as the first image.
	ReferenceImage []byte
	ReferenceMIME  string
}

func (s *State) record(step string, err error) {
	s.Err = fmt.Errorf("%s: %w", step, err)
}

// Step is one node of a pipeline. Only a returned error halts the pipeline;
// recoverable failures are recorded on the State instead.
type Step struct {
	Name string
	Run  func(ctx context.Context, s *State) error
}

// Runner executes a pipeline variant over a State.
type Runner interface {
	Run(ctx context.Context, s *State) (*State, error)
}

// Deps are the collaborators shared by every step.
type Deps struct {
	Text    models.ChatModel
	Image   models.ChatModel
	Fetcher imagefetch.Fetcher
	Resizer imageproc.Resizer
	Logger  *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Pipeline is a linear sequence of steps ending at END.
type Pipeline struct {
	Name   string
	Steps  []Step
	logger *slog.Logger
}

// Run executes every step in order and returns the final state.
func (p *Pipeline) Run(ctx context.Context, s *State) (*State, error) {
	logger := p.logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		start := time.Now()
		logger.Debug("pipeline step started", "pipeline", p.Name, "step", step.Name, "product", s.Product.Identifier())
		if err := step.Run(ctx, s); err != nil {
			logger.Error("pipeline step failed", "pipeline", p.Name, "step", step.Name, "error", err)
			return s, fmt.Errorf("%s: %w", step.Name, err)
		}
		logger.Debug("pipeline step finished", "pipeline", p.Name, "step", step.Name, "duration_ms", time.Since(start).Milliseconds())
	}
	return s, nil
}

// NewSinglePass builds improve_prompt → load_image → resize_image → edit_image.
func NewSinglePass(d Deps) *Pipeline {
	return &Pipeline{
		Name: "single_pass",
		Steps: []Step{
			{Name: "improve_prompt", Run: d.improvePrompt},
			{Name: "load_image", Run: d.loadImage},
			{Name: "resize_image", Run: d.resizeImage},
			{Name: "edit_image", Run: d.editImage},
		},
		logger: d.logger(),
	}
}

// NewRefinement builds analyze_images → refine_prompt → reedit_image. The
// State must carry a Refinement.
func NewRefinement(d Deps) *Pipeline {
	return &Pipeline{
		Name: "refinement",
		Steps: []Step{
			{Name: "analyze_images", Run: d.analyzeImages},
			{Name: "refine_prompt", Run: d.refinePrompt},
			{Name: "reedit_image", Run: d.reeditImage},
		},
		logger: d.logger(),
	}
}

// TwoStage runs First, then feeds its generated image into Second as the
// edit target with the silo photo as the reference.
type TwoStage struct {
	First   Runner
	Second  Runner
	Fetcher imagefetch.Fetcher
}

// NewTwoStage wires the single-pass and refinement pipelines over d.
func NewTwoStage(d Deps) *TwoStage {
	return &TwoStage{First: NewSinglePass(d), Second: NewRefinement(d), Fetcher: d.Fetcher}
}

// Run executes both stages. The edit request comes from s.Refinement; without
// one, only the first stage runs. The returned state is the second stage's.
func (t *TwoStage) Run(ctx context.Context, s *State) (*State, error) {
	first, err := t.First.Run(ctx, s)
	if err != nil {
		return first, err
	}
	if first.Refinement == nil || first.Refinement.EditRequest == "" {
		return first, nil
	}

	if first.Response == nil && first.Err != nil {
		return first, fmt.Errorf("stage one: %w", first.Err)
	}
	data, mimeType, err := FirstImage(ctx, first.Response, t.Fetcher)
	if err != nil {
		return first, fmt.Errorf("stage one: %w", err)
	}

	ref := *first.Refinement
	if ref.SiloImageURL == "" {
		ref.SiloImageURL = first.Product.SiloImage
	}
	if ref.ReferenceImage == nil {
		ref.ReferenceImage, ref.ReferenceMIME = first.SourceImage, first.SourceMIME
	}

	second := &State{
		OriginalPrompt: ref.EditRequest,
		Product:        first.Product,
		Err:            first.Err,
		SourceImage:    data,
		SourceMIME:     mimeType,
		Refinement:     &ref,
	}
	return t.Second.Run(ctx, second)
}

// FirstImage returns the bytes of the first image in resp. Inline data is
// used as is, data: URLs are decoded and remote URLs are downloaded.
func FirstImage(ctx context.Context, resp *models.Response, fetcher imagefetch.Fetcher) ([]byte, string, error) {
	images := resp.Images()
	if len(images) == 0 {
		return nil, "", ErrNoImage
	}

	img := images[0]
	switch {
	case len(img.Data) > 0:
		mimeType := img.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return img.Data, mimeType, nil
	case imagefetch.IsDataURL(img.URL):
		return imagefetch.DecodeDataURL(img.URL)
	case img.URL != "":
		if fetcher == nil {
			return nil, "", fmt.Errorf("%w: remote image %s but no fetcher configured", ErrNoImage, img.URL)
		}
		return fetcher.Fetch(ctx, img.URL)
	default:
		return nil, "", ErrNoImage
	}
}

var (
	_ Runner = (*Pipeline)(nil)
	_ Runner = (*TwoStage)(nil)
)
