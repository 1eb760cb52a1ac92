package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/scenegen/internal/ai"
	"github.com/kiranshivaraju/scenegen/internal/imageproc"
	"github.com/kiranshivaraju/scenegen/internal/prompt"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

// askText invokes model and returns the trimmed reply text. An empty reply
// is an error so callers can fall back.
func askText(ctx context.Context, model models.ChatModel, parts ...models.Part) (string, error) {
	resp, err := model.Invoke(ctx, []models.Message{models.UserMessage(parts...)})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty reply from %s", ai.ErrInvalidResponse, model.Name())
	}
	return text, nil
}

func (d Deps) improvePrompt(ctx context.Context, s *State) error {
	improved, err := askText(ctx, d.Text, models.TextPart(prompt.Improvement(s.Product, s.OriginalPrompt)))
	if err != nil {
		d.logger().Warn("prompt improvement failed, using original prompt", "product", s.Product.Identifier(), "error", err)
		s.ImprovedPrompt = s.OriginalPrompt
		s.record("improve_prompt", err)
		return nil
	}

	d.logger().Info("prompt improved", "product", s.Product.Identifier(), "chars", len(improved))
	s.ImprovedPrompt = improved
	return nil
}

func (d Deps) loadImage(ctx context.Context, s *State) error {
	data, mimeType, err := d.Fetcher.Fetch(ctx, s.Product.SiloImage)
	if err != nil {
		d.logger().Warn("failed to load source image", "product", s.Product.Identifier(), "url", s.Product.SiloImage, "error", err)
		s.SourceImage, s.SourceMIME = nil, ""
		s.record("load_image", err)
		return nil
	}

	d.logger().Info("source image loaded", "product", s.Product.Identifier(), "bytes", len(data), "mime_type", mimeType)
	s.SourceImage, s.SourceMIME = data, mimeType
	return nil
}

func (d Deps) resizeImage(_ context.Context, s *State) error {
	if s.TargetWidth == 0 && s.TargetHeight == 0 {
		return nil
	}

	w, h := s.TargetWidth, s.TargetHeight
	if w == 0 {
		w = imageproc.DefaultDimension
	}
	if h == 0 {
		h = imageproc.DefaultDimension
	}

	if s.SourceImage == nil {
		s.record("resize_image", fmt.Errorf("%w: no source image", imageproc.ErrDecode))
		return nil
	}

	data, mimeType, err := d.Resizer.Resize(s.SourceImage, s.SourceMIME, w, h)
	if err != nil {
		d.logger().Warn("image resize failed, keeping original", "product", s.Product.Identifier(), "error", err)
		s.record("resize_image", err)
		return nil
	}

	d.logger().Info("source image resized", "product", s.Product.Identifier(), "width", w, "height", h)
	s.SourceImage, s.SourceMIME = data, mimeType
	return nil
}

func (d Deps) editImage(ctx context.Context, s *State) error {
	if s.SourceImage == nil || s.SourceMIME == "" {
		return fmt.Errorf("%w: edit_image requires source image data and MIME type", ErrPreconditionViolation)
	}

	resp, err := d.Image.Invoke(ctx, []models.Message{models.UserMessage(
		models.TextPart(s.ImprovedPrompt),
		models.ImagePart(s.SourceImage, s.SourceMIME),
	)})
	if err != nil {
		d.logger().Warn("image edit failed", "product", s.Product.Identifier(), "error", err)
		s.Response = nil
		s.record("edit_image", err)
		return nil
	}

	d.logger().Info("image edited", "product", s.Product.Identifier(), "images", len(resp.Images()))
	s.Response = resp
	return nil
}

// analyzeImages compares the silo reference with the lifestyle target and
// drafts an edit instruction. Missing image bytes are downloaded first.
func (d Deps) analyzeImages(ctx context.Context, s *State) error {
	ref := s.Refinement
	if ref == nil {
		return fmt.Errorf("%w: analyze_images requires refinement inputs", ErrPreconditionViolation)
	}

	if ref.ReferenceImage == nil && ref.SiloImageURL != "" {
		data, mimeType, err := d.Fetcher.Fetch(ctx, ref.SiloImageURL)
		if err != nil {
			s.record("analyze_images", err)
		} else {
			ref.ReferenceImage, ref.ReferenceMIME = data, mimeType
		}
	}
	if s.SourceImage == nil && ref.LifestyleImageURL != "" {
		data, mimeType, err := d.Fetcher.Fetch(ctx, ref.LifestyleImageURL)
		if err != nil {
			s.record("analyze_images", err)
		} else {
			s.SourceImage, s.SourceMIME = data, mimeType
		}
	}

	parts := []models.Part{models.TextPart(prompt.ImageAnalysis(s.Product, ref.EditRequest))}
	if ref.ReferenceImage != nil {
		parts = append(parts, models.ImagePart(ref.ReferenceImage, ref.ReferenceMIME))
	}
	if s.SourceImage != nil {
		parts = append(parts, models.ImagePart(s.SourceImage, s.SourceMIME))
	}

	analysis, err := askText(ctx, d.Image, parts...)
	if err != nil {
		d.logger().Warn("image analysis failed, using edit request", "product", s.Product.Identifier(), "error", err)
		s.ImprovedPrompt = s.OriginalPrompt
		s.record("analyze_images", err)
		return nil
	}

	s.ImprovedPrompt = analysis
	return nil
}

func (d Deps) refinePrompt(ctx context.Context, s *State) error {
	draft := s.ImprovedPrompt
	if draft == "" {
		draft = s.OriginalPrompt
	}
	editRequest := s.OriginalPrompt
	if s.Refinement != nil {
		editRequest = s.Refinement.EditRequest
	}

	refined, err := askText(ctx, d.Text, models.TextPart(prompt.Refinement(s.Product, draft, editRequest)))
	if err != nil {
		d.logger().Warn("prompt refinement failed, keeping draft", "product", s.Product.Identifier(), "error", err)
		s.ImprovedPrompt = draft
		s.record("refine_prompt", err)
		return nil
	}

	s.ImprovedPrompt = refined
	return nil
}

func (d Deps) reeditImage(ctx context.Context, s *State) error {
	if s.SourceImage == nil || s.SourceMIME == "" {
		return fmt.Errorf("%w: reedit_image requires target image data and MIME type", ErrPreconditionViolation)
	}

	parts := []models.Part{models.TextPart(prompt.Reedit(s.ImprovedPrompt))}
	if ref := s.Refinement; ref != nil && ref.ReferenceImage != nil {
		parts = append(parts, models.ImagePart(ref.ReferenceImage, ref.ReferenceMIME))
	}
	parts = append(parts, models.ImagePart(s.SourceImage, s.SourceMIME))

	resp, err := d.Image.Invoke(ctx, []models.Message{models.UserMessage(parts...)})
	if err != nil {
		d.logger().Warn("image re-edit failed", "product", s.Product.Identifier(), "error", err)
		s.Response = nil
		s.record("reedit_image", err)
		return nil
	}

	s.Response = resp
	return nil
}
