package batch

import (
	"context"
	"log/slog"

	"github.com/kiranshivaraju/scenegen/internal/prompt"
	"github.com/kiranshivaraju/scenegen/internal/room"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

// PromptSource produces the original (pre-improvement) prompt for a product.
type PromptSource interface {
	Prompt(ctx context.Context, p models.ProductRecord) string
}

// PlacePrompts returns the generic place-in-room directive for every product.
type PlacePrompts struct {
	RoomType       string
	OtherFurniture string
}

func (s PlacePrompts) Prompt(context.Context, models.ProductRecord) string {
	return prompt.PlaceInRoom(s.RoomType, s.OtherFurniture)
}

// Classifier is satisfied by *vision.Classifier.
type Classifier interface {
	Classify(ctx context.Context, imageURL, websiteURL string) (models.ClassificationResult, error)
}

// ScenePrompts classifies the silo image, picks a room context and renders
// the detailed room-scene prompt. Classification failures fall back to
// Fallback (PlacePrompts when nil).
type ScenePrompts struct {
	Classifier Classifier
	Rooms      *room.Selector
	Fallback   PromptSource
	Logger     *slog.Logger
}

func (s *ScenePrompts) Prompt(ctx context.Context, p models.ProductRecord) string {
	c, err := s.Classifier.Classify(ctx, p.SiloImage, p.WebsiteLinkForContext)
	if err != nil {
		logger := s.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("image analysis failed, using place-in-room prompt", "product", p.Identifier(), "error", err)

		fallback := s.Fallback
		if fallback == nil {
			fallback = PlacePrompts{}
		}
		return fallback.Prompt(ctx, p)
	}
	return prompt.RoomScene(c, s.Rooms.Select(c.FurnitureType))
}

var (
	_ PromptSource = PlacePrompts{}
	_ PromptSource = (*ScenePrompts)(nil)
)
