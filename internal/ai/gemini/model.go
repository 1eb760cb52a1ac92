// Package gemini adapts google.golang.org/genai to models.ChatModel, over
// either Vertex AI or the Gemini Developer API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/auth/credentials"
	"google.golang.org/genai"

	"github.com/kiranshivaraju/scenegen/internal/ai"
	"github.com/kiranshivaraju/scenegen/internal/config"
	"github.com/kiranshivaraju/scenegen/internal/imagefetch"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// NewClient builds a genai client for the configured backend ("vertex" or "gemini").
func NewClient(ctx context.Context, provider string, cfg config.GoogleConfig) (*genai.Client, error) {
	cc := &genai.ClientConfig{}

	switch provider {
	case "vertex":
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.ProjectID
		cc.Location = cfg.Location
		if cfg.CredentialsPath != "" {
			creds, err := credentials.DetectDefault(&credentials.DetectOptions{
				Scopes:          []string{cloudPlatformScope},
				CredentialsFile: cfg.CredentialsPath,
			})
			if err != nil {
				return nil, fmt.Errorf("load google credentials: %w", err)
			}
			cc.Credentials = creds
		}
	case "gemini":
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
	default:
		return nil, fmt.Errorf("unknown genai backend %q", provider)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// Model implements models.ChatModel for a single Gemini model id.
type Model struct {
	client *genai.Client
	model  string
}

// NewModel returns a ChatModel bound to model on client.
func NewModel(client *genai.Client, model string) *Model {
	return &Model{client: client, model: model}
}

func (m *Model) Name() string { return m.model }

// Invoke sends the conversation through Models.GenerateContent and converts the
// first candidate back into model parts. Thought parts are dropped.
func (m *Model) Invoke(ctx context.Context, messages []models.Message) (*models.Response, error) {
	contents, err := toContents(messages)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return nil, classifyError(err)
	}

	return fromResponse(m.model, resp)
}

func toContents(messages []models.Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		parts := make([]*genai.Part, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			part, err := toPart(p)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		role := genai.RoleUser
		if msg.Role == models.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.Role(role)))
	}
	return contents, nil
}

func toPart(p models.Part) (*genai.Part, error) {
	if p.Image == nil {
		return genai.NewPartFromText(p.Text), nil
	}

	img := p.Image
	if len(img.Data) > 0 {
		return genai.NewPartFromBytes(img.Data, img.MIMEType), nil
	}
	if strings.HasPrefix(strings.ToLower(img.URL), "data:") {
		data, mimeType, err := imagefetch.DecodeDataURL(img.URL)
		if err != nil {
			return nil, err
		}
		return genai.NewPartFromBytes(data, mimeType), nil
	}
	if img.URL != "" {
		return genai.NewPartFromURI(img.URL, img.MIMEType), nil
	}
	return nil, fmt.Errorf("image part has neither data nor url")
}

var blockedFinish = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:            true,
	genai.FinishReasonProhibitedContent: true,
	genai.FinishReasonBlocklist:         true,
}

func fromResponse(model string, resp *genai.GenerateContentResponse) (*models.Response, error) {
	if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked (%s)", ai.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ai.ErrInvalidResponse)
	}
	if blockedFinish[resp.Candidates[0].FinishReason] {
		return nil, fmt.Errorf("%w: finish reason %s", ai.ErrContentBlocked, resp.Candidates[0].FinishReason)
	}
	if resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: no content", ai.ErrInvalidResponse)
	}

	out := &models.Response{Model: model}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part == nil || part.Thought:
			continue
		case part.InlineData != nil:
			out.Parts = append(out.Parts, models.ImagePart(part.InlineData.Data, part.InlineData.MIMEType))
		case part.FileData != nil:
			out.Parts = append(out.Parts, models.ImageURLPart(part.FileData.FileURI, part.FileData.MIMEType))
		case part.Text != "":
			out.Parts = append(out.Parts, models.TextPart(part.Text))
		}
	}
	if len(out.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty content", ai.ErrInvalidResponse)
	}
	return out, nil
}

// classifyError maps genai failures to the ai sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ai.ErrInferenceTimeout, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", ai.ErrProviderUnavailable, err)
		}
	}

	return fmt.Errorf("generate content: %w", err)
}

// Compile-time check that Model implements ChatModel.
var _ models.ChatModel = (*Model)(nil)

// NewModels builds the text and image models for cfg. Both share one client.
func NewModels(ctx context.Context, cfg config.AIConfig) (text, image *Model, err error) {
	client, err := NewClient(ctx, cfg.Provider, cfg.Google)
	if err != nil {
		return nil, nil, err
	}
	return NewModel(client, cfg.TextModel), NewModel(client, cfg.ImageModel), nil
}
