package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/kiranshivaraju/scenegen/internal/ai"
	"github.com/kiranshivaraju/scenegen/pkg/models"
)

func TestToContents(t *testing.T) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg"))
	msgs := []models.Message{
		models.UserMessage(
			models.TextPart("edit this"),
			models.ImagePart([]byte("png"), "image/png"),
			models.ImageURLPart(dataURL, ""),
			models.ImageURLPart("gs://bucket/silo.png", "image/png"),
		),
		{Role: models.RoleModel, Parts: []models.Part{models.TextPart("ok")}},
	}

	contents, err := toContents(msgs)
	require.NoError(t, err)
	require.Len(t, contents, 2)

	parts := contents[0].Parts
	require.Len(t, parts, 4)
	assert.Equal(t, "edit this", parts[0].Text)
	assert.Equal(t, []byte("png"), parts[1].InlineData.Data)
	assert.Equal(t, "image/jpeg", parts[2].InlineData.MIMEType)
	assert.Equal(t, []byte("jpeg"), parts[2].InlineData.Data)
	assert.Equal(t, "gs://bucket/silo.png", parts[3].FileData.FileURI)

	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
}

func TestToContents_EmptyImage(t *testing.T) {
	_, err := toContents([]models.Message{{Role: models.RoleUser, Parts: []models.Part{{Image: &models.Image{}}}}})
	assert.Error(t, err)
}

func TestFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Here is your image"},
				{InlineData: &genai.Blob{Data: []byte("png"), MIMEType: "image/png"}},
			}},
		}},
	}

	out, err := fromResponse("gemini-2.5-flash-image", resp)
	require.NoError(t, err)
	assert.Equal(t, "Here is your image", out.Text())
	require.Len(t, out.Images(), 1)
	assert.Equal(t, "image/png", out.Images()[0].MIMEType)
}

func TestFromResponse_Empty(t *testing.T) {
	for _, resp := range []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "x", Thought: true}}}}}},
	} {
		_, err := fromResponse("m", resp)
		assert.ErrorIs(t, err, ai.ErrInvalidResponse)
	}
}

func TestFromResponse_Blocked(t *testing.T) {
	for _, resp := range []*genai.GenerateContentResponse{
		{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety}},
		{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonProhibitedContent}}},
	} {
		_, err := fromResponse("m", resp)
		assert.ErrorIs(t, err, ai.ErrContentBlocked)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{genai.APIError{Code: 429, Message: "quota"}, ai.ErrQuotaExceeded},
		{genai.APIError{Code: 503, Message: "unavailable"}, ai.ErrProviderUnavailable},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), ai.ErrInferenceTimeout},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, classifyError(tt.err), tt.want)
	}

	err := classifyError(genai.APIError{Code: 400, Message: "bad request"})
	assert.False(t, errors.Is(err, ai.ErrProviderUnavailable))
}
