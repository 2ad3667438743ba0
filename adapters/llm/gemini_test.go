package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/satriahrh/cocoa-chat/config"
	"github.com/satriahrh/cocoa-chat/domain"
)

type fakeModels struct {
	resp *genai.GenerateContentResponse
	err  error

	gotModel string
	gotText  string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.gotText = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: text}},
			},
		}},
	}
}

func TestGenerateReturnsText(t *testing.T) {
	models := &fakeModels{resp: textResponse("Hi there")}
	g := &GeminiGenerator{models: models, model: "gemini-test"}

	text, err := g.Generate(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)
	assert.Equal(t, "gemini-test", models.gotModel)
	assert.Equal(t, "Hello", models.gotText)
}

func TestGenerateNormalizesErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "api error",
			err:  genai.APIError{Code: 429, Message: "quota exceeded", Status: "RESOURCE_EXHAUSTED"},
			want: "quota exceeded",
		},
		{
			name: "wrapped api error",
			err:  fmt.Errorf("transport: %w", genai.APIError{Code: 403, Message: "API key not valid"}),
			want: "API key not valid",
		},
		{
			name: "api error without message",
			err:  genai.APIError{Code: 500},
			want: "Failed to get a response from the model",
		},
		{
			name: "plain error",
			err:  errors.New("dial tcp: connection refused"),
			want: "dial tcp: connection refused",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := &GeminiGenerator{models: &fakeModels{err: tc.err}, model: "gemini-test"}

			_, err := g.Generate(context.Background(), "Hello")
			var failure *domain.GenerationFailure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tc.want, failure.Message)
		})
	}
}

func TestGenerateEmptyResponseIsFailure(t *testing.T) {
	for name, resp := range map[string]*genai.GenerateContentResponse{
		"nil":        nil,
		"no text":    textResponse(""),
		"candidates": {},
	} {
		t.Run(name, func(t *testing.T) {
			g := &GeminiGenerator{models: &fakeModels{resp: resp}, model: "gemini-test"}
			_, err := g.Generate(context.Background(), "Hello")
			var failure *domain.GenerationFailure
			require.ErrorAs(t, err, &failure)
		})
	}
}

func TestNewBackendWithoutKey(t *testing.T) {
	backend := NewBackend(context.Background(), config.Config{})
	assert.False(t, backend.IsAvailable())

	_, err := backend.Generator()
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
}

func TestNewGeminiGeneratorRequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), "", "")
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
}
