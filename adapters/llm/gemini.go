package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/satriahrh/cocoa-chat/config"
	"github.com/satriahrh/cocoa-chat/domain"
	"github.com/satriahrh/cocoa-chat/utils/log"
	"go.uber.org/zap"
)

// contentGenerator is the part of *genai.Models the generator needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiGenerator struct {
	models contentGenerator
	model  string
}

var (
	sharedOnce    sync.Once
	sharedBackend domain.Backend
)

// SharedBackend builds the process-wide Gemini backend on first use and
// returns the same handle afterwards. The credential is read only once.
func SharedBackend(ctx context.Context, cfg config.Config) domain.Backend {
	sharedOnce.Do(func() {
		sharedBackend = NewBackend(ctx, cfg)
	})
	return sharedBackend
}

// NewBackend returns an available backend when a key is configured and the
// client could be created, and an unavailable one otherwise.
func NewBackend(ctx context.Context, cfg config.Config) domain.Backend {
	if !cfg.HasCredential() {
		log.WithCtx(ctx).Warn("No Gemini API key configured, chat is disabled")
		return domain.Unavailable(domain.ErrMissingCredential)
	}

	gen, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.WithCtx(ctx).Error("Failed to create Gemini client", zap.Error(err))
		return domain.Unavailable(err)
	}
	return domain.Available(gen)
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, domain.ErrMissingCredential
	}
	if model == "" {
		model = config.DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiGenerator{models: client.Models, model: model}, nil
}

// Generate implements domain.Generator. Every error it returns is a
// *domain.GenerationFailure.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		log.WithCtx(ctx).Debug("Gemini call failed", zap.String("model", g.model), zap.Error(err))
		return "", normalizeError(err)
	}
	if resp == nil {
		return "", domain.FailureFromMessage("", errors.New("empty response"))
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", domain.FailureFromMessage("", fmt.Errorf("no text in response from %s", g.model))
	}
	return text, nil
}

// normalizeError folds the shapes the genai client can fail with into one
// GenerationFailure.
func normalizeError(err error) *domain.GenerationFailure {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return domain.FailureFromMessage(apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return domain.FailureFromMessage(apiErrPtr.Message, err)
	}
	return domain.NormalizeFailure(err)
}
