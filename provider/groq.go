package provider

import (
	"context"
	"fmt"
	"strings"

	"carousel/model"
)

// GroqProvider implements model.Provider for Groq's OpenAI-compatible API.
// Groq serves text models only, so it does not implement model.ImageGenerator.
type GroqProvider struct {
	core *openAICompatible
}

// NewGroqProvider creates a Groq provider. The API key is required.
func NewGroqProvider(baseURL, apiKey, defaultModel string) (*GroqProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("groq: %w", ErrMissingCredential)
	}
	if defaultModel == "" {
		defaultModel = "llama-3.3-70b-versatile"
	}

	return &GroqProvider{
		core: newOpenAICompatible(ProviderTypeGroq, strings.TrimRight(baseURL, "/"), apiKey, "", defaultModel),
	}, nil
}

func (p *GroqProvider) Name() string { return string(ProviderTypeGroq) }

func (p *GroqProvider) Capabilities() []model.Capability {
	return Capabilities(ProviderTypeGroq)
}

func (p *GroqProvider) IsAvailable(ctx context.Context) bool {
	return p.core.ping(ctx)
}

func (p *GroqProvider) ListModels(ctx context.Context) []model.ModelInfo {
	return p.core.listModels(ctx)
}

func (p *GroqProvider) GenerateText(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error) {
	return p.core.generateText(ctx, req)
}
