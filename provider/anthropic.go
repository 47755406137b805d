package provider

import (
	"context"
	"fmt"
	"strings"

	"carousel/config"
	"carousel/model"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicDefaultMaxTokens = 4096

// AnthropicProvider implements model.Provider using Anthropic's official API.
// Claude models are text-only here; vision input is sent as image URLs.
type AnthropicProvider struct {
	client       *anthropic.Client
	defaultModel anthropic.Model
	apiKey       string
}

// NewAnthropicProvider creates a new Anthropic provider instance.
//
// Parameters:
//   - baseURL: Anthropic API base URL (default: "https://api.anthropic.com")
//   - apiKey: Anthropic API key (required)
//   - defaultModel: model used when a request leaves Model empty
//
// Returns an error if the API key is missing.
func NewAnthropicProvider(baseURL, apiKey, defaultModel string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingCredential)
	}

	m := anthropic.ModelClaudeSonnet4_5_20250929
	if defaultModel != "" {
		m = anthropic.Model(defaultModel)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:       &client,
		defaultModel: m,
		apiKey:       apiKey,
	}, nil
}

func (p *AnthropicProvider) Name() string { return string(ProviderTypeAnthropic) }

func (p *AnthropicProvider) Capabilities() []model.Capability {
	return Capabilities(ProviderTypeAnthropic)
}

// IsAvailable checks reachability through the models endpoint, which needs a
// valid key but costs no tokens.
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Models.List(ctx, anthropic.ModelListParams{Limit: anthropic.Int(1)})
	return err == nil
}

func (p *AnthropicProvider) ListModels(ctx context.Context) []model.ModelInfo {
	page, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		if config.Debug {
			config.DebugLog.Printf("[Provider] anthropic list models failed: %v", normalizeError(p.Name(), p.apiKey, err))
		}
		return []model.ModelInfo{}
	}

	result := make([]model.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		name := m.DisplayName
		if name == "" {
			name = m.ID
		}
		result = append(result, model.ModelInfo{
			ID:       m.ID,
			Name:     name,
			Provider: p.Name(),
		})
	}
	return result
}

func (p *AnthropicProvider) GenerateText(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error) {
	msgs, system := convertToAnthropicMessages(req.Messages)

	// Claude has no JSON response mode; the instruction is carried in the prompt
	if req.JSONOutput {
		system = append(system, anthropic.TextBlockParam{
			Text: "Respond with a single valid JSON object and nothing else.",
		})
	}

	m := p.defaultModel
	if req.Model != "" {
		m = anthropic.Model(req.Model)
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     m,
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, normalizeError(p.Name(), p.apiKey, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &model.GenerateTextResult{
		Content:  sb.String(),
		Model:    string(resp.Model),
		Provider: p.Name(),
		Usage:    model.NewUsage(int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens)),
	}, nil
}
