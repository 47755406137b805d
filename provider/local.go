package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"carousel/config"
	"carousel/model"

	"github.com/ollama/ollama/api"
)

// LocalProvider implements model.Provider and model.ImageGenerator against a
// self-hosted Ollama server. Chat goes through the native Ollama API; image
// generation uses the server's OpenAI-compatible /v1 routes.
type LocalProvider struct {
	client       *api.Client
	images       *openAICompatible
	baseURL      string
	defaultModel string
}

// NewLocalProvider creates a local provider instance.
//
// Parameters:
//   - baseURL: The server URL (e.g., "http://localhost:11434").
//     If empty, defaults to "http://localhost:11434".
//   - defaultModel: The chat model to use when a request leaves Model empty.
//     If empty, defaults to "llama3.2-vision:latest".
//
// No API key is required.
func NewLocalProvider(baseURL, defaultModel string) (*LocalProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if defaultModel == "" {
		defaultModel = "llama3.2-vision:latest"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid local provider URL: %w", err)
	}

	return &LocalProvider{
		client: api.NewClient(parsedURL, http.DefaultClient),
		// the OpenAI client refuses an empty key even when the server ignores it
		images:       newOpenAICompatible(ProviderTypeLocal, baseURL+"/v1", "local", "", "stable-diffusion"),
		baseURL:      baseURL,
		defaultModel: defaultModel,
	}, nil
}

func (p *LocalProvider) Name() string { return string(ProviderTypeLocal) }

func (p *LocalProvider) Capabilities() []model.Capability {
	return Capabilities(ProviderTypeLocal)
}

func (p *LocalProvider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.client.Heartbeat(ctx) == nil
}

func (p *LocalProvider) ListModels(ctx context.Context) []model.ModelInfo {
	resp, err := p.client.List(ctx)
	if err != nil {
		if config.Debug {
			config.DebugLog.Printf("[Provider] local list models failed: %v", err)
		}
		return []model.ModelInfo{}
	}

	models := make([]model.ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = model.ModelInfo{
			ID:       m.Name,
			Name:     m.Name,
			Provider: p.Name(),
		}
	}
	return models
}

func (p *LocalProvider) GenerateText(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error) {
	name := req.Model
	if name == "" {
		name = p.defaultModel
	}

	msgs, err := convertToOllamaMessages(ctx, req.Messages)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: err.Error(), Err: err}
	}
	if hasImages(msgs) && !ModelSupportsVision(name) && config.Debug {
		config.DebugLog.Printf("[Provider] local model %s is not known to accept images", name)
	}

	options := map[string]any{}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if req.Temperature != nil {
		options["temperature"] = *req.Temperature
	}

	chatReq := &api.ChatRequest{
		Model:    name,
		Messages: msgs,
		Stream:   func(b bool) *bool { return &b }(false),
		Options:  options,
	}
	if req.JSONOutput {
		chatReq.Format = json.RawMessage(`"json"`)
	}

	var (
		sb    strings.Builder
		final api.ChatResponse
	)
	err = p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		if resp.Done {
			final = resp
		}
		return nil
	})
	if err != nil {
		return nil, normalizeError(p.Name(), "", err)
	}

	return &model.GenerateTextResult{
		Content:  sb.String(),
		Model:    name,
		Provider: p.Name(),
		Usage:    model.NewUsage(final.PromptEvalCount, final.EvalCount),
	}, nil
}

// GenerateImage calls the OpenAI-compatible images endpoint of the server.
func (p *LocalProvider) GenerateImage(ctx context.Context, req *model.GenerateImageRequest) (*model.GenerateImageResult, error) {
	return p.images.generateImage(ctx, req)
}

func hasImages(msgs []api.Message) bool {
	for _, m := range msgs {
		if len(m.Images) > 0 {
			return true
		}
	}
	return false
}

// visionModels tracks which local model families accept image input.
var visionModels = map[string]bool{
	"llama3.2-vision": true,
	"llava":           true,
	"bakllava":        true,
	"qwen2.5vl":       true,
	"minicpm-v":       true,
	"gemma3":          true,
	"moondream":       true,

	"llama3.2": false,
	"llama3":   false,
	"mistral":  false,
	"qwen":     false,
	"phi":      false,
}

// orderedVisionPrefixes is checked most specific first so that
// "llama3.2-vision" is not matched as plain "llama3.2".
var orderedVisionPrefixes = []string{
	"llama3.2-vision", "qwen2.5vl", "minicpm-v", "bakllava",
	"llava", "gemma3", "moondream",
	"llama3.2", "llama3", "mistral", "qwen", "phi",
}

// ModelSupportsVision reports whether a local model name is known to accept
// image input. Unknown models report false.
func ModelSupportsVision(modelName string) bool {
	modelName = strings.ToLower(modelName)
	for _, prefix := range orderedVisionPrefixes {
		if strings.HasPrefix(modelName, prefix) {
			return visionModels[prefix]
		}
	}
	return false
}
