package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"carousel/config"
	"carousel/model"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// openAICompatible is the shared client for every backend that speaks the
// OpenAI REST API (OpenAI itself, Groq, and the local server's /v1 routes).
type openAICompatible struct {
	id           ProviderType
	client       openai.Client
	apiKey       string
	baseURL      string
	defaultModel string
}

func newOpenAICompatible(id ProviderType, baseURL, apiKey, org, defaultModel string) *openAICompatible {
	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	}
	if org != "" {
		opts = append(opts, option.WithOrganization(org))
	}

	return &openAICompatible{
		id:           id,
		client:       openai.NewClient(opts...),
		apiKey:       apiKey,
		baseURL:      baseURL,
		defaultModel: defaultModel,
	}
}

func (c *openAICompatible) modelOr(name string) string {
	if name != "" {
		return name
	}
	return c.defaultModel
}

func (c *openAICompatible) generateText(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error) {
	params := openai.ChatCompletionNewParams{
		Messages: ConvertToOpenAIMessages(req.Messages),
		Model:    openai.ChatModel(c.modelOr(req.Model)),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.JSONOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, normalizeError(string(c.id), c.apiKey, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: string(c.id), Message: "empty response"}
	}

	return &model.GenerateTextResult{
		Content:  resp.Choices[0].Message.Content,
		Model:    resp.Model,
		Provider: string(c.id),
		Usage:    model.NewUsage(int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens)),
	}, nil
}

func (c *openAICompatible) generateImage(ctx context.Context, req *model.GenerateImageRequest) (*model.GenerateImageResult, error) {
	modelName := c.modelOr(req.Model)
	n := req.N
	if n <= 0 {
		n = 1
	}

	var (
		resp *openai.ImagesResponse
		err  error
	)
	if len(req.ReferenceImages) > 0 {
		resp, err = c.editImage(ctx, modelName, n, req)
	} else {
		params := openai.ImageGenerateParams{
			Prompt: req.Prompt,
			Model:  openai.ImageModel(modelName),
			N:      openai.Int(int64(n)),
		}
		if req.Size != "" {
			params.Size = openai.ImageGenerateParamsSize(req.Size)
		}
		if req.Quality != "" {
			params.Quality = openai.ImageGenerateParamsQuality(req.Quality)
		}
		if req.Style != "" && strings.HasPrefix(modelName, "dall-e-3") {
			params.Style = openai.ImageGenerateParamsStyle(req.Style)
		}
		// gpt-image models always return base64 and reject response_format
		if strings.HasPrefix(modelName, "dall-e") {
			params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
		}
		resp, err = c.client.Images.Generate(ctx, params)
	}
	if err != nil {
		return nil, normalizeError(string(c.id), c.apiKey, err)
	}

	out := &model.GenerateImageResult{
		Model:    modelName,
		Provider: string(c.id),
	}
	for _, img := range resp.Data {
		out.Images = append(out.Images, model.GeneratedImage{
			URL:           img.URL,
			B64JSON:       img.B64JSON,
			MIMEType:      "image/png",
			RevisedPrompt: img.RevisedPrompt,
		})
	}
	return out, nil
}

func (c *openAICompatible) editImage(ctx context.Context, modelName string, n int, req *model.GenerateImageRequest) (*openai.ImagesResponse, error) {
	files := make([]io.Reader, 0, len(req.ReferenceImages))
	for i, ref := range req.ReferenceImages {
		data, mime, err := fetchImage(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("reference image %d: %w", i, err)
		}
		name := fmt.Sprintf("reference-%d.%s", i, imageFormat(mime))
		files = append(files, openai.File(bytes.NewReader(data), name, mime))
	}

	params := openai.ImageEditParams{
		Image:  openai.ImageEditParamsImageUnion{OfFileArray: files},
		Prompt: req.Prompt,
		Model:  openai.ImageModel(modelName),
		N:      openai.Int(int64(n)),
	}
	if req.Size != "" {
		params.Size = openai.ImageEditParamsSize(req.Size)
	}
	return c.client.Images.Edit(ctx, params)
}

func (c *openAICompatible) listModels(ctx context.Context) []model.ModelInfo {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		if config.Debug {
			config.DebugLog.Printf("[Provider] %s list models failed: %v", c.id, normalizeError(string(c.id), c.apiKey, err))
		}
		return []model.ModelInfo{}
	}

	result := make([]model.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		result = append(result, model.ModelInfo{
			ID:       m.ID,
			Name:     m.ID,
			Provider: string(c.id),
		})
	}
	return result
}

func (c *openAICompatible) ping(ctx context.Context) bool {
	_, err := c.client.Models.List(ctx)
	return err == nil
}

// OpenAIProvider implements model.Provider and model.ImageGenerator using
// OpenAI's official Go SDK.
type OpenAIProvider struct {
	core *openAICompatible
}

// NewOpenAIProvider creates a new OpenAI provider instance.
//
// Parameters:
//   - baseURL: OpenAI API base URL (default: "https://api.openai.com/v1")
//   - apiKey: OpenAI API key (required)
//   - org: optional organization ID
//   - defaultModel: model used when a request leaves Model empty (default: "gpt-4o")
//
// Returns an error if the API key is missing.
func NewOpenAIProvider(baseURL, apiKey, org, defaultModel string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingCredential)
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o"
	}

	return &OpenAIProvider{
		core: newOpenAICompatible(ProviderTypeOpenAI, baseURL, apiKey, org, defaultModel),
	}, nil
}

func (p *OpenAIProvider) Name() string { return string(ProviderTypeOpenAI) }

func (p *OpenAIProvider) Capabilities() []model.Capability {
	return Capabilities(ProviderTypeOpenAI)
}

// IsAvailable lists models as a combined reachability and credential check.
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	return p.core.ping(ctx)
}

func (p *OpenAIProvider) ListModels(ctx context.Context) []model.ModelInfo {
	return p.core.listModels(ctx)
}

func (p *OpenAIProvider) GenerateText(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error) {
	return p.core.generateText(ctx, req)
}

// GenerateImage uses the edits endpoint when reference images are supplied.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, req *model.GenerateImageRequest) (*model.GenerateImageResult, error) {
	return p.core.generateImage(ctx, req)
}
