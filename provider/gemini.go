package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"carousel/config"
	"carousel/model"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider implements model.Provider and model.ImageGenerator for
// Google's Gemini API. Vision input and reference images are sent inline.
type GeminiProvider struct {
	client       *genai.Client
	apiKey       string
	defaultModel string
}

// NewGeminiProvider creates a Gemini provider. No network call is made; the
// client connects lazily on the first request.
func NewGeminiProvider(baseURL, apiKey, defaultModel string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google: %w", ErrMissingCredential)
	}
	if defaultModel == "" {
		defaultModel = "gemini-2.5-flash"
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithEndpoint(baseURL))
	}

	client, err := genai.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("google: failed to create client: %w", err)
	}

	return &GeminiProvider{
		client:       client,
		apiKey:       apiKey,
		defaultModel: defaultModel,
	}, nil
}

func (p *GeminiProvider) Name() string { return string(ProviderTypeGoogle) }

func (p *GeminiProvider) Capabilities() []model.Capability {
	return Capabilities(ProviderTypeGoogle)
}

func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx).Next()
	return err == nil || errors.Is(err, iterator.Done)
}

func (p *GeminiProvider) ListModels(ctx context.Context) []model.ModelInfo {
	result := []model.ModelInfo{}
	it := p.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			if config.Debug {
				config.DebugLog.Printf("[Provider] google list models failed: %v", normalizeError(p.Name(), p.apiKey, err))
			}
			break
		}
		name := m.DisplayName
		if name == "" {
			name = m.Name
		}
		result = append(result, model.ModelInfo{
			ID:       strings.TrimPrefix(m.Name, "models/"),
			Name:     name,
			Provider: p.Name(),
		})
	}
	return result
}

func (p *GeminiProvider) GenerateText(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error) {
	conv, err := convertToGeminiContent(ctx, req.Messages)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: err.Error(), Err: err}
	}

	name := req.Model
	if name == "" {
		name = p.defaultModel
	}
	gm := p.client.GenerativeModel(name)
	gm.SystemInstruction = conv.system
	if req.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature != nil {
		gm.SetTemperature(float32(*req.Temperature))
	}
	if req.JSONOutput {
		gm.ResponseMIMEType = "application/json"
	}

	cs := gm.StartChat()
	cs.History = conv.history
	resp, err := cs.SendMessage(ctx, conv.last...)
	if err != nil {
		return nil, normalizeError(p.Name(), p.apiKey, err)
	}

	var sb strings.Builder
	for _, part := range candidateParts(resp) {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	return &model.GenerateTextResult{
		Content:  sb.String(),
		Model:    name,
		Provider: p.Name(),
		Usage:    geminiUsage(resp),
	}, nil
}

// GenerateImage asks an image-capable Gemini model for inline image output.
// Reference images are attached as inline parts ahead of the prompt.
func (p *GeminiProvider) GenerateImage(ctx context.Context, req *model.GenerateImageRequest) (*model.GenerateImageResult, error) {
	name := req.Model
	if name == "" {
		name = "gemini-2.5-flash-image"
	}

	parts := make([]genai.Part, 0, len(req.ReferenceImages)+1)
	for i, ref := range req.ReferenceImages {
		data, mime, err := fetchImage(ctx, ref)
		if err != nil {
			return nil, &ProviderError{Provider: p.Name(), Message: fmt.Sprintf("reference image %d: %v", i, err), Err: err}
		}
		parts = append(parts, genai.ImageData(imageFormat(mime), data))
	}

	prompt := req.Prompt
	if req.AspectRatio != "" {
		prompt += "\n\nAspect ratio: " + req.AspectRatio
	}
	parts = append(parts, genai.Text(prompt))

	resp, err := p.client.GenerativeModel(name).GenerateContent(ctx, parts...)
	if err != nil {
		return nil, normalizeError(p.Name(), p.apiKey, err)
	}

	out := &model.GenerateImageResult{Model: name, Provider: p.Name(), Usage: geminiUsage(resp)}
	var revised string
	for _, part := range candidateParts(resp) {
		switch v := part.(type) {
		case genai.Blob:
			out.Images = append(out.Images, model.GeneratedImage{
				B64JSON:  base64.StdEncoding.EncodeToString(v.Data),
				MIMEType: v.MIMEType,
			})
		case genai.Text:
			revised += string(v)
		}
	}
	if len(out.Images) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Message: "model returned no image"}
	}
	for i := range out.Images {
		out.Images[i].RevisedPrompt = revised
	}
	return out, nil
}

// Close releases the underlying gRPC connection.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func candidateParts(resp *genai.GenerateContentResponse) []genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func geminiUsage(resp *genai.GenerateContentResponse) *model.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	return model.NewUsage(int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount))
}
