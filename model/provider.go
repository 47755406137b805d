package model

import "context"

// Capability is a kind of generation a provider supports.
type Capability string

const (
	CapabilityText       Capability = "text"
	CapabilityImage      Capability = "image"
	CapabilityVideo      Capability = "video"
	CapabilityEmbeddings Capability = "embeddings"
)

// ModelInfo describes a model exposed by a provider.
type ModelInfo struct {
	ID       string
	Name     string
	Provider string
}

// Usage is the token accounting reported for a text generation.
// TotalTokens always equals PromptTokens + CompletionTokens.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NewUsage builds a Usage whose total is the sum of its parts.
func NewUsage(prompt, completion int) *Usage {
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// GenerateTextRequest is a provider-neutral text generation request.
type GenerateTextRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
	// JSONOutput asks the backend for a JSON object response when supported.
	JSONOutput bool
}

// GenerateTextResult is the normalized response of a text generation.
// Usage is nil when the backend did not report token counts.
type GenerateTextResult struct {
	Content  string
	Model    string
	Provider string
	Usage    *Usage
}

// ImageRef references an input image either by URL or by inline bytes.
type ImageRef struct {
	URL      string
	Data     []byte
	MIMEType string
}

// GenerateImageRequest is a provider-neutral image generation request.
type GenerateImageRequest struct {
	Model           string
	Prompt          string
	Size            string // e.g. "1024x1024"
	AspectRatio     string // e.g. "1:1", "4:5"
	Quality         string
	Style           string
	N               int
	ReferenceImages []ImageRef
}

// GeneratedImage is one image produced by a provider. Exactly one of URL
// or B64JSON is set.
type GeneratedImage struct {
	URL           string
	B64JSON       string
	MIMEType      string
	RevisedPrompt string
}

// GenerateImageResult is the normalized response of an image generation.
type GenerateImageResult struct {
	Images   []GeneratedImage
	Model    string
	Provider string
	Usage    *Usage
}

// Provider abstracts AI backend implementations using provider-agnostic
// types from this package.
//
// This interface is defined in the model package (not provider package) to
// avoid import cycles: provider implementations import model, and the agent
// and orchestrator layers depend only on model.
//
// Implementations hold configuration only. Each call builds its own request
// value, so one instance can serve concurrent fan-out calls.
type Provider interface {
	// Name returns the provider ID ("openai", "google", ...).
	Name() string

	// Capabilities returns the generation kinds this backend supports.
	Capabilities() []Capability

	// IsAvailable performs a best-effort liveness and credential check.
	// It never panics and reports false on any failure.
	IsAvailable(ctx context.Context) bool

	// ListModels returns the models the backend exposes. It returns an
	// empty list on any failure.
	ListModels(ctx context.Context) []ModelInfo

	// GenerateText runs a chat completion.
	GenerateText(ctx context.Context, req *GenerateTextRequest) (*GenerateTextResult, error)
}

// ImageGenerator is implemented by providers that can generate images.
// Callers detect support with a type assertion so that "not supported" is
// distinguishable from "call failed".
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *GenerateImageRequest) (*GenerateImageResult, error)
}
