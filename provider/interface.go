// Package provider implements the AI backends behind model.Provider.
//
// Five backends share one contract: OpenAI, Google Gemini, Anthropic, Groq
// and a local Ollama server. Agents and the orchestrator only see
// model.Provider and the optional model.ImageGenerator; everything
// backend-specific (SDK types, vision encoding, error shapes) stays here.
//
// # Capabilities
//
// Each backend declares the generation kinds it supports in a fixed table
// (see Capabilities). Image generation is an optional interface: callers use
// AsImageGenerator, which returns ErrCapabilityNotSupported for text-only
// backends instead of failing at call time.
//
// # Image model routing
//
// An image model name maps to exactly one backend through an ordered
// pattern table (see ResolveImageProvider). Unknown names fail with
// ErrUnknownImageModel; there is no default.
//
// # Usage
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:   provider.ProviderTypeOpenAI,
//	    APIKey: "sk-...",
//	})
//	if err != nil {
//	    // handle error
//	}
//	res, err := p.GenerateText(ctx, &model.GenerateTextRequest{...})
package provider

import (
	"errors"
	"fmt"
	"slices"

	"carousel/model"
)

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeGoogle    ProviderType = "google"
	ProviderTypeAnthropic ProviderType = "anthropic"
	ProviderTypeGroq      ProviderType = "groq"
	ProviderTypeLocal     ProviderType = "local"
)

// KnownProviders lists every supported provider ID.
var KnownProviders = []ProviderType{
	ProviderTypeOpenAI,
	ProviderTypeGoogle,
	ProviderTypeAnthropic,
	ProviderTypeGroq,
	ProviderTypeLocal,
}

// Config holds provider-specific configuration.
type Config struct {
	Type           ProviderType
	BaseURL        string
	APIKey         string
	OrganizationID string
	DefaultModel   string
}

var capabilities = map[ProviderType][]model.Capability{
	ProviderTypeOpenAI:    {model.CapabilityText, model.CapabilityImage, model.CapabilityEmbeddings},
	ProviderTypeGoogle:    {model.CapabilityText, model.CapabilityImage, model.CapabilityVideo, model.CapabilityEmbeddings},
	ProviderTypeAnthropic: {model.CapabilityText},
	ProviderTypeGroq:      {model.CapabilityText},
	ProviderTypeLocal:     {model.CapabilityText, model.CapabilityImage, model.CapabilityEmbeddings},
}

var (
	ErrCapabilityNotSupported = errors.New("capability not supported by provider")
	ErrUnknownProvider        = errors.New("unknown provider")
	ErrProviderDisabled       = errors.New("provider is disabled")
	ErrMissingCredential      = errors.New("provider credential missing")
	ErrUnknownImageModel      = errors.New("unknown image model")
)

// IsKnown reports whether id names a supported provider.
func IsKnown(id string) bool {
	return slices.Contains(KnownProviders, ProviderType(id))
}

// Capabilities returns the capability set of a provider type.
func Capabilities(t ProviderType) []model.Capability {
	return slices.Clone(capabilities[t])
}

// Supports reports whether provider type t supports capability c.
func Supports(t ProviderType, c model.Capability) bool {
	return slices.Contains(capabilities[t], c)
}

// AsImageGenerator returns p's image generation capability, or
// ErrCapabilityNotSupported when the backend cannot generate images.
func AsImageGenerator(p model.Provider) (model.ImageGenerator, error) {
	ig, ok := p.(model.ImageGenerator)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", p.Name(), ErrCapabilityNotSupported, model.CapabilityImage)
	}
	return ig, nil
}
