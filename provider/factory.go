package provider

import (
	"fmt"
	"strings"

	"carousel/config"
	"carousel/model"

	"github.com/sahilm/fuzzy"
)

// NewProvider creates a provider based on configuration.
//
// This is the centralized factory function for creating any provider type.
// It dispatches to the provider constructor matching Config.Type. Missing
// credentials are rejected here, before any network call is attempted.
//
// Example:
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:   provider.ProviderTypeAnthropic,
//	    APIKey: "sk-ant-...",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewProvider(cfg Config) (model.Provider, error) {
	if RequiresCredential(cfg.Type) && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Type, ErrMissingCredential)
	}

	switch cfg.Type {
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.OrganizationID, cfg.DefaultModel)
	case ProviderTypeGoogle:
		return NewGeminiProvider(cfg.BaseURL, cfg.APIKey, cfg.DefaultModel)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.DefaultModel)
	case ProviderTypeGroq:
		return NewGroqProvider(cfg.BaseURL, cfg.APIKey, cfg.DefaultModel)
	case ProviderTypeLocal:
		return NewLocalProvider(cfg.BaseURL, cfg.DefaultModel)
	default:
		return nil, unknownProviderError(string(cfg.Type))
	}
}

// MapProviderIDToType converts a config provider ID to a ProviderType.
//
// IDs are case-insensitive. "gemini" is accepted as an alias for google and
// "ollama" for local. Unknown IDs are returned as-is (the factory will error).
func MapProviderIDToType(id string) ProviderType {
	id = strings.ToLower(strings.TrimSpace(id))
	switch id {
	case "gemini":
		return ProviderTypeGoogle
	case "ollama":
		return ProviderTypeLocal
	default:
		return ProviderType(id)
	}
}

// RequiresCredential reports whether a provider type needs an API key.
func RequiresCredential(t ProviderType) bool {
	return t != ProviderTypeLocal
}

// FromProviderConfig builds a factory Config from a config record.
func FromProviderConfig(pc config.ProviderConfig) Config {
	return Config{
		Type:           MapProviderIDToType(pc.ID),
		BaseURL:        pc.BaseURL,
		APIKey:         pc.APIKey,
		OrganizationID: pc.OrganizationID,
		DefaultModel:   pc.DefaultModel,
	}
}

// SuggestProvider returns the closest known provider ID to name, or "" when
// nothing is close.
func SuggestProvider(name string) string {
	ids := make([]string, len(KnownProviders))
	for i, p := range KnownProviders {
		ids[i] = string(p)
	}
	matches := fuzzy.Find(strings.ToLower(name), ids)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

func unknownProviderError(name string) error {
	if s := SuggestProvider(name); s != "" {
		return fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownProvider, name, s)
	}
	return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}
