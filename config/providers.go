package config

import (
	"fmt"
	"os"
	"strings"
)

// ProviderConfig is the configuration record for one AI backend.
// APIKey is never written to config.toml; it comes from the credential
// store or the environment.
type ProviderConfig struct {
	ID             string `toml:"id"`
	Name           string `toml:"name,omitempty"`
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url,omitempty"`
	OrganizationID string `toml:"organization_id,omitempty"`
	DefaultModel   string `toml:"default_model,omitempty"`
	APIKey         string `toml:"-"`
}

// GetProviderConfig returns a copy of the provider record with its API key
// resolved. ok is false when the provider is not configured at all.
func (c *Config) GetProviderConfig(providerID string) (ProviderConfig, bool) {
	providerID = strings.ToLower(providerID)
	for _, p := range c.Providers {
		if p.ID != providerID {
			continue
		}
		out := p
		if out.BaseURL == "" {
			out.BaseURL = getProviderDefaultBaseURL(providerID)
		}
		if c.CredentialStore != nil {
			out.APIKey = c.CredentialStore.Get(providerID)
		}
		if out.APIKey == "" {
			out.APIKey = os.Getenv(APIKeyEnvVar(providerID))
		}
		return out, true
	}
	return ProviderConfig{}, false
}

// APIKeyEnvVar returns the environment variable consulted for a provider key.
func APIKeyEnvVar(providerID string) string {
	switch providerID {
	case "google":
		return "GEMINI_API_KEY"
	default:
		return strings.ToUpper(providerID) + "_API_KEY"
	}
}

// UpdateProviderField updates a single provider configuration field and
// persists the result.
//
// Fields: "apikey", "enabled", "base_url", "default_model".
func (c *Config) UpdateProviderField(path, providerID, fieldName, value string) error {
	switch fieldName {
	case "apikey":
		if c.CredentialStore == nil {
			return fmt.Errorf("credential store not loaded")
		}
		if err := c.CredentialStore.Set(providerID, value); err != nil {
			return fmt.Errorf("failed to set API key: %w", err)
		}
		if err := c.CredentialStore.Save(c.DataDir()); err != nil {
			return fmt.Errorf("failed to persist credentials: %w", err)
		}
		// API keys never touch config.toml
		return nil

	case "enabled", "base_url", "default_model":
		p := c.findOrAddProvider(providerID)
		switch fieldName {
		case "enabled":
			p.Enabled = value == "true"
		case "base_url":
			p.BaseURL = value
		case "default_model":
			p.DefaultModel = value
		}

	default:
		return fmt.Errorf("unknown field for %s: %s", providerID, fieldName)
	}

	if err := SaveConfig(c, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

func (c *Config) findOrAddProvider(providerID string) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].ID == providerID {
			return &c.Providers[i]
		}
	}
	c.Providers = append(c.Providers, ProviderConfig{
		ID:      providerID,
		Name:    getProviderDisplayName(providerID),
		BaseURL: getProviderDefaultBaseURL(providerID),
	})
	return &c.Providers[len(c.Providers)-1]
}

// getProviderDisplayName returns the display name for a provider
func getProviderDisplayName(providerID string) string {
	switch providerID {
	case "openai":
		return "OpenAI"
	case "google":
		return "Google Gemini"
	case "anthropic":
		return "Anthropic"
	case "groq":
		return "Groq"
	case "local":
		return "Local (Ollama)"
	default:
		return providerID
	}
}

// getProviderDefaultBaseURL returns the default base URL for a provider
func getProviderDefaultBaseURL(providerID string) string {
	switch providerID {
	case "openai":
		return "https://api.openai.com/v1"
	case "anthropic":
		return "https://api.anthropic.com"
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "local":
		return "http://localhost:11434"
	default:
		return ""
	}
}

// DisplayName returns the human-readable provider name.
func (p ProviderConfig) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return getProviderDisplayName(p.ID)
}
