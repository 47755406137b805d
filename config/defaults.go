package config

// DefaultImageModel is used by the image agents when no model is configured.
const DefaultImageModel = "gpt-image-1"

func DefaultConfig() *Config {
	return &Config{
		DataDirectory: "~/.local/share/carousel",
		AI: AISettings{
			DefaultProvider: "openai",
			MaxTokens:       DefaultMaxTokens,
			ImageModel:      DefaultImageModel,
			StageTimeout:    DefaultStageTimeout.String(),
		},
		Media: MediaConfig{
			PublicURL: "/media",
		},
		Security: SecurityConfig{
			Method: SecurityPlainText,
		},
		Providers: []ProviderConfig{
			{ID: "openai", Name: "OpenAI", Enabled: true, BaseURL: getProviderDefaultBaseURL("openai")},
		},
	}
}

func GenerateConfigTemplate() string {
	return `# Carousel Configuration
# Location: ~/.config/carousel/config.toml
# This file uses TOML format: https://toml.io

# Directory where brands, media and the run database are stored
data_directory = "~/.local/share/carousel"

[ai]
# Provider used by agents without a brand-level override
default_provider = "openai"

# Token budget when a brand does not set one
max_tokens = 8000

# Image model for image generation and text overlay
image_model = "gpt-image-1"

# Deadline applied to each pipeline stage
stage_timeout = "5m"

[media]
# public_url is prefixed to stored file paths in slide image URLs
public_url = "/media"

[security]
# plaintext: credentials.toml (0600); ssh_key: credentials.enc (AES-GCM)
method = "plaintext"

# API keys are read from the credential store or <PROVIDER>_API_KEY.
[[providers]]
id = "openai"
enabled = true
base_url = "https://api.openai.com/v1"

[[providers]]
id = "google"
enabled = false

[[providers]]
id = "anthropic"
enabled = false

[[providers]]
id = "groq"
enabled = false

[[providers]]
id = "local"
enabled = false
base_url = "http://localhost:11434"
`
}
