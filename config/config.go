package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultMaxTokens is the token budget used when neither the brand nor the
// system settings specify one.
const DefaultMaxTokens = 8000

// DefaultStageTimeout bounds each orchestrator stage when stage_timeout is unset.
const DefaultStageTimeout = 5 * time.Minute

type AISettings struct {
	DefaultProvider string `toml:"default_provider"`
	MaxTokens       int    `toml:"max_tokens"`
	ImageModel      string `toml:"image_model"`
	StageTimeout    string `toml:"stage_timeout,omitempty"`
}

// Timeout returns the parsed per-stage deadline.
func (a AISettings) Timeout() time.Duration {
	if a.StageTimeout == "" {
		return DefaultStageTimeout
	}
	d, err := time.ParseDuration(a.StageTimeout)
	if err != nil || d <= 0 {
		return DefaultStageTimeout
	}
	return d
}

type MediaConfig struct {
	Directory string `toml:"directory,omitempty"`
	PublicURL string `toml:"public_url,omitempty"`
}

type SecurityConfig struct {
	Method     SecurityMethod `toml:"method"`
	SSHKeyPath string         `toml:"ssh_key_path,omitempty"`
}

type Config struct {
	DataDirectory string           `toml:"data_directory"`
	AI            AISettings       `toml:"ai"`
	Media         MediaConfig      `toml:"media"`
	Security      SecurityConfig   `toml:"security"`
	Providers     []ProviderConfig `toml:"providers"`

	CredentialStore *CredentialStore `toml:"-"`
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// MediaDir returns the directory generated images are written to.
func (c *Config) MediaDir() string {
	if c.Media.Directory != "" {
		return ExpandPath(c.Media.Directory)
	}
	return filepath.Join(c.DataDir(), "media")
}

// GetAISettings returns the system-wide AI defaults.
func (c *Config) GetAISettings() AISettings {
	return c.AI
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("CAROUSEL_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if p := os.Getenv("CAROUSEL_DEFAULT_PROVIDER"); p != "" {
		c.AI.DefaultProvider = p
	}
	if m := os.Getenv("CAROUSEL_IMAGE_MODEL"); m != "" {
		c.AI.ImageModel = m
	}
}

func CheckDebug() bool {
	debug := os.Getenv("CAROUSEL_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: the log may contain prompts and model output
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (CAROUSEL_DEBUG=%s) ===", os.Getenv("CAROUSEL_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// Parse decodes a TOML document on top of the defaults.
func Parse(data string) (*Config, error) {
	cfg := DefaultConfig()
	defaults := cfg.Providers
	// decoding into a populated slice would merge into the default entries
	cfg.Providers = nil
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !md.IsDefined("providers") {
		cfg.Providers = defaults
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.AI.DefaultProvider = strings.ToLower(strings.TrimSpace(c.AI.DefaultProvider))
	if c.AI.DefaultProvider == "" {
		c.AI.DefaultProvider = "openai"
	}
	if c.AI.ImageModel == "" {
		c.AI.ImageModel = DefaultImageModel
	}
	if c.Security.Method == "" {
		c.Security.Method = SecurityPlainText
	}
	for i := range c.Providers {
		c.Providers[i].ID = strings.ToLower(strings.TrimSpace(c.Providers[i].ID))
		if c.Providers[i].Name == "" {
			c.Providers[i].Name = getProviderDisplayName(c.Providers[i].ID)
		}
	}
}

// Load reads the config file at path (or the default location when path is
// empty), creating it from the template on first run, then loads credentials.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigFilePath()
	}

	if !FileExists(path) {
		if err := CreateDefaultConfig(path); err != nil {
			return nil, fmt.Errorf("failed to create config: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(string(data))
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	cfg.normalize()

	dataDir := cfg.DataDir()
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	store := NewCredentialStore(cfg.Security.Method, ExpandPath(cfg.Security.SSHKeyPath))
	if pass := os.Getenv("CAROUSEL_SSH_PASSPHRASE"); pass != "" {
		store.SetPassphrase(pass)
	}
	if err := store.Load(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.CredentialStore = store

	return cfg, nil
}
