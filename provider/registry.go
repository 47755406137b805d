package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"carousel/config"
	"carousel/model"

	lru "github.com/hashicorp/golang-lru/v2"
)

const registryCacheSize = 16

// ConfigSource resolves provider records, API key included.
type ConfigSource interface {
	GetProviderConfig(providerID string) (config.ProviderConfig, bool)
}

// FactoryFunc builds a provider from a resolved Config.
type FactoryFunc func(Config) (model.Provider, error)

// Registry creates providers on demand from configuration and caches the
// instances. A cached instance is reused as long as its configuration
// (including the key) is unchanged.
type Registry struct {
	source  ConfigSource
	factory FactoryFunc

	mu    sync.Mutex
	cache *lru.Cache[string, model.Provider]
}

// NewRegistry returns a registry reading provider records from source.
func NewRegistry(source ConfigSource) *Registry {
	cache, err := lru.NewWithEvict(registryCacheSize, func(_ string, p model.Provider) {
		if c, ok := p.(io.Closer); ok {
			_ = c.Close()
		}
	})
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &Registry{
		source:  source,
		factory: NewProvider,
		cache:   cache,
	}
}

// WithFactory replaces the constructor used for new instances.
func (r *Registry) WithFactory(f FactoryFunc) *Registry {
	r.factory = f
	return r
}

// Check reports whether providerID could be created, without creating it.
// It returns ErrUnknownProvider, ErrProviderDisabled or ErrMissingCredential.
func (r *Registry) Check(providerID string) error {
	_, err := r.resolve(providerID)
	return err
}

// Provider returns a ready provider instance for providerID.
func (r *Registry) Provider(providerID string) (model.Provider, error) {
	cfg, err := r.resolve(providerID)
	if err != nil {
		return nil, err
	}

	key := fingerprint(cfg)
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.cache.Get(key); ok {
		return p, nil
	}

	p, err := r.factory(cfg)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, p)
	if config.Debug {
		config.DebugLog.Printf("[Provider] Initialized provider: %s", cfg.Type)
	}
	return p, nil
}

// Purge drops every cached instance.
func (r *Registry) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}

func (r *Registry) resolve(providerID string) (Config, error) {
	t := MapProviderIDToType(providerID)
	if !IsKnown(string(t)) {
		return Config{}, unknownProviderError(providerID)
	}

	pc, ok := r.source.GetProviderConfig(string(t))
	if !ok || !pc.Enabled {
		return Config{}, fmt.Errorf("%s: %w", t, ErrProviderDisabled)
	}

	cfg := FromProviderConfig(pc)
	cfg.Type = t
	if RequiresCredential(t) && cfg.APIKey == "" {
		return Config{}, fmt.Errorf("%s: %w (set %s or store a key)", t, ErrMissingCredential, config.APIKeyEnvVar(string(t)))
	}
	return cfg, nil
}

func fingerprint(cfg Config) string {
	sum := sha256.Sum256([]byte(cfg.APIKey))
	return fmt.Sprintf("%s|%s|%s|%s|%s", cfg.Type, cfg.BaseURL, cfg.OrganizationID, cfg.DefaultModel, hex.EncodeToString(sum[:8]))
}
