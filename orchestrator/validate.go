package orchestrator

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"carousel/config"
	"carousel/model"
	"carousel/provider"
)

// Validator checks a brand's AI configuration before any provider is called.
// It reports every problem at once.
type Validator struct {
	Settings config.AISettings
	// Checker, when set, also rejects disabled providers and missing keys.
	Checker ProviderChecker
}

// Validate returns a *ConfigError listing all violations, or nil.
// override is the run's forced text provider, if any.
func (v Validator) Validate(cfg model.AIConfig, override string) error {
	c := &collector{seen: make(map[string]bool)}

	if override != "" {
		v.checkProvider(c, "provider override", override, model.CapabilityText)
	}

	for _, t := range model.AgentTypes {
		agentCfg, configured := cfg[t]
		capability, _ := t.RequiredCapability()

		if agentCfg.MaxTokens < 0 {
			c.add("%s: maxTokens must not be negative (got %d)", t, agentCfg.MaxTokens)
		}

		if capability == model.CapabilityImage {
			v.checkImageAgent(c, t, agentCfg)
			continue
		}

		switch {
		case override != "":
			// the override replaces the per-agent provider
		case configured && agentCfg.Provider != "":
			v.checkProvider(c, string(t), agentCfg.Provider, capability)
		default:
			v.checkProvider(c, "default provider", v.defaultProvider(), capability)
		}
	}

	var unknown []string
	for t := range cfg {
		if !slices.Contains(model.AgentTypes, t) {
			unknown = append(unknown, string(t))
		}
	}
	sort.Strings(unknown)
	for _, t := range unknown {
		c.add("unknown agent type %q", t)
	}

	if len(c.violations) == 0 {
		return nil
	}
	return &ConfigError{Violations: c.violations}
}

func (v Validator) checkImageAgent(c *collector, t model.AgentType, cfg model.AgentAIConfig) {
	imageModel := cfg.Model
	if imageModel == "" {
		imageModel = v.Settings.ImageModel
	}
	if imageModel == "" {
		imageModel = config.DefaultImageModel
	}

	routed, routeErr := provider.ResolveImageProvider(imageModel)
	if routeErr != nil {
		c.add("%s: image model %q does not match any known image provider", t, imageModel)
	}

	if cfg.Provider == "" {
		if routeErr == nil {
			v.checkProvider(c, string(t), string(routed), model.CapabilityImage)
		}
		return
	}

	if !v.checkProvider(c, string(t), cfg.Provider, model.CapabilityImage) {
		return
	}
	configured := provider.MapProviderIDToType(cfg.Provider)
	if routeErr == nil && configured != routed {
		c.add("%s: image model %q belongs to provider %q but provider %q is configured", t, imageModel, routed, configured)
	}
}

// checkProvider records violations for one provider reference and reports
// whether the provider is known and capable. A provider that is known and
// capable but not usable still reports true.
func (v Validator) checkProvider(c *collector, scope, id string, capability model.Capability) bool {
	if !v.checkCapable(c, scope, id, capability) {
		return false
	}
	v.checkUsable(c, provider.MapProviderIDToType(id))
	return true
}

func (v Validator) checkCapable(c *collector, scope, id string, capability model.Capability) bool {
	t := provider.MapProviderIDToType(id)
	if !provider.IsKnown(string(t)) {
		if s := provider.SuggestProvider(id); s != "" {
			c.add("%s: unknown provider %q (did you mean %q?)", scope, id, s)
		} else {
			c.add("%s: unknown provider %q", scope, id)
		}
		return false
	}
	if !provider.Supports(t, capability) {
		c.add("%s: provider %q does not support %s generation", scope, t, capability)
		return false
	}
	return true
}

// checkUsable asks the Checker whether the provider can be built.
func (v Validator) checkUsable(c *collector, t provider.ProviderType) {
	if v.Checker == nil {
		return
	}
	if err := v.Checker.Check(string(t)); err != nil {
		c.add("provider %q is not usable: %s", t, reason(t, err))
	}
}

func (v Validator) defaultProvider() string {
	if v.Settings.DefaultProvider != "" {
		return v.Settings.DefaultProvider
	}
	return string(provider.ProviderTypeOpenAI)
}

func reason(t provider.ProviderType, err error) string {
	switch {
	case errors.Is(err, provider.ErrProviderDisabled):
		return "provider is disabled"
	case errors.Is(err, provider.ErrMissingCredential):
		return fmt.Sprintf("API key missing (set %s or store a key)", config.APIKeyEnvVar(string(t)))
	default:
		return err.Error()
	}
}

type collector struct {
	violations []string
	seen       map[string]bool
}

func (c *collector) add(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if c.seen[msg] {
		return
	}
	c.seen[msg] = true
	c.violations = append(c.violations, msg)
}
