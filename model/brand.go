package model

// AgentType identifies a pipeline stage.
type AgentType string

const (
	AgentCreativeDirection AgentType = "creativeDirection"
	AgentAnalysis          AgentType = "analysis"
	AgentTextCreation      AgentType = "textCreation"
	AgentCompliance        AgentType = "compliance"
	AgentImageGeneration   AgentType = "imageGeneration"
	AgentTextOverlay       AgentType = "textOverlay"
)

// AgentTypes lists every agent in pipeline order.
var AgentTypes = []AgentType{
	AgentCreativeDirection,
	AgentAnalysis,
	AgentTextCreation,
	AgentCompliance,
	AgentImageGeneration,
	AgentTextOverlay,
}

// RequiredCapability returns the capability a provider needs to serve the agent.
// ok is false for unknown agent types.
func (a AgentType) RequiredCapability() (Capability, bool) {
	switch a {
	case AgentCreativeDirection, AgentAnalysis, AgentTextCreation, AgentCompliance:
		return CapabilityText, true
	case AgentImageGeneration, AgentTextOverlay:
		return CapabilityImage, true
	default:
		return "", false
	}
}

// AgentAIConfig is a per-brand override of provider, model and token budget
// for one agent type. Empty fields fall through to system defaults.
type AgentAIConfig struct {
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"maxTokens,omitempty"`
}

// AIConfig maps agent types to their overrides.
type AIConfig map[AgentType]AgentAIConfig

// BrandRecord is the brand voice and guideline record read from the brand store.
type BrandRecord struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Tone           string               `json:"tone,omitempty"`
	Values         []string             `json:"values,omitempty"`
	PreferredWords []string             `json:"preferredWords,omitempty"`
	AvoidedWords   []string             `json:"avoidedWords,omitempty"`
	TargetAudience string               `json:"targetAudience,omitempty"`
	Colors         []string             `json:"colors,omitempty"`
	Sector         string               `json:"sector,omitempty"`
	Competitors    []string             `json:"competitors,omitempty"`
	CustomPrompts  map[AgentType]string `json:"customPrompts,omitempty"`
	AIConfig       AIConfig             `json:"aiConfig,omitempty"`
}

// AgentContext is the read-only bundle every agent receives for one run.
// It is never mutated after construction; WithUserPrompt returns a copy.
type AgentContext struct {
	Brand           BrandRecord
	Platform        string
	UserPrompt      string
	ReferenceImages []string
	UserID          string
	AIConfig        AIConfig
	// ProviderOverride forces the provider of text agents for this run.
	ProviderOverride string
}

// NewAgentContext builds the context for a run.
func NewAgentContext(brand BrandRecord, platform, userPrompt, userID string, referenceImages []string) AgentContext {
	refs := append([]string(nil), referenceImages...)
	return AgentContext{
		Brand:           brand,
		Platform:        platform,
		UserPrompt:      userPrompt,
		ReferenceImages: refs,
		UserID:          userID,
		AIConfig:        brand.AIConfig,
	}
}

// WithUserPrompt returns a copy of the context with a different user prompt.
func (c AgentContext) WithUserPrompt(prompt string) AgentContext {
	c.UserPrompt = prompt
	return c
}

// AgentConfig returns the brand override for an agent type.
func (c AgentContext) AgentConfig(t AgentType) (AgentAIConfig, bool) {
	if c.AIConfig == nil {
		return AgentAIConfig{}, false
	}
	cfg, ok := c.AIConfig[t]
	return cfg, ok
}

// CustomPrompt returns the brand's custom instructions for an agent, if any.
func (c AgentContext) CustomPrompt(t AgentType) string {
	if c.Brand.CustomPrompts == nil {
		return ""
	}
	return c.Brand.CustomPrompts[t]
}
