// Package agent implements the single-purpose pipeline stages of carousel
// generation. Every agent shares the same Base: it resolves which provider,
// model and token budget to use, makes the call and wraps the outcome in a
// model.AgentExecution.
package agent

import (
	"context"
	"time"

	"carousel/config"
	"carousel/model"
	"carousel/provider"

	"github.com/google/uuid"
)

// ProviderSource hands out ready provider instances by name. provider.Registry
// is the production implementation.
type ProviderSource interface {
	Provider(providerID string) (model.Provider, error)
}

// Deps are the collaborators shared by all agents.
type Deps struct {
	Providers ProviderSource
	Settings  config.AISettings
	// Media is only used by the image agents.
	Media MediaStore
}

// Resolution is the effective provider, model and budget of one call. An
// empty Model means the provider's configured default.
type Resolution struct {
	Provider  string
	Model     string
	MaxTokens int
}

// Base carries the resolution and bookkeeping shared by every agent.
type Base struct {
	agentType    model.AgentType
	defaultModel string
	deps         Deps
}

func newBase(t model.AgentType, defaultModel string, deps Deps) Base {
	return Base{agentType: t, defaultModel: defaultModel, deps: deps}
}

// Type returns the agent type.
func (b *Base) Type() model.AgentType { return b.agentType }

// ResolveText resolves provider, model and budget for a text agent.
//
// Provider: run override, then brand per-agent config, then system default.
// Model: brand override, then the agent's own default when the provider is
// openai (the defaults are OpenAI model names), else the provider default.
func (b *Base) ResolveText(actx model.AgentContext) Resolution {
	brandCfg, _ := actx.AgentConfig(b.agentType)

	res := Resolution{MaxTokens: b.maxTokens(brandCfg)}
	switch {
	case actx.ProviderOverride != "":
		res.Provider = actx.ProviderOverride
	case brandCfg.Provider != "":
		res.Provider = brandCfg.Provider
	default:
		res.Provider = b.defaultProvider()
	}
	res.Provider = string(provider.MapProviderIDToType(res.Provider))

	switch {
	case brandCfg.Model != "":
		res.Model = brandCfg.Model
	case res.Provider == string(provider.ProviderTypeOpenAI):
		res.Model = b.defaultModel
	}
	return res
}

// ResolveImage resolves provider and model for an image agent. The model is
// the brand override or the configured image model; the provider is the
// brand's explicit choice or the one the model routes to.
func (b *Base) ResolveImage(actx model.AgentContext) (Resolution, error) {
	brandCfg, _ := actx.AgentConfig(b.agentType)

	res := Resolution{MaxTokens: b.maxTokens(brandCfg), Model: brandCfg.Model}
	if res.Model == "" {
		res.Model = b.deps.Settings.ImageModel
	}
	if res.Model == "" {
		res.Model = config.DefaultImageModel
	}

	if brandCfg.Provider != "" {
		res.Provider = string(provider.MapProviderIDToType(brandCfg.Provider))
		return res, nil
	}
	routed, err := provider.ResolveImageProvider(res.Model)
	if err != nil {
		return res, err
	}
	res.Provider = string(routed)
	return res, nil
}

func (b *Base) maxTokens(brandCfg model.AgentAIConfig) int {
	if brandCfg.MaxTokens > 0 {
		return brandCfg.MaxTokens
	}
	if b.deps.Settings.MaxTokens > 0 {
		return b.deps.Settings.MaxTokens
	}
	return config.DefaultMaxTokens
}

func (b *Base) defaultProvider() string {
	if b.deps.Settings.DefaultProvider != "" {
		return b.deps.Settings.DefaultProvider
	}
	return string(provider.ProviderTypeOpenAI)
}

func (b *Base) startExecution(res Resolution, systemPrompt, userPrompt string, slide *int) model.AgentExecution {
	m := res.Model
	if m == "" {
		m = "default"
	}
	return model.AgentExecution{
		ID:           uuid.New().String(),
		AgentType:    b.agentType,
		Provider:     res.Provider,
		Model:        m,
		StartedAt:    time.Now(),
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		SlideIndex:   slide,
	}
}

func (b *Base) finish(ctx context.Context, exec *model.AgentExecution, usage *model.Usage) {
	exec.CompletedAt = time.Now()
	if usage != nil {
		exec.PromptTokens = usage.PromptTokens
		exec.CompletionTokens = usage.CompletionTokens
	}
	exec.TotalTokens = exec.PromptTokens + exec.CompletionTokens
	exec.Status = model.ExecutionSuccess
	if IsRetry(ctx) {
		exec.Status = model.ExecutionRetried
	}
}

// fail closes exec as failed and returns the error that carries it.
func (b *Base) fail(exec model.AgentExecution, err error) *AgentError {
	if exec.CompletedAt.IsZero() {
		exec.CompletedAt = time.Now()
	}
	exec.TotalTokens = exec.PromptTokens + exec.CompletionTokens
	exec.Status = model.ExecutionFailed
	exec.Error = err.Error()

	if config.Debug {
		config.DebugLog.Printf("[Agent] %s failed (provider=%s model=%s): %v", b.agentType, exec.Provider, exec.Model, err)
	}
	return &AgentError{Agent: b.agentType, Execution: exec, Err: err}
}

// textCall is one text generation made by an agent.
type textCall struct {
	System string
	User   string
	// Images are attached to the user message as image parts.
	Images      []string
	Temperature float64
}

// callText resolves the provider, performs the call and returns the raw
// content with a completed execution record.
func (b *Base) callText(ctx context.Context, actx model.AgentContext, call textCall) (string, model.AgentExecution, error) {
	res := b.ResolveText(actx)
	exec := b.startExecution(res, call.System, call.User, nil)

	p, err := b.deps.Providers.Provider(res.Provider)
	if err != nil {
		ae := b.fail(exec, err)
		return "", ae.Execution, ae
	}

	user := model.UserMessage(call.User)
	if len(call.Images) > 0 {
		parts := []model.ContentPart{model.TextPart(call.User)}
		for _, u := range call.Images {
			parts = append(parts, model.ImagePart(u))
		}
		user = model.UserParts(parts...)
	}

	temp := call.Temperature
	req := &model.GenerateTextRequest{
		Model:       res.Model,
		Messages:    []model.Message{model.SystemMessage(call.System), user},
		MaxTokens:   res.MaxTokens,
		Temperature: &temp,
		JSONOutput:  true,
	}

	if config.Debug {
		config.DebugLog.Printf("[Agent] %s calling %s (model=%s max_tokens=%d)", b.agentType, res.Provider, exec.Model, res.MaxTokens)
	}

	out, err := p.GenerateText(ctx, req)
	if err != nil {
		ae := b.fail(exec, err)
		return "", ae.Execution, ae
	}
	if out.Model != "" {
		exec.Model = out.Model
	}
	exec.Result = out.Content
	b.finish(ctx, &exec, out.Usage)
	return out.Content, exec, nil
}
