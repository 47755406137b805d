package agent

import (
	"context"
	"errors"
	"testing"

	"carousel/config"
	"carousel/model"
	"carousel/provider"
	"carousel/provider/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveText(t *testing.T) {
	tests := []struct {
		name      string
		override  string
		brand     model.AIConfig
		settings  config.AISettings
		provider  string
		model     string
		maxTokens int
	}{
		{
			name:      "system default",
			settings:  config.AISettings{DefaultProvider: "openai"},
			provider:  "openai",
			model:     "gpt-4o",
			maxTokens: config.DefaultMaxTokens,
		},
		{
			name:      "empty settings fall back to openai",
			provider:  "openai",
			model:     "gpt-4o",
			maxTokens: config.DefaultMaxTokens,
		},
		{
			name:      "brand provider beats default, provider default model",
			brand:     model.AIConfig{model.AgentCreativeDirection: {Provider: "anthropic"}},
			settings:  config.AISettings{DefaultProvider: "openai", MaxTokens: 4000},
			provider:  "anthropic",
			model:     "",
			maxTokens: 4000,
		},
		{
			name:      "override beats brand",
			override:  "groq",
			brand:     model.AIConfig{model.AgentCreativeDirection: {Provider: "anthropic", Model: "claude-x", MaxTokens: 1234}},
			provider:  "groq",
			model:     "claude-x",
			maxTokens: 1234,
		},
		{
			name:      "brand model override",
			brand:     model.AIConfig{model.AgentCreativeDirection: {Model: "gpt-4.1"}},
			provider:  "openai",
			model:     "gpt-4.1",
			maxTokens: config.DefaultMaxTokens,
		},
		{
			name:      "gemini alias normalized",
			brand:     model.AIConfig{model.AgentCreativeDirection: {Provider: "Gemini"}},
			provider:  "google",
			maxTokens: config.DefaultMaxTokens,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewCreativeDirectionAgent(Deps{Settings: tt.settings})
			actx := testContext()
			actx.AIConfig = tt.brand
			actx.ProviderOverride = tt.override

			res := a.ResolveText(actx)
			assert.Equal(t, tt.provider, res.Provider)
			assert.Equal(t, tt.model, res.Model)
			assert.Equal(t, tt.maxTokens, res.MaxTokens)
		})
	}
}

func TestResolveImage(t *testing.T) {
	tests := []struct {
		name     string
		brand    model.AIConfig
		settings config.AISettings
		provider string
		model    string
		err      error
	}{
		{name: "builtin default", provider: "openai", model: config.DefaultImageModel},
		{name: "settings model routes", settings: config.AISettings{ImageModel: "imagen-3.0"}, provider: "google", model: "imagen-3.0"},
		{name: "brand model routes", brand: model.AIConfig{model.AgentImageGeneration: {Model: "sd-turbo"}}, provider: "local", model: "sd-turbo"},
		{name: "explicit provider kept", brand: model.AIConfig{model.AgentImageGeneration: {Provider: "local", Model: "flux-dev"}}, provider: "local", model: "flux-dev"},
		{name: "unknown model", brand: model.AIConfig{model.AgentImageGeneration: {Model: "midjourney"}}, err: provider.ErrUnknownImageModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewImageGenerationAgent(Deps{Settings: tt.settings})
			actx := testContext()
			actx.AIConfig = tt.brand

			res, err := a.ResolveImage(actx)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, res.Provider)
			assert.Equal(t, tt.model, res.Model)
		})
	}
}

func TestCallText_ProviderFailureCarriesExecution(t *testing.T) {
	p := testutil.NewMockProvider("openai")
	p.GenerateTextFunc = func(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error) {
		return nil, &provider.ProviderError{Provider: "openai", StatusCode: 429, Message: "retry later"}
	}
	a := NewAnalysisAgent(testDeps(fakeProviders{"openai": p}))

	_, exec, err := a.Run(context.Background(), testContext(), testBriefing())
	require.Error(t, err)

	var ae *AgentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, model.AgentAnalysis, ae.Agent)
	assert.Equal(t, model.ExecutionFailed, ae.Execution.Status)
	assert.Equal(t, "openai: retry later", ae.Execution.Error)
	assert.Equal(t, exec.ID, ae.Execution.ID)

	carried, ok := ExecutionOf(err)
	require.True(t, ok)
	assert.Equal(t, ae.Execution.ID, carried.ID)
}

func TestCallText_DisabledProvider(t *testing.T) {
	a := NewAnalysisAgent(testDeps(fakeProviders{}))

	_, _, err := a.Run(context.Background(), testContext(), testBriefing())
	require.ErrorIs(t, err, provider.ErrProviderDisabled)

	exec, ok := ExecutionOf(err)
	require.True(t, ok)
	assert.Equal(t, model.ExecutionFailed, exec.Status)
	assert.Equal(t, "openai", exec.Provider)
}

func TestCallText_RequestAndBookkeeping(t *testing.T) {
	p := textReturning(testutil.NewMockProvider("openai"), `{"approved": true, "score": 88}`)
	deps := testDeps(fakeProviders{"openai": p})
	deps.Settings.MaxTokens = 2048
	a := NewAnalysisAgent(deps)

	res, exec, err := a.Run(context.Background(), testContext(), testBriefing())
	require.NoError(t, err)
	assert.Equal(t, 88, res.Score)

	calls := p.TextCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "gpt-4o-mini", calls[0].Model)
	assert.Equal(t, 2048, calls[0].MaxTokens)
	assert.True(t, calls[0].JSONOutput)
	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, model.RoleSystem, calls[0].Messages[0].Role)

	assert.Equal(t, model.ExecutionSuccess, exec.Status)
	assert.Equal(t, 100, exec.PromptTokens)
	assert.Equal(t, 50, exec.CompletionTokens)
	assert.Equal(t, 150, exec.TotalTokens)
	assert.NotEmpty(t, exec.ID)
	assert.False(t, exec.CompletedAt.Before(exec.StartedAt))
}

func TestCallText_RetryStatus(t *testing.T) {
	p := textReturning(testutil.NewMockProvider("openai"), `{"approved": true, "score": 90}`)
	a := NewAnalysisAgent(testDeps(fakeProviders{"openai": p}))

	_, exec, err := a.Run(WithRetry(context.Background()), testContext(), testBriefing())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionRetried, exec.Status)
	assert.True(t, IsRetry(WithRetry(context.Background())))
	assert.False(t, IsRetry(context.Background()))
}

func TestCustomPromptIncluded(t *testing.T) {
	p := textReturning(testutil.NewMockProvider("openai"), `{"approved": true, "score": 90}`)
	a := NewAnalysisAgent(testDeps(fakeProviders{"openai": p}))

	actx := testContext()
	actx.Brand.CustomPrompts = map[model.AgentType]string{model.AgentAnalysis: "Be strict about emojis."}

	_, _, err := a.Run(context.Background(), actx, testBriefing())
	require.NoError(t, err)
	assert.Contains(t, p.TextCalls()[0].Messages[0].Text(), "Be strict about emojis.")
}
