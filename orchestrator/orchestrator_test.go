package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"carousel/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCompletes(t *testing.T) {
	f := newFixture()

	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	require.Len(t, result.Slides, model.SlideCount)
	assert.Equal(t, "Autumn is brewing. #coffee", result.Caption)
	require.NotNil(t, result.Briefing)
	assert.NotEmpty(t, result.RunID)
	for i, s := range result.Slides {
		assert.Equal(t, i, s.Index)
		assert.NotEmpty(t, s.MasterImageURL)
		assert.Contains(t, s.Versions, "1:1")
	}

	assert.Equal(t, 1, countAgent(result.Executions, model.AgentCreativeDirection))
	assert.Equal(t, 1, countAgent(result.Executions, model.AgentAnalysis))
	assert.Equal(t, 1, countAgent(result.Executions, model.AgentTextCreation))
	assert.Equal(t, 1, countAgent(result.Executions, model.AgentCompliance))
	assert.Equal(t, 4, countAgent(result.Executions, model.AgentImageGeneration))
	assert.Equal(t, 4, countAgent(result.Executions, model.AgentTextOverlay))

	assert.Equal(t, []model.GenerationStep{
		model.StepLoadingBrand,
		model.StepCreativeDirection,
		model.StepAnalysis,
		model.StepTextCreation,
		model.StepCompliance,
		model.StepImageGeneration,
		model.StepTextOverlay,
		model.StepCompleted,
	}, f.sink.steps())
	assert.Equal(t, model.TotalSteps, f.sink.last().StepIndex)

	assert.Equal(t, 1, f.lock.acquired)
	assert.Equal(t, []string{""}, f.lock.released)
}

func TestRunTokenTotalsMatchExecutions(t *testing.T) {
	f := newFixture()
	f.script.analysis = []string{`{"approved": false, "score": 20}`, approvedAnalysis}
	f.script.compliance = []string{rejectedCompliance, approvedCompliance}

	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	var prompt, completion int
	for _, e := range result.Executions {
		prompt += e.PromptTokens
		completion += e.CompletionTokens
		assert.Equal(t, e.PromptTokens+e.CompletionTokens, e.TotalTokens)
	}
	assert.Equal(t, prompt+completion, result.TotalTokens.Total)
	// creative x2, analysis, text x2, compliance x2
	assert.Equal(t, 7*150, result.TotalTokens.Total)
}

func TestAnalysisRetryThreshold(t *testing.T) {
	tests := []struct {
		name          string
		analysis      string
		wantCreatives int
	}{
		{"rejected below threshold", `{"approved": false, "score": 49}`, 2},
		{"rejected at threshold", `{"approved": false, "score": 50}`, 1},
		{"approved with low score", `{"approved": true, "score": 10}`, 1},
		{"rejected with score 30", `{"approved": false, "score": 30}`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.script.analysis = []string{tt.analysis}

			result, err := f.orchestrator().Run(context.Background(), testRequest())
			require.NoError(t, err)
			require.True(t, result.Success, result.Error)

			assert.Equal(t, tt.wantCreatives, countAgent(result.Executions, model.AgentCreativeDirection))
			assert.Equal(t, tt.wantCreatives, f.script.count(model.AgentCreativeDirection))
			assert.Equal(t, 1, f.script.count(model.AgentAnalysis), "analysis is not repeated after a retry")
		})
	}
}

func TestAnalysisRetryStatus(t *testing.T) {
	f := newFixture()
	f.script.analysis = []string{`{"approved": false, "score": 12}`}

	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t,
		[]model.ExecutionStatus{model.ExecutionSuccess, model.ExecutionRetried},
		statusesOf(result.Executions, model.AgentCreativeDirection))
}

func TestComplianceRetryRunsOnce(t *testing.T) {
	f := newFixture()
	f.script.compliance = []string{rejectedCompliance}

	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.True(t, result.Success, "a failed re-check does not fail the run")

	assert.Equal(t, 2, f.script.count(model.AgentTextCreation))
	assert.Equal(t, 2, f.script.count(model.AgentCompliance))
	assert.Equal(t,
		[]model.ExecutionStatus{model.ExecutionSuccess, model.ExecutionRetried},
		statusesOf(result.Executions, model.AgentTextCreation))

	var textCalls []*model.GenerateTextRequest
	for _, call := range f.prov.TextCalls() {
		if classify(call) == model.AgentTextCreation {
			textCalls = append(textCalls, call)
		}
	}
	require.Len(t, textCalls, 2)
	assert.NotContains(t, textCalls[0].Messages[1].Text(), "[HIGH]")
	retryPrompt := textCalls[1].Messages[1].Text()
	assert.Contains(t, retryPrompt, "Launch our autumn blend")
	assert.Contains(t, retryPrompt, "[HIGH] avoided_word")
}

func TestComplianceSkippedWithoutText(t *testing.T) {
	f := newFixture()
	f.script.text = []string{`{
	  "caption": "Just look.",
	  "slides": [
	    {"index": 0, "noText": true}, {"index": 1, "noText": true},
	    {"index": 2, "noText": true}, {"index": 3, "noText": true}
	  ]
	}`}

	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	assert.Equal(t, 0, f.script.count(model.AgentCompliance))
	assert.Equal(t, 0, countAgent(result.Executions, model.AgentTextOverlay), "slides without text get no overlay")
}

func TestImageFailureIsIsolated(t *testing.T) {
	f := newFixture()
	base := f.prov.GenerateImageFunc
	f.prov.GenerateImageFunc = func(ctx context.Context, req *model.GenerateImageRequest) (*model.GenerateImageResult, error) {
		if len(req.ReferenceImages) == 0 && strings.Contains(req.Prompt, "Slide 3 of") {
			return nil, errors.New("boom")
		}
		return base(ctx, req)
	}

	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.True(t, result.Success, "per-slide failures do not fail the run")
	require.Len(t, result.Slides, 4)

	assert.Empty(t, result.Slides[2].MasterImageURL)
	assert.NotEmpty(t, result.Slides[2].ImagePrompt)
	assert.NotEmpty(t, result.Slides[0].MasterImageURL)
	assert.Equal(t, 3, countAgent(result.Executions, model.AgentTextOverlay))
}

func TestFatalParseFailure(t *testing.T) {
	f := newFixture()
	f.script.text = []string{"I'd love to help with that!"}

	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.False(t, result.Success)

	assert.Equal(t, model.StepTextCreation, result.FailedStep)
	assert.Contains(t, result.Error, "I'd love to help with that!", "raw output is surfaced")

	statuses := statusesOf(result.Executions, model.AgentTextCreation)
	assert.Equal(t, []model.ExecutionStatus{model.ExecutionFailed}, statuses)
	assert.Equal(t, 3*150, result.TotalTokens.Total, "the failed call's tokens are counted")
	assert.Equal(t, 0, countAgent(result.Executions, model.AgentImageGeneration))

	last := f.sink.last()
	assert.Equal(t, model.StepFailed, last.Step)
	assert.Equal(t, model.StepTextCreation.StepIndex(), last.StepIndex)
	assert.NotEmpty(t, last.Error)

	require.Len(t, f.lock.released, 1)
	assert.Equal(t, result.Error, f.lock.released[0])
	assert.Len(t, f.usage.rows, len(result.Executions))
}

func TestProviderFailureKeepsPartialExecution(t *testing.T) {
	f := newFixture()
	f.deps.Providers = fakeProviders{}

	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Equal(t, model.StepCreativeDirection, result.FailedStep)

	require.Len(t, result.Executions, 1)
	assert.Equal(t, model.ExecutionFailed, result.Executions[0].Status)
	assert.Equal(t, model.AgentCreativeDirection, result.Executions[0].AgentType)
}

func TestConfigErrorStopsBeforeAnyCall(t *testing.T) {
	f := newFixture()
	f.deps.Settings.ImageModel = "dall-e-3"
	f.brand.AIConfig = model.AIConfig{
		model.AgentImageGeneration: {Provider: "google"},
	}

	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.False(t, result.Success)

	assert.Equal(t, model.StepLoadingBrand, result.FailedStep)
	assert.Contains(t, result.Error, `"openai"`)
	assert.Contains(t, result.Error, `"google"`)
	assert.Empty(t, f.prov.TextCalls())
	assert.Empty(t, f.prov.ImageCalls())
	assert.Empty(t, result.Executions)
}

func TestUnknownBrand(t *testing.T) {
	f := newFixture()
	req := testRequest()
	req.BrandID = "nope"

	result, err := f.orchestrator().Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, model.StepLoadingBrand, result.FailedStep)
}

func TestInvalidRequest(t *testing.T) {
	f := newFixture()
	req := testRequest()
	req.UserPrompt = "  "

	_, err := f.orchestrator().Run(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, f.lock.acquired)
}

func TestInvalidAspectRatio(t *testing.T) {
	f := newFixture()
	req := testRequest()
	req.AspectRatio = "3:2"

	result, err := f.orchestrator().Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, model.StepLoadingBrand, result.FailedStep)
}

func TestRunRejectedWhileInFlight(t *testing.T) {
	f := newFixture()
	locks := NewRunLocks()
	f.deps.Locks = locks
	o := f.orchestrator()

	release, ok := locks.TryAcquire("post-1")
	require.True(t, ok)

	_, err := o.Run(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrGenerationInProgress)
	assert.Zero(t, f.lock.acquired)

	release()
	result, err := o.Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, locks.Held("post-1"), "lock is released after the run")
}

func TestRunRejectedByExternalLock(t *testing.T) {
	f := newFixture()
	f.lock.busy = true

	_, err := f.orchestrator().Run(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrGenerationInProgress)
	assert.Empty(t, f.prov.TextCalls())
	assert.Empty(t, f.lock.released, "a rejected run does not reset someone else's lock")
}

func TestFailedReleaseFlagsPost(t *testing.T) {
	f := newFixture()
	f.lock.releaseErr = errors.New("database is locked")

	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.Len(t, f.lock.marked, 1)
	assert.Contains(t, f.lock.marked[0], "database is locked")
	assert.False(t, f.lock.busy)
}

func TestStageTimeout(t *testing.T) {
	f := newFixture()
	f.deps.Settings.StageTimeout = "50ms"
	f.prov.GenerateTextFunc = func(ctx context.Context, req *model.GenerateTextRequest) (*model.GenerateTextResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	start := time.Now()
	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.False(t, result.Success)
	assert.Equal(t, model.StepCreativeDirection, result.FailedStep)
	assert.Contains(t, result.Error, context.DeadlineExceeded.Error())
}

func TestProgressSinkFailuresAreIgnored(t *testing.T) {
	f := newFixture()
	f.sink.err = errors.New("database is locked")

	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestCostAndUsage(t *testing.T) {
	f := newFixture()

	result, err := f.orchestrator().Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotNil(t, result.Cost)

	// 4 text calls at 150 tokens, 8 images
	assert.InDelta(t, 4*0.15+8*0.04, result.Cost.TotalUSD, 1e-9)
	assert.Len(t, result.Cost.Lines, len(result.Executions))
	assert.Equal(t, "openai", result.Cost.MainProvider)

	require.Len(t, f.usage.rows, len(result.Executions))
	var sum float64
	for _, r := range f.usage.rows {
		sum += r.cost
	}
	assert.InDelta(t, result.Cost.TotalUSD, sum, 1e-9)
	assert.InDelta(t, result.Cost.TotalUSD, f.sink.last().CostUSD, 1e-9)
}

func TestProviderOverrideAppliesToTextAgents(t *testing.T) {
	f := newFixture()
	s := newScript()
	groq := s.provider()
	f.deps.Providers = fakeProviders{"openai": f.prov, "groq": groq}

	req := testRequest()
	req.ProviderOverride = "groq"
	result, err := f.orchestrator().Run(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	assert.Equal(t, 4, len(groq.TextCalls()))
	assert.Empty(t, f.prov.TextCalls())
	assert.NotEmpty(t, f.prov.ImageCalls(), "images still route by model")
}
