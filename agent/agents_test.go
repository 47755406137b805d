package agent

import (
	"context"
	"errors"
	"testing"

	"carousel/model"
	"carousel/provider/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreativeDirection_Success(t *testing.T) {
	p := textReturning(testutil.NewMockProvider("openai"), "```json\n"+validBriefingJSON+"\n```")
	a := NewCreativeDirectionAgent(testDeps(fakeProviders{"openai": p}))

	briefing, exec, err := a.Run(context.Background(), testContext())
	require.NoError(t, err)
	assert.Equal(t, "Autumn in a cup", briefing.Concept)
	require.Len(t, briefing.Slides, 4)
	assert.Equal(t, model.PurposeCTA, briefing.Slides[3].Purpose)
	assert.Equal(t, model.AgentCreativeDirection, exec.AgentType)

	system := p.TextCalls()[0].Messages[0].Text()
	assert.Contains(t, system, "Acme Coffee")
	assert.Contains(t, system, "warm, playful")
	assert.Contains(t, system, "cheap")
}

func TestCreativeDirection_ParseFailureIsFatal(t *testing.T) {
	raw := "Sure! Here's a great idea for your carousel."
	p := textReturning(testutil.NewMockProvider("openai"), raw)
	a := NewCreativeDirectionAgent(testDeps(fakeProviders{"openai": p}))

	briefing, exec, err := a.Run(context.Background(), testContext())
	require.Error(t, err)
	assert.Nil(t, briefing)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, model.AgentCreativeDirection, pe.Agent)
	assert.Equal(t, raw, pe.Raw)

	assert.Equal(t, model.ExecutionFailed, exec.Status)
	assert.Equal(t, 150, exec.TotalTokens, "tokens of a call that returned are still counted")
}

func TestCreativeDirection_ReferenceImagesAreMultimodal(t *testing.T) {
	p := textReturning(testutil.NewMockProvider("openai"), validBriefingJSON)
	a := NewCreativeDirectionAgent(testDeps(fakeProviders{"openai": p}))

	actx := testContext()
	actx.ReferenceImages = []string{"https://img.test/ref1.png", "https://img.test/ref2.png"}

	_, _, err := a.Run(context.Background(), actx)
	require.NoError(t, err)

	user := p.TextCalls()[0].Messages[1]
	require.True(t, user.IsMultimodal())
	require.Len(t, user.Parts, 3)
	assert.Equal(t, model.PartText, user.Parts[0].Type)
	assert.Equal(t, "https://img.test/ref2.png", user.Parts[2].ImageURL)
}

func TestAnalysis_LenientFallback(t *testing.T) {
	p := textReturning(testutil.NewMockProvider("openai"), "Looks great to me!")
	a := NewAnalysisAgent(testDeps(fakeProviders{"openai": p}))

	result, exec, err := a.Run(context.Background(), testContext(), testBriefing())
	require.NoError(t, err)
	assert.True(t, result.Approved)
	assert.Equal(t, 70, result.Score)
	assert.Equal(t, model.ExecutionSuccess, exec.Status)
}

func TestAnalysis_MissingScoreFallsBack(t *testing.T) {
	p := textReturning(testutil.NewMockProvider("openai"), `{"approved": false, "feedback": "meh"}`)
	a := NewAnalysisAgent(testDeps(fakeProviders{"openai": p}))

	result, _, err := a.Run(context.Background(), testContext(), testBriefing())
	require.NoError(t, err)
	assert.Equal(t, AnalysisFallback, *result)
}

func TestTextCreation_DuplicateIndexIsFatal(t *testing.T) {
	raw := `{"caption": "c", "slides": [
	  {"index": 0, "text": "a"}, {"index": 0, "text": "b"},
	  {"index": 0, "text": "c"}, {"index": 0, "text": "d"}
	]}`
	p := textReturning(testutil.NewMockProvider("openai"), raw)
	a := NewTextCreationAgent(testDeps(fakeProviders{"openai": p}))

	_, exec, err := a.Run(context.Background(), testContext(), testBriefing())
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, raw, pe.Raw)
	assert.Equal(t, model.ExecutionFailed, exec.Status)
}

func TestTextCreation(t *testing.T) {
	raw := `{"caption": "Autumn is here #coffee", "slides": [
	  {"index": 0, "text": "Autumn is back"},
	  {"index": 1, "text": "", "noText": true},
	  {"index": 2, "text": " Made to share "},
	  {"index": 3, "text": "Order today"}
	]}`
	p := textReturning(testutil.NewMockProvider("openai"), raw)
	a := NewTextCreationAgent(testDeps(fakeProviders{"openai": p}))
	briefing := testBriefing()

	out, _, err := a.Run(context.Background(), testContext(), briefing)
	require.NoError(t, err)
	assert.Equal(t, "Autumn is here #coffee", out.Caption)

	slides := BuildSlides(briefing, out)
	require.Len(t, slides, 4)
	assert.Equal(t, "Autumn is back", slides[0].Text)
	assert.False(t, slides[1].HasText())
	assert.Equal(t, "Made to share", slides[2].Text)
	assert.Equal(t, model.PurposeSummary, slides[2].Purpose)
	assert.Equal(t, 3, slides[3].Index)
}

func TestTextCreation_ParseFailureIsFatal(t *testing.T) {
	p := textReturning(testutil.NewMockProvider("openai"), `{"caption": ""}`)
	a := NewTextCreationAgent(testDeps(fakeProviders{"openai": p}))

	_, _, err := a.Run(context.Background(), testContext(), testBriefing())
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, model.AgentTextCreation, pe.Agent)
}

func TestCompliance_SkipsWithoutText(t *testing.T) {
	p := testutil.NewMockProvider("openai")
	a := NewComplianceAgent(testDeps(fakeProviders{"openai": p}))

	result, exec, err := a.Run(context.Background(), testContext(), testSlides(), "caption")
	require.NoError(t, err)
	assert.True(t, result.Approved)
	assert.True(t, result.Skipped)
	assert.Nil(t, exec)
	assert.Empty(t, p.TextCalls())
}

func TestCompliance_Violations(t *testing.T) {
	raw := `{"approved": false, "violations": [
	  {"type": "avoided_word", "severity": "high", "description": "uses 'cheap'", "slideIndex": 0}
	], "suggestions": ["Say 'affordable' instead"]}`
	p := textReturning(testutil.NewMockProvider("openai"), raw)
	a := NewComplianceAgent(testDeps(fakeProviders{"openai": p}))

	result, exec, err := a.Run(context.Background(), testContext(), testSlides("So cheap!"), "caption")
	require.NoError(t, err)
	require.NotNil(t, exec)
	assert.False(t, result.Approved)
	require.Len(t, result.Violations, 1)

	feedback := FeedbackString(result)
	assert.Contains(t, feedback, "[HIGH]")
	assert.Contains(t, feedback, "avoided_word")
	assert.Contains(t, feedback, "(slide 1)")
	assert.Contains(t, feedback, "Say 'affordable' instead")
}

func TestCompliance_LenientFallback(t *testing.T) {
	p := textReturning(testutil.NewMockProvider("openai"), `{"approved": false, "violations": [{"type": "x", "severity": "catastrophic"}]}`)
	a := NewComplianceAgent(testDeps(fakeProviders{"openai": p}))

	result, _, err := a.Run(context.Background(), testContext(), testSlides("hello"), "caption")
	require.NoError(t, err)
	assert.True(t, result.Approved)
}

func TestFeedbackString_Empty(t *testing.T) {
	assert.Equal(t, "", FeedbackString(nil))
	assert.Equal(t, "", FeedbackString(&model.ComplianceResult{Approved: true}))
}
