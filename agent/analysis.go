package agent

import (
	"context"
	"fmt"

	"carousel/model"
)

// AnalysisFallback is used when the analysis output cannot be decoded.
// Analysis is advisory, so an unreadable verdict approves the briefing.
var AnalysisFallback = model.AnalysisResult{
	Approved: true,
	Score:    70,
	Feedback: "analysis output could not be parsed; briefing accepted",
}

// analysisOutput is the wire shape of the verdict. A missing score is a
// decode failure, not a zero.
type analysisOutput struct {
	Approved    bool     `json:"approved"`
	Score       *int     `json:"score" validate:"required,min=0,max=100"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

func (o analysisOutput) result() model.AnalysisResult {
	if o.Score == nil {
		return AnalysisFallback
	}
	return model.AnalysisResult{
		Approved:    o.Approved,
		Score:       *o.Score,
		Feedback:    o.Feedback,
		Suggestions: o.Suggestions,
	}
}

// AnalysisAgent scores a creative briefing against the brand.
type AnalysisAgent struct {
	Base
}

func NewAnalysisAgent(deps Deps) *AnalysisAgent {
	return &AnalysisAgent{Base: newBase(model.AgentAnalysis, "gpt-4o-mini", deps)}
}

func (a *AnalysisAgent) Run(ctx context.Context, actx model.AgentContext, briefing *model.CreativeBriefing) (*model.AnalysisResult, model.AgentExecution, error) {
	system := withCustomPrompt(fmt.Sprintf(
		"You review creative briefings for brand fit, clarity and platform suitability. "+
			"Score from 0 to 100 and approve only briefings ready for production.\n\n%s\n%s",
		brandVoice(actx.Brand), jsonInstruction(analysisSchema),
	), actx, a.agentType)

	user := fmt.Sprintf("Platform: %s\nOriginal request: %s\n\nBriefing:\n%s",
		actx.Platform, actx.UserPrompt, briefingSummary(briefing))

	raw, exec, err := a.callText(ctx, actx, textCall{System: system, User: user, Temperature: 0.2})
	if err != nil {
		return nil, exec, err
	}

	out, _ := decodeFor(a.agentType, raw, DecodeLenient, analysisOutput{})
	result := out.result()
	return &result, exec, nil
}
