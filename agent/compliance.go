package agent

import (
	"context"
	"fmt"
	"strings"

	"carousel/model"
)

// ComplianceFallback is used when the compliance output cannot be decoded.
var ComplianceFallback = model.ComplianceResult{Approved: true}

// ComplianceAgent checks slide copy against brand rules.
type ComplianceAgent struct {
	Base
}

func NewComplianceAgent(deps Deps) *ComplianceAgent {
	return &ComplianceAgent{Base: newBase(model.AgentCompliance, "gpt-4o-mini", deps)}
}

// Run reviews the overlay text of slides. When no slide carries text the
// provider is not called and the result is an approved, skipped verdict with
// a nil execution.
func (a *ComplianceAgent) Run(ctx context.Context, actx model.AgentContext, slides []model.CarouselSlide, caption string) (*model.ComplianceResult, *model.AgentExecution, error) {
	if !anyText(slides) {
		return &model.ComplianceResult{Approved: true, Skipped: true}, nil, nil
	}

	system := withCustomPrompt(fmt.Sprintf(
		"You are the brand compliance reviewer. Check the copy for avoided words, off-brand tone, "+
			"competitor mentions, unverifiable claims and platform policy issues. "+
			"Grade each violation low, medium or high. Approve only when there is no high violation.\n\n%s\n%s",
		brandVoice(actx.Brand), jsonInstruction(complianceSchema),
	), actx, a.agentType)

	user := fmt.Sprintf("Platform: %s\nCaption: %s\n\nSlides:\n%s", actx.Platform, caption, slideCopy(slides))

	raw, exec, err := a.callText(ctx, actx, textCall{System: system, User: user, Temperature: 0.1})
	if err != nil {
		return nil, &exec, err
	}

	result, _ := decodeFor(a.agentType, raw, DecodeLenient, ComplianceFallback)
	return &result, &exec, nil
}

func anyText(slides []model.CarouselSlide) bool {
	for _, s := range slides {
		if s.HasText() {
			return true
		}
	}
	return false
}

// FeedbackString renders violations and suggestions as corrective
// instructions for another copywriting pass.
func FeedbackString(r *model.ComplianceResult) string {
	if r == nil || (len(r.Violations) == 0 && len(r.Suggestions) == 0) {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Compliance review rejected the previous copy. Fix these issues:\n")
	for _, v := range r.Violations {
		fmt.Fprintf(&sb, "- [%s] %s: %s", strings.ToUpper(string(v.Severity)), v.Type, v.Description)
		if v.SlideIndex != nil {
			fmt.Fprintf(&sb, " (slide %d)", *v.SlideIndex+1)
		}
		sb.WriteString("\n")
	}
	if len(r.Suggestions) > 0 {
		sb.WriteString("Suggestions:\n")
		for _, s := range r.Suggestions {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
