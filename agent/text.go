package agent

import (
	"context"
	"fmt"
	"strings"

	"carousel/model"
)

// SlideCopy is the overlay text of one slide. NoText marks slides that work
// better without overlay.
type SlideCopy struct {
	Index  int    `json:"index" validate:"min=0,max=3"`
	Text   string `json:"text"`
	NoText bool   `json:"noText"`
}

// TextCreationOutput is the caption plus per-slide copy.
type TextCreationOutput struct {
	Caption string      `json:"caption" validate:"required"`
	Slides  []SlideCopy `json:"slides" validate:"len=4,unique=Index,dive"`
}

// TextCreationAgent writes the caption and the overlay text of every slide.
type TextCreationAgent struct {
	Base
}

func NewTextCreationAgent(deps Deps) *TextCreationAgent {
	return &TextCreationAgent{Base: newBase(model.AgentTextCreation, "gpt-4o", deps)}
}

// Run generates the copy. Output that does not decode is an error.
func (a *TextCreationAgent) Run(ctx context.Context, actx model.AgentContext, briefing *model.CreativeBriefing) (*TextCreationOutput, model.AgentExecution, error) {
	system := withCustomPrompt(fmt.Sprintf(
		"You are the copywriter of %s. Write short, punchy overlay text for each slide and "+
			"one caption for the post. Overlay text must be readable at a glance: at most 12 words. "+
			"Set noText to true for slides that are stronger without overlay.\n\n%s\n%s",
		actx.Brand.Name, brandVoice(actx.Brand), jsonInstruction(textSchema),
	), actx, a.agentType)

	user := fmt.Sprintf("Platform: %s\nRequest: %s\n\nBriefing:\n%s",
		actx.Platform, actx.UserPrompt, briefingSummary(briefing))

	raw, exec, err := a.callText(ctx, actx, textCall{System: system, User: user, Temperature: 0.7})
	if err != nil {
		return nil, exec, err
	}

	out, err := decodeFor(a.agentType, raw, DecodeStrict, TextCreationOutput{})
	if err != nil {
		ae := a.fail(exec, err)
		return nil, ae.Execution, ae
	}
	return &out, exec, nil
}

// BuildSlides combines the briefing and the copy into the carousel slides,
// in briefing order.
func BuildSlides(briefing *model.CreativeBriefing, written *TextCreationOutput) []model.CarouselSlide {
	texts := make(map[int]string, len(written.Slides))
	for _, c := range written.Slides {
		if !c.NoText {
			texts[c.Index] = strings.TrimSpace(c.Text)
		}
	}

	slides := make([]model.CarouselSlide, len(briefing.Slides))
	for i, intent := range briefing.Slides {
		slides[i] = model.CarouselSlide{
			Index:   i,
			Purpose: intent.Purpose,
			Text:    texts[i],
		}
	}
	return slides
}
