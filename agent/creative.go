package agent

import (
	"context"
	"fmt"

	"carousel/model"
)

// CreativeDirectionAgent plans the carousel: concept, narrative, visual style
// and the intent of each slide.
type CreativeDirectionAgent struct {
	Base
}

func NewCreativeDirectionAgent(deps Deps) *CreativeDirectionAgent {
	return &CreativeDirectionAgent{Base: newBase(model.AgentCreativeDirection, "gpt-4o", deps)}
}

// Run produces the briefing. Output that does not decode into a complete
// briefing is an error; no default briefing exists.
func (a *CreativeDirectionAgent) Run(ctx context.Context, actx model.AgentContext) (*model.CreativeBriefing, model.AgentExecution, error) {
	system := withCustomPrompt(fmt.Sprintf(
		"You are the creative director of %s. You plan %d-slide social media carousels "+
			"that follow the brand voice exactly.\n\n%s\n%s",
		actx.Brand.Name, model.SlideCount, brandVoice(actx.Brand), jsonInstruction(creativeSchema),
	), actx, a.agentType)

	user := fmt.Sprintf("Platform: %s\nRequest: %s\n\nSlides must appear in this order: hook, features, summary, cta.",
		actx.Platform, actx.UserPrompt)
	if len(actx.ReferenceImages) > 0 {
		user += "\nUse the attached reference images as visual inspiration."
	}

	raw, exec, err := a.callText(ctx, actx, textCall{
		System:      system,
		User:        user,
		Images:      actx.ReferenceImages,
		Temperature: 0.8,
	})
	if err != nil {
		return nil, exec, err
	}

	briefing, err := decodeFor(a.agentType, raw, DecodeStrict, model.CreativeBriefing{})
	if err != nil {
		ae := a.fail(exec, err)
		return nil, ae.Execution, ae
	}
	return &briefing, exec, nil
}
