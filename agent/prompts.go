package agent

import (
	"fmt"
	"strings"

	"carousel/model"
)

// brandVoice renders the brand guideline block shared by every text prompt.
func brandVoice(b model.BrandRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Brand: %s\n", b.Name)
	writeField(&sb, "Sector", b.Sector)
	writeField(&sb, "Tone of voice", b.Tone)
	writeField(&sb, "Target audience", b.TargetAudience)
	writeList(&sb, "Values", b.Values)
	writeList(&sb, "Preferred words", b.PreferredWords)
	writeList(&sb, "Words to avoid", b.AvoidedWords)
	writeList(&sb, "Brand colors", b.Colors)
	writeList(&sb, "Competitors (never mention)", b.Competitors)
	return sb.String()
}

func writeField(sb *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(sb, "%s: %s\n", label, value)
	}
}

func writeList(sb *strings.Builder, label string, values []string) {
	if len(values) > 0 {
		fmt.Fprintf(sb, "%s: %s\n", label, strings.Join(values, ", "))
	}
}

// withCustomPrompt appends the brand's own instructions for an agent.
func withCustomPrompt(system string, actx model.AgentContext, t model.AgentType) string {
	if custom := strings.TrimSpace(actx.CustomPrompt(t)); custom != "" {
		return system + "\n\nAdditional brand instructions:\n" + custom
	}
	return system
}

func briefingSummary(b *model.CreativeBriefing) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Concept: %s\n", b.Concept)
	fmt.Fprintf(&sb, "Narrative: %s\n", b.Narrative)
	fmt.Fprintf(&sb, "Visual style: %s\n", b.VisualStyle)
	writeList(&sb, "Color palette", b.ColorPalette)
	writeList(&sb, "Mood", b.MoodKeywords)
	writeField(&sb, "Typography", b.Typography)
	for i, s := range b.Slides {
		fmt.Fprintf(&sb, "Slide %d (%s): %s | key message: %s\n", i+1, s.Purpose, s.Direction, s.KeyMessage)
	}
	return sb.String()
}

func slideCopy(slides []model.CarouselSlide) string {
	var sb strings.Builder
	for _, s := range slides {
		text := s.Text
		if text == "" {
			text = "(no text)"
		}
		fmt.Fprintf(&sb, "Slide %d (%s): %s\n", s.Index+1, s.Purpose, text)
	}
	return sb.String()
}

const creativeSchema = `{
  "concept": "one-sentence creative concept",
  "narrative": "how the four slides tell one story",
  "visualStyle": "photography/illustration style, lighting, composition",
  "colorPalette": ["#hex", "..."],
  "moodKeywords": ["..."],
  "typography": "overall typographic direction",
  "globalOverlayStyle": {"fontFamily": "", "fontWeight": "", "fontSize": "", "color": "", "position": "", "background": "", "effects": ""},
  "slides": [
    {"purpose": "hook", "direction": "visual direction", "keyMessage": "what the slide says", "overlayStyle": null},
    {"purpose": "features", "direction": "", "keyMessage": "", "overlayStyle": null},
    {"purpose": "summary", "direction": "", "keyMessage": "", "overlayStyle": null},
    {"purpose": "cta", "direction": "", "keyMessage": "", "overlayStyle": null}
  ]
}`

const analysisSchema = `{"approved": true, "score": 0, "feedback": "", "suggestions": [""]}`

const textSchema = `{
  "caption": "post caption with hashtags",
  "slides": [
    {"index": 0, "text": "overlay text", "noText": false},
    {"index": 1, "text": "", "noText": true},
    {"index": 2, "text": "", "noText": false},
    {"index": 3, "text": "", "noText": false}
  ]
}`

const complianceSchema = `{
  "approved": true,
  "violations": [{"type": "avoided_word", "severity": "low|medium|high", "description": "", "slideIndex": 0}],
  "suggestions": [""]
}`

func jsonInstruction(schema string) string {
	return "Respond with a single JSON object in exactly this shape and nothing else:\n" + schema
}
