package testutil

import (
	"carousel/model"
)

// TestMessages returns a sample system + user exchange for testing.
func TestMessages() []model.Message {
	return []model.Message{
		model.SystemMessage("You are a creative director."),
		model.UserMessage("Plan a carousel about autumn coffee."),
	}
}

// VisionMessages returns a multimodal request with one image part.
func VisionMessages(imageURL string) []model.Message {
	return []model.Message{
		model.SystemMessage("You review images."),
		model.UserParts(
			model.TextPart("Evaluate this slide."),
			model.ImagePart(imageURL),
		),
	}
}

// SingleUserMessage returns a single user message for simple tests.
func SingleUserMessage(content string) []model.Message {
	return []model.Message{model.UserMessage(content)}
}

// EmptyMessages returns an empty message slice for edge case testing.
func EmptyMessages() []model.Message {
	return []model.Message{}
}

// TestBrand returns a fully populated brand record.
func TestBrand() *model.BrandRecord {
	return &model.BrandRecord{
		ID:             "brand-1",
		Name:           "Acme Coffee",
		Tone:           "warm, playful",
		Values:         []string{"sustainability", "craft"},
		PreferredWords: []string{"fresh", "roasted"},
		AvoidedWords:   []string{"cheap"},
		TargetAudience: "urban professionals 25-40",
		Colors:         []string{"#4B2E2B", "#F5E6CC"},
		Sector:         "food & beverage",
		Competitors:    []string{"Bean Co"},
		CustomPrompts:  map[model.AgentType]string{},
		AIConfig:       model.AIConfig{},
	}
}

// BrandWithAIConfig returns TestBrand with per-agent overrides applied.
func BrandWithAIConfig(cfg model.AIConfig) *model.BrandRecord {
	b := TestBrand()
	b.AIConfig = cfg
	return b
}
