package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"carousel/model"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/generative-ai-go/genai"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// ConvertToOpenAIMessages converts model.Message to the OpenAI chat format.
// Image parts are sent as URLs; the API fetches them itself.
func ConvertToOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Text()))
		case model.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Text()))
		default:
			if !msg.IsMultimodal() {
				result = append(result, openai.UserMessage(msg.Text()))
				continue
			}
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.Parts))
			for _, part := range msg.Parts {
				switch part.Type {
				case model.PartImageURL:
					parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: part.ImageURL,
					}))
				default:
					parts = append(parts, openai.TextContentPart(part.Text))
				}
			}
			result = append(result, openai.UserMessage(parts))
		}
	}

	return result
}

// convertToAnthropicMessages converts messages to Anthropic format.
// Returns the message array and any system prompt found.
func convertToAnthropicMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	anthropicMsgs := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			// Anthropic uses a separate system parameter, not in messages array
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Text()})

		case model.RoleAssistant:
			anthropicMsgs = append(anthropicMsgs,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Text())),
			)

		default:
			anthropicMsgs = append(anthropicMsgs, anthropic.NewUserMessage(anthropicBlocks(msg)...))
		}
	}

	return anthropicMsgs, systemBlocks
}

func anthropicBlocks(msg model.Message) []anthropic.ContentBlockParamUnion {
	if !msg.IsMultimodal() {
		return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Text())}
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		if part.Type != model.PartImageURL {
			blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			continue
		}
		// data: URLs cannot be fetched by the API, send them as base64 sources
		if strings.HasPrefix(part.ImageURL, "data:") {
			data, mime, err := decodeDataURL(part.ImageURL)
			if err == nil {
				blocks = append(blocks, anthropic.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(data)))
				continue
			}
		}
		blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: part.ImageURL}))
	}
	return blocks
}

// convertToOllamaMessages converts messages to the Ollama chat format.
// Ollama only accepts inline image bytes, so every image part is fetched.
func convertToOllamaMessages(ctx context.Context, messages []model.Message) ([]api.Message, error) {
	result := make([]api.Message, 0, len(messages))

	for _, msg := range messages {
		out := api.Message{
			Role:    string(msg.Role),
			Content: msg.Text(),
		}
		for i, part := range msg.Parts {
			if part.Type != model.PartImageURL {
				continue
			}
			data, _, err := fetchImage(ctx, model.ImageRef{URL: part.ImageURL})
			if err != nil {
				return nil, fmt.Errorf("image part %d: %w", i, err)
			}
			out.Images = append(out.Images, api.ImageData(data))
		}
		result = append(result, out)
	}

	return result, nil
}

// geminiConversation is a message list split the way the Gemini chat API
// expects it: a system instruction, prior turns and the final user turn.
type geminiConversation struct {
	system  *genai.Content
	history []*genai.Content
	last    []genai.Part
}

// convertToGeminiContent converts messages to Gemini content. Images are
// fetched and sent inline.
func convertToGeminiContent(ctx context.Context, messages []model.Message) (*geminiConversation, error) {
	conv := &geminiConversation{}
	var turns []*genai.Content

	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if conv.system == nil {
				conv.system = &genai.Content{}
			}
			conv.system.Parts = append(conv.system.Parts, genai.Text(msg.Text()))
			continue
		}

		role := "user"
		if msg.Role == model.RoleAssistant {
			role = "model"
		}

		parts, err := geminiParts(ctx, msg)
		if err != nil {
			return nil, err
		}
		turns = append(turns, &genai.Content{Role: role, Parts: parts})
	}

	if len(turns) == 0 {
		return nil, fmt.Errorf("no user message to send")
	}
	last := turns[len(turns)-1]
	conv.history = turns[:len(turns)-1]
	conv.last = last.Parts
	return conv, nil
}

func geminiParts(ctx context.Context, msg model.Message) ([]genai.Part, error) {
	if !msg.IsMultimodal() {
		return []genai.Part{genai.Text(msg.Text())}, nil
	}

	parts := make([]genai.Part, 0, len(msg.Parts))
	for i, part := range msg.Parts {
		if part.Type != model.PartImageURL {
			parts = append(parts, genai.Text(part.Text))
			continue
		}
		data, mime, err := fetchImage(ctx, model.ImageRef{URL: part.ImageURL})
		if err != nil {
			return nil, fmt.Errorf("image part %d: %w", i, err)
		}
		parts = append(parts, genai.ImageData(imageFormat(mime), data))
	}
	return parts, nil
}
