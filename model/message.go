package model

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentPartType identifies the kind of a multimodal content part.
type ContentPartType string

const (
	PartText     ContentPartType = "text"
	PartImageURL ContentPartType = "image_url"
)

// ContentPart is one element of a multimodal message body.
type ContentPart struct {
	Type     ContentPartType
	Text     string
	ImageURL string
}

// TextPart returns a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart returns an image-by-URL content part. The URL may be a data: URL.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartImageURL, ImageURL: url}
}

// Message is a provider-neutral chat message.
//
// Content holds plain text. When Parts is non-empty it takes precedence and
// the message is multimodal; providers convert image parts to their own
// encoding (URL or inline bytes) at the provider boundary.
type Message struct {
	Role    Role
	Content string
	Parts   []ContentPart
}

// IsMultimodal reports whether the message carries typed parts.
func (m Message) IsMultimodal() bool {
	return len(m.Parts) > 0
}

// Text returns the concatenated text of the message, ignoring image parts.
func (m Message) Text() string {
	if !m.IsMultimodal() {
		return m.Content
	}
	var out string
	for _, p := range m.Parts {
		if p.Type != PartText {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}

// SystemMessage returns a system message with plain text content.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user message with plain text content.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// UserParts returns a multimodal user message.
func UserParts(parts ...ContentPart) Message {
	return Message{Role: RoleUser, Parts: parts}
}
