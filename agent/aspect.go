package agent

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultAspectRatio is used when a run does not request one.
const DefaultAspectRatio = "1:1"

// AspectRatios lists the supported output ratios.
var AspectRatios = []string{"1:1", "4:5", "9:16", "16:9"}

// ValidateAspectRatio returns the ratio, the default for "", or an error.
func ValidateAspectRatio(ratio string) (string, error) {
	if ratio == "" {
		return DefaultAspectRatio, nil
	}
	if !slices.Contains(AspectRatios, ratio) {
		return "", fmt.Errorf("unsupported aspect ratio %q (supported: %s)", ratio, strings.Join(AspectRatios, ", "))
	}
	return ratio, nil
}

// SizeFor maps an aspect ratio to the closest pixel size the model accepts.
// Only OpenAI models take an explicit size; other backends receive the ratio.
func SizeFor(modelName, ratio string) string {
	m := strings.ToLower(modelName)
	switch {
	case strings.HasPrefix(m, "dall-e-3"):
		switch ratio {
		case "4:5", "9:16":
			return "1024x1792"
		case "16:9":
			return "1792x1024"
		default:
			return "1024x1024"
		}
	case strings.HasPrefix(m, "dall-e"):
		return "1024x1024"
	case strings.HasPrefix(m, "gpt-image"):
		switch ratio {
		case "4:5", "9:16":
			return "1024x1536"
		case "16:9":
			return "1536x1024"
		default:
			return "1024x1024"
		}
	default:
		return ""
	}
}
