package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"carousel/config"
	"carousel/model"

	"github.com/go-playground/validator/v10"
	"github.com/kaptinlin/jsonrepair"
)

// Policy decides what Decode does with output it cannot use.
type Policy int

const (
	// DecodeStrict returns a *ParseError carrying the raw output.
	DecodeStrict Policy = iota
	// DecodeLenient returns the fallback value and no error.
	DecodeLenient
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON field names in validation errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateSlideOrder, model.CreativeBriefing{})
	return v
}

// validateSlideOrder requires one slide per purpose in carousel order.
func validateSlideOrder(sl validator.StructLevel) {
	b := sl.Current().Interface().(model.CreativeBriefing)
	if len(b.Slides) != model.SlideCount {
		return
	}
	for i, s := range b.Slides {
		if s.Purpose != model.SlidePurposes[i] {
			sl.ReportError(s.Purpose, fmt.Sprintf("slides[%d].purpose", i), "Purpose", "slideorder", string(model.SlidePurposes[i]))
		}
	}
}

// Decode parses model output into T and validates it against T's validate
// tags. Code fences and prose around the JSON object are ignored, and
// near-JSON (trailing commas, single quotes, truncation) is repaired before
// giving up.
func Decode[T any](raw string, policy Policy, fallback T) (T, error) {
	var out T
	err := decodeInto(raw, &out)
	if err == nil {
		return out, nil
	}

	if policy == DecodeLenient {
		if config.Debug {
			config.DebugLog.Printf("[Agent] lenient decode fell back to default: %v", err)
		}
		return fallback, nil
	}
	return out, &ParseError{Raw: raw, Err: err}
}

func decodeInto(raw string, target any) error {
	candidate := extractJSON(raw)
	if candidate == "" {
		return errors.New("no JSON object found")
	}

	if err := json.Unmarshal([]byte(candidate), target); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(candidate)
		if repairErr != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), target); err != nil {
			return fmt.Errorf("invalid JSON after repair: %w", err)
		}
	}

	if reflect.Indirect(reflect.ValueOf(target)).Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

// extractJSON strips markdown fences and returns the span from the first
// '{' to the last '}'. With no closing brace the tail is returned for repair.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(s, '}')
	if end < start {
		return strings.TrimSpace(s[start:])
	}
	return s[start : end+1]
}

// decodeFor is Decode with the ParseError attributed to an agent.
func decodeFor[T any](agentType model.AgentType, raw string, policy Policy, fallback T) (T, error) {
	out, err := Decode(raw, policy, fallback)
	var pe *ParseError
	if errors.As(err, &pe) {
		pe.Agent = agentType
	}
	return out, err
}
