package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGenerationInProgress rejects a run for a post that already has one in flight.
var ErrGenerationInProgress = errors.New("generation already in progress")

// ErrInvalidRequest is returned for requests missing required fields.
var ErrInvalidRequest = errors.New("invalid generation request")

// ConfigError lists every AI configuration problem found before a run.
type ConfigError struct {
	Violations []string
}

func (e *ConfigError) Error() string {
	if len(e.Violations) == 1 {
		return "invalid AI configuration: " + e.Violations[0]
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid AI configuration (%d problems):", len(e.Violations))
	for _, v := range e.Violations {
		sb.WriteString("\n- ")
		sb.WriteString(v)
	}
	return sb.String()
}
