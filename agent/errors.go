package agent

import (
	"errors"
	"fmt"

	"carousel/model"
)

// AgentError is a failed agent call. Execution is the partial record of the
// attempt (status failed) so callers can still log it.
type AgentError struct {
	Agent     model.AgentType
	Execution model.AgentExecution
	Err       error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("%s agent: %v", e.Agent, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// ExecutionOf extracts the partial execution carried by err, if any.
func ExecutionOf(err error) (model.AgentExecution, bool) {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Execution, true
	}
	return model.AgentExecution{}, false
}

const maxRawInError = 500

// ParseError is model output that failed to decode into the expected shape.
// Raw holds the complete unparsed content.
type ParseError struct {
	Agent model.AgentType
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	raw := e.Raw
	if r := []rune(raw); len(r) > maxRawInError {
		raw = string(r[:maxRawInError]) + "..."
	}
	return fmt.Sprintf("unparseable %s output: %v; raw output: %s", e.Agent, e.Err, raw)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
