package model

import "time"

// ExecutionStatus is the outcome of one provider call.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
	ExecutionRetried ExecutionStatus = "retried"
)

// AgentExecution is the audit record of one provider call. Records are
// appended to a run-scoped list and never modified afterwards.
type AgentExecution struct {
	ID               string          `json:"id"`
	AgentType        AgentType       `json:"agentType"`
	Provider         string          `json:"provider"`
	Model            string          `json:"model"`
	StartedAt        time.Time       `json:"startedAt"`
	CompletedAt      time.Time       `json:"completedAt"`
	SystemPrompt     string          `json:"systemPrompt,omitempty"`
	UserPrompt       string          `json:"userPrompt,omitempty"`
	Result           string          `json:"result,omitempty"`
	Error            string          `json:"error,omitempty"`
	PromptTokens     int             `json:"promptTokens"`
	CompletionTokens int             `json:"completionTokens"`
	TotalTokens      int             `json:"totalTokens"`
	ImagesGenerated  int             `json:"imagesGenerated"`
	SlideIndex       *int            `json:"slideIndex,omitempty"`
	Status           ExecutionStatus `json:"status"`
}

// Duration returns the wall-clock duration of the call.
func (e AgentExecution) Duration() time.Duration {
	return e.CompletedAt.Sub(e.StartedAt)
}

// TokenTotals is the summed token usage of a run.
type TokenTotals struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// SumTokens adds up token usage over executions.
func SumTokens(execs []AgentExecution) TokenTotals {
	var t TokenTotals
	for _, e := range execs {
		t.Prompt += e.PromptTokens
		t.Completion += e.CompletionTokens
	}
	t.Total = t.Prompt + t.Completion
	return t
}
