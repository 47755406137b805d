package model

import "time"

// CostLine is the cost of one execution.
type CostLine struct {
	ExecutionID string    `json:"executionId"`
	AgentType   AgentType `json:"agentType"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	CostUSD     float64   `json:"costUsd"`
}

// CostSummary is the priced usage of a run.
type CostSummary struct {
	TotalUSD     float64    `json:"totalUsd"`
	Lines        []CostLine `json:"lines"`
	MainProvider string     `json:"mainProvider"`
	MainModel    string     `json:"mainModel"`
}

// OrchestrationResult is the terminal aggregate of a run. It is built once,
// on either the success or the failure path.
type OrchestrationResult struct {
	RunID       string            `json:"runId"`
	Success     bool              `json:"success"`
	Slides      []CarouselSlide   `json:"slides"`
	Caption     string            `json:"caption"`
	Briefing    *CreativeBriefing `json:"briefing,omitempty"`
	Executions  []AgentExecution  `json:"executions"`
	TotalTokens TokenTotals       `json:"totalTokens"`
	Cost        *CostSummary      `json:"cost,omitempty"`
	Duration    time.Duration     `json:"duration"`
	FailedStep  GenerationStep    `json:"failedStep,omitempty"`
	Error       string            `json:"error,omitempty"`
}
