package model

import "time"

// GenerationStep is a state of the orchestration state machine.
type GenerationStep string

const (
	StepLoadingBrand      GenerationStep = "loading_brand"
	StepCreativeDirection GenerationStep = "creative_direction"
	StepAnalysis          GenerationStep = "analysis"
	StepTextCreation      GenerationStep = "text_creation"
	StepCompliance        GenerationStep = "compliance"
	StepImageGeneration   GenerationStep = "image_generation"
	StepTextOverlay       GenerationStep = "text_overlay"
	StepCompleted         GenerationStep = "completed"
	StepFailed            GenerationStep = "failed"
)

// TotalSteps is the number of non-failure states.
const TotalSteps = 8

// StepIndex returns the 1-based position of a step. Failed returns 0; the
// orchestrator reports the index of the step that failed instead.
func (s GenerationStep) StepIndex() int {
	switch s {
	case StepLoadingBrand:
		return 1
	case StepCreativeDirection:
		return 2
	case StepAnalysis:
		return 3
	case StepTextCreation:
		return 4
	case StepCompliance:
		return 5
	case StepImageGeneration:
		return 6
	case StepTextOverlay:
		return 7
	case StepCompleted:
		return 8
	default:
		return 0
	}
}

// IsTerminal reports whether the step ends a run.
func (s GenerationStep) IsTerminal() bool {
	return s == StepCompleted || s == StepFailed
}

// SubProgress counts items inside a fan-out step.
type SubProgress struct {
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	ItemName string `json:"itemName,omitempty"`
}

// GenerationProgress is a point-in-time snapshot of a run.
type GenerationProgress struct {
	RunID      string         `json:"runId"`
	PostID     string         `json:"postId,omitempty"`
	Step       GenerationStep `json:"step"`
	StepIndex  int            `json:"stepIndex"`
	TotalSteps int            `json:"totalSteps"`
	Message    string         `json:"message"`
	AgentType  AgentType      `json:"agentType,omitempty"`
	Sub        *SubProgress   `json:"subProgress,omitempty"`
	CostUSD    float64        `json:"costUsd,omitempty"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
