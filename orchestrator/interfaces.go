package orchestrator

import (
	"context"

	"carousel/cost"
	"carousel/model"
)

// BrandStore loads brand records.
type BrandStore interface {
	Get(ctx context.Context, brandID string) (*model.BrandRecord, error)
}

// ProviderChecker reports whether a provider can be built from the current
// settings without building it. provider.Registry implements it.
type ProviderChecker interface {
	Check(providerID string) error
}

// ProgressSink stores the latest snapshot of a run and publishes it to live
// observers.
type ProgressSink interface {
	SaveProgress(ctx context.Context, p model.GenerationProgress) error
	Publish(ctx context.Context, p model.GenerationProgress) error
}

// CostCalculator prices usage by provider and model.
type CostCalculator interface {
	CalculateCost(u cost.Usage) cost.Result
	CalculateAggregateCost(usages []cost.Usage) cost.Result
}

// UsageRecorder persists the priced usage of each execution.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, runID, brandID string, exec model.AgentExecution, costUSD float64) error
}

// RunLockResource is the external generation flag of the target post.
// AcquireGeneration returns false when a generation is already running.
// MarkError flags the post when the release itself fails.
type RunLockResource interface {
	AcquireGeneration(ctx context.Context, postID string) (bool, error)
	ReleaseGeneration(ctx context.Context, postID string, runErr string) error
	MarkError(ctx context.Context, postID, msg string) error
}

// ResultStore keeps the final result of each run.
type ResultStore interface {
	SaveResult(ctx context.Context, postID, brandID string, result *model.OrchestrationResult) error
}
