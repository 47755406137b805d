package storage

import (
	"context"
	"fmt"
	"time"

	"carousel/model"
)

// UsageTotals is the aggregated usage of a brand.
type UsageTotals struct {
	Executions       int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ImagesGenerated  int
	CostUSD          float64
}

// UsageStore is the per-execution usage ledger.
type UsageStore struct {
	db *DB
}

func NewUsageStore(db *DB) *UsageStore {
	return &UsageStore{db: db}
}

// RecordUsage writes one execution to the ledger. Re-recording the same
// execution ID replaces the earlier row.
func (s *UsageStore) RecordUsage(ctx context.Context, runID, brandID string, exec model.AgentExecution, costUSD float64) error {
	createdAt := exec.CompletedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO usage (execution_id, run_id, brand_id, agent_type, provider, model, prompt_tokens, completion_tokens, total_tokens, images_generated, cost_usd, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID, runID, brandID, string(exec.AgentType), exec.Provider, exec.Model,
		exec.PromptTokens, exec.CompletionTokens, exec.TotalTokens, exec.ImagesGenerated,
		costUSD, string(exec.Status), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// Totals sums the ledger for a brand.
func (s *UsageStore) Totals(ctx context.Context, brandID string) (UsageTotals, error) {
	var t UsageTotals
	err := s.db.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0),
			COALESCE(SUM(total_tokens), 0),
			COALESCE(SUM(images_generated), 0),
			COALESCE(SUM(cost_usd), 0)
		FROM usage WHERE brand_id = ?`, brandID,
	).Scan(&t.Executions, &t.PromptTokens, &t.CompletionTokens, &t.TotalTokens, &t.ImagesGenerated, &t.CostUSD)
	if err != nil {
		return UsageTotals{}, fmt.Errorf("failed to sum usage: %w", err)
	}
	return t, nil
}

// UsageRow is one ledger entry.
type UsageRow struct {
	ExecutionID string
	AgentType   model.AgentType
	Provider    string
	Model       string
	TotalTokens int
	Images      int
	CostUSD     float64
	Status      model.ExecutionStatus
}

// ByRun lists the ledger entries of one run in insertion order.
func (s *UsageStore) ByRun(ctx context.Context, runID string) ([]UsageRow, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT execution_id, agent_type, provider, model, total_tokens, images_generated, cost_usd, status
		FROM usage WHERE run_id = ? ORDER BY created_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var out []UsageRow
	for rows.Next() {
		var (
			r         UsageRow
			agentType string
			status    string
		)
		if err := rows.Scan(&r.ExecutionID, &agentType, &r.Provider, &r.Model, &r.TotalTokens, &r.Images, &r.CostUSD, &status); err != nil {
			return nil, err
		}
		r.AgentType = model.AgentType(agentType)
		r.Status = model.ExecutionStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
