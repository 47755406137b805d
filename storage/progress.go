package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"carousel/config"
	"carousel/model"
)

// ProgressStore keeps the latest snapshot of each run plus its full history.
type ProgressStore struct {
	db *DB
}

func NewProgressStore(db *DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// SaveProgress patches the run's current snapshot and appends it to the
// event history.
func (s *ProgressStore) SaveProgress(ctx context.Context, p model.GenerationProgress) error {
	if p.RunID == "" {
		return errors.New("progress snapshot has no run id")
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}

	var subCurrent, subTotal sql.NullInt64
	var subItem sql.NullString
	if p.Sub != nil {
		subCurrent = sql.NullInt64{Int64: int64(p.Sub.Current), Valid: true}
		subTotal = sql.NullInt64{Int64: int64(p.Sub.Total), Valid: true}
		subItem = sql.NullString{String: p.Sub.ItemName, Valid: p.Sub.ItemName != ""}
	}

	snapshot, err := marshalJSON(p)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO progress (run_id, post_id, step, step_index, total_steps, message, agent_type, sub_current, sub_total, sub_item, cost_usd, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			step = excluded.step,
			step_index = excluded.step_index,
			total_steps = excluded.total_steps,
			message = excluded.message,
			agent_type = excluded.agent_type,
			sub_current = excluded.sub_current,
			sub_total = excluded.sub_total,
			sub_item = excluded.sub_item,
			cost_usd = excluded.cost_usd,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		p.RunID, p.PostID, string(p.Step), p.StepIndex, p.TotalSteps, p.Message, string(p.AgentType),
		subCurrent, subTotal, subItem, p.CostUSD, p.Error, p.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO progress_events (run_id, snapshot, created_at) VALUES (?, ?, ?)`,
		p.RunID, snapshot, p.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append progress event: %w", err)
	}

	return tx.Commit()
}

// Latest returns the current snapshot of a run.
func (s *ProgressStore) Latest(ctx context.Context, runID string) (*model.GenerationProgress, error) {
	var (
		p          model.GenerationProgress
		step       string
		agentType  sql.NullString
		postID     sql.NullString
		subCurrent sql.NullInt64
		subTotal   sql.NullInt64
		subItem    sql.NullString
		errMsg     sql.NullString
	)
	err := s.db.db.QueryRowContext(ctx, `
		SELECT run_id, post_id, step, step_index, total_steps, message, agent_type, sub_current, sub_total, sub_item, cost_usd, error, updated_at
		FROM progress WHERE run_id = ?`, runID,
	).Scan(&p.RunID, &postID, &step, &p.StepIndex, &p.TotalSteps, &p.Message, &agentType,
		&subCurrent, &subTotal, &subItem, &p.CostUSD, &errMsg, &p.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("progress for run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	p.Step = model.GenerationStep(step)
	p.PostID = postID.String
	p.AgentType = model.AgentType(agentType.String)
	p.Error = errMsg.String
	if subCurrent.Valid {
		p.Sub = &model.SubProgress{
			Current:  int(subCurrent.Int64),
			Total:    int(subTotal.Int64),
			ItemName: subItem.String,
		}
	}
	return &p, nil
}

// History returns every snapshot saved for a run, oldest first.
func (s *ProgressStore) History(ctx context.Context, runID string) ([]model.GenerationProgress, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT snapshot FROM progress_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress history: %w", err)
	}
	defer rows.Close()

	var out []model.GenerationProgress
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p model.GenerationProgress
		if err := unmarshalJSON(data, &p); err != nil {
			// Skip corrupted rows
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// subscriberBuffer is the per-subscriber queue length. Snapshots published
// to a full queue are dropped for that subscriber.
const subscriberBuffer = 16

// Broker fans progress snapshots out to live subscribers of a run.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan model.GenerationProgress
	nextID int
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]chan model.GenerationProgress)}
}

// Subscribe registers for snapshots of runID. The returned cancel func
// unregisters and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(runID string) (<-chan model.GenerationProgress, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan model.GenerationProgress, subscriberBuffer)
	if b.subs[runID] == nil {
		b.subs[runID] = make(map[int]chan model.GenerationProgress)
	}
	b.subs[runID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subs[runID]; ok {
				if c, ok := subs[id]; ok {
					delete(subs, id)
					close(c)
				}
				if len(subs) == 0 {
					delete(b.subs, runID)
				}
			}
		})
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of its run without
// blocking. Terminal snapshots close the run's subscriptions.
func (b *Broker) Publish(_ context.Context, p model.GenerationProgress) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs[p.RunID] {
		select {
		case ch <- p:
		default:
			if config.Debug {
				config.DebugLog.Printf("[Storage] subscriber %d of run %s is full, dropping %s", id, p.RunID, p.Step)
			}
		}
	}

	if p.Step.IsTerminal() {
		for id, ch := range b.subs[p.RunID] {
			delete(b.subs[p.RunID], id)
			close(ch)
		}
		delete(b.subs, p.RunID)
	}
	return nil
}

// ProgressSink persists snapshots and forwards them to live subscribers.
type ProgressSink struct {
	Store  *ProgressStore
	Broker *Broker
}

func (s ProgressSink) SaveProgress(ctx context.Context, p model.GenerationProgress) error {
	if s.Store == nil {
		return nil
	}
	return s.Store.SaveProgress(ctx, p)
}

func (s ProgressSink) Publish(ctx context.Context, p model.GenerationProgress) error {
	if s.Broker == nil {
		return nil
	}
	return s.Broker.Publish(ctx, p)
}
