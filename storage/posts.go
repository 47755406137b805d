package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carousel/model"

	"github.com/google/uuid"
)

// Generation status values of a post.
const (
	StatusIdle    = "idle"
	StatusLoading = "loading"
	StatusError   = "error"
)

// ErrNotFound is returned for unknown records.
var ErrNotFound = errors.New("not found")

// Post is the target resource of a generation run.
type Post struct {
	ID               string
	BrandID          string
	GenerationStatus string
	LastError        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PostStore keeps posts and their generation status. It is the run-lock
// resource: the status flips idle→loading with a single conditional UPDATE,
// so two concurrent acquisitions can never both succeed.
type PostStore struct {
	db *DB
}

func NewPostStore(db *DB) *PostStore {
	return &PostStore{db: db}
}

// Create inserts a new idle post for a brand and returns it.
func (s *PostStore) Create(ctx context.Context, brandID string) (*Post, error) {
	now := time.Now().UTC()
	p := &Post{
		ID:               uuid.New().String(),
		BrandID:          brandID,
		GenerationStatus: StatusIdle,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO posts (id, brand_id, generation_status, last_error, created_at, updated_at) VALUES (?, ?, ?, '', ?, ?)`,
		p.ID, p.BrandID, p.GenerationStatus, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return p, nil
}

// Ensure creates the post with the given ID if it does not exist yet.
func (s *PostStore) Ensure(ctx context.Context, postID, brandID string) error {
	now := time.Now().UTC()
	_, err := s.db.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO posts (id, brand_id, generation_status, last_error, created_at, updated_at) VALUES (?, ?, 'idle', '', ?, ?)`,
		postID, brandID, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure post: %w", err)
	}
	return nil
}

func (s *PostStore) Get(ctx context.Context, postID string) (*Post, error) {
	var p Post
	err := s.db.db.QueryRowContext(ctx,
		`SELECT id, brand_id, generation_status, last_error, created_at, updated_at FROM posts WHERE id = ?`, postID,
	).Scan(&p.ID, &p.BrandID, &p.GenerationStatus, &p.LastError, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AcquireGeneration sets the post to loading. acquired is false when a
// generation is already running for the post.
func (s *PostStore) AcquireGeneration(ctx context.Context, postID string) (bool, error) {
	res, err := s.db.db.ExecContext(ctx,
		`UPDATE posts SET generation_status = ?, updated_at = ? WHERE id = ? AND generation_status != ?`,
		StatusLoading, time.Now().UTC(), postID, StatusLoading,
	)
	if err != nil {
		return false, fmt.Errorf("failed to acquire generation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	// either the post is busy or it does not exist
	if _, err := s.Get(ctx, postID); err != nil {
		return false, err
	}
	return false, nil
}

// ReleaseGeneration resets the post to idle and records the run's error
// message ("" on success).
func (s *PostStore) ReleaseGeneration(ctx context.Context, postID string, runErr string) error {
	_, err := s.db.db.ExecContext(ctx,
		`UPDATE posts SET generation_status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		StatusIdle, runErr, time.Now().UTC(), postID,
	)
	if err != nil {
		return fmt.Errorf("failed to release generation: %w", err)
	}
	return nil
}

// MarkError flags a post whose release could not complete normally.
func (s *PostStore) MarkError(ctx context.Context, postID, msg string) error {
	_, err := s.db.db.ExecContext(ctx,
		`UPDATE posts SET generation_status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		StatusError, msg, time.Now().UTC(), postID,
	)
	return err
}

// SaveResult stores the final result of a run.
func (s *PostStore) SaveResult(ctx context.Context, postID, brandID string, result *model.OrchestrationResult) error {
	data, err := marshalJSON(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	_, err = s.db.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, post_id, brand_id, success, result, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		result.RunID, postID, brandID, result.Success, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// LoadResult returns a stored run result.
func (s *PostStore) LoadResult(ctx context.Context, runID string) (*model.OrchestrationResult, error) {
	var data string
	err := s.db.db.QueryRowContext(ctx, `SELECT result FROM runs WHERE run_id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var result model.OrchestrationResult
	if err := unmarshalJSON(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}
