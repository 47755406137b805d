package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"carousel/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	ok, err := db.columnExists("posts", "last_error")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireGenerationIsExclusive(t *testing.T) {
	ctx := context.Background()
	posts := NewPostStore(openTestDB(t))

	post, err := posts.Create(ctx, "brand-1")
	require.NoError(t, err)

	ok, err := posts.AcquireGeneration(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = posts.AcquireGeneration(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must be rejected while loading")

	require.NoError(t, posts.ReleaseGeneration(ctx, post.ID, ""))

	got, err := posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, got.GenerationStatus)

	ok, err = posts.AcquireGeneration(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireGenerationConcurrent(t *testing.T) {
	ctx := context.Background()
	posts := NewPostStore(openTestDB(t))
	require.NoError(t, posts.Ensure(ctx, "post-1", "brand-1"))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := posts.AcquireGeneration(ctx, "post-1")
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestAcquireGenerationUnknownPost(t *testing.T) {
	posts := NewPostStore(openTestDB(t))

	ok, err := posts.AcquireGeneration(context.Background(), "missing")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReleaseRecordsError(t *testing.T) {
	ctx := context.Background()
	posts := NewPostStore(openTestDB(t))
	require.NoError(t, posts.Ensure(ctx, "post-1", "brand-1"))

	_, err := posts.AcquireGeneration(ctx, "post-1")
	require.NoError(t, err)
	require.NoError(t, posts.ReleaseGeneration(ctx, "post-1", "provider timeout"))

	got, err := posts.Get(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, got.GenerationStatus)
	assert.Equal(t, "provider timeout", got.LastError)
}

func TestMarkErrorDoesNotBlockNextRun(t *testing.T) {
	ctx := context.Background()
	posts := NewPostStore(openTestDB(t))
	require.NoError(t, posts.Ensure(ctx, "post-1", "brand-1"))

	_, err := posts.AcquireGeneration(ctx, "post-1")
	require.NoError(t, err)
	require.NoError(t, posts.MarkError(ctx, "post-1", "release failed"))

	got, err := posts.Get(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, got.GenerationStatus)
	assert.Equal(t, "release failed", got.LastError)

	ok, err := posts.AcquireGeneration(ctx, "post-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaveAndLoadResult(t *testing.T) {
	ctx := context.Background()
	posts := NewPostStore(openTestDB(t))

	result := &model.OrchestrationResult{
		RunID:   "run-1",
		Success: true,
		Caption: "Fresh roast, fresh start.",
		Slides:  []model.CarouselSlide{{Index: 0, Text: "Wake up"}},
	}
	require.NoError(t, posts.SaveResult(ctx, "post-1", "brand-1", result))

	got, err := posts.LoadResult(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, result.Caption, got.Caption)
	require.Len(t, got.Slides, 1)
	assert.Equal(t, "Wake up", got.Slides[0].Text)

	_, err = posts.LoadResult(ctx, "run-2")
	assert.ErrorIs(t, err, ErrNotFound)
}
