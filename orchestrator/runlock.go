package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"carousel/config"
)

// RunLocks is the in-process per-post lock. It rejects a second holder
// instead of queueing it.
type RunLocks struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewRunLocks() *RunLocks {
	return &RunLocks{active: make(map[string]struct{})}
}

// TryAcquire takes the lock for key. ok is false when it is already held.
// The returned release func is idempotent.
func (l *RunLocks) TryAcquire(key string) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.active[key]; held {
		return nil, false
	}
	l.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, key)
			l.mu.Unlock()
		})
	}, true
}

// Held reports whether key is currently locked.
func (l *RunLocks) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.active[key]
	return held
}

// lock takes both the in-process lock and the external resource flag. The
// returned unlock always resets the external flag, even when ctx is done.
func (o *Orchestrator) lock(ctx context.Context, postID string) (unlock func(runErr string), err error) {
	release, ok := o.locks.TryAcquire(postID)
	if !ok {
		return nil, fmt.Errorf("post %s: %w", postID, ErrGenerationInProgress)
	}

	if o.lockResource == nil {
		return func(string) { release() }, nil
	}

	acquired, err := o.lockResource.AcquireGeneration(ctx, postID)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to acquire generation lock: %w", err)
	}
	if !acquired {
		release()
		return nil, fmt.Errorf("post %s: %w", postID, ErrGenerationInProgress)
	}

	return func(runErr string) {
		defer release()
		ctx := context.WithoutCancel(ctx)
		err := o.lockResource.ReleaseGeneration(ctx, postID, runErr)
		if err == nil {
			return
		}
		if config.Debug {
			config.DebugLog.Printf("[Orchestrator] failed to release generation lock for post %s: %v", postID, err)
		}
		if err := o.lockResource.MarkError(ctx, postID, fmt.Sprintf("release failed: %v", err)); err != nil && config.Debug {
			config.DebugLog.Printf("[Orchestrator] failed to flag post %s: %v", postID, err)
		}
	}, nil
}
