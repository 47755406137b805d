package orchestrator

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLocksRejectSecondHolder(t *testing.T) {
	locks := NewRunLocks()

	release, ok := locks.TryAcquire("post-1")
	require.True(t, ok)
	assert.True(t, locks.Held("post-1"))

	_, ok = locks.TryAcquire("post-1")
	assert.False(t, ok)

	other, ok := locks.TryAcquire("post-2")
	require.True(t, ok, "locks are per key")
	other()

	release()
	release()
	assert.False(t, locks.Held("post-1"))

	_, ok = locks.TryAcquire("post-1")
	assert.True(t, ok)
}

func TestRunLocksConcurrent(t *testing.T) {
	locks := NewRunLocks()
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := locks.TryAcquire("post-1"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
