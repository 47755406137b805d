package orchestrator

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"carousel/config"
	"carousel/model"
)

// progressBuffer is the capacity of the emitter queue.
const progressBuffer = 32

// sinkTimeout bounds each SaveProgress/Publish call of the consumer.
const sinkTimeout = 10 * time.Second

// ProgressEmitter hands snapshots to a sink from a single consumer
// goroutine. Emit never blocks: when the queue is full the snapshot is
// dropped. Sink failures are logged and ignored.
type ProgressEmitter struct {
	sink ProgressSink
	ch   chan model.GenerationProgress
	done chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewProgressEmitter starts the consumer. A nil sink discards snapshots.
func NewProgressEmitter(sink ProgressSink, capacity int) *ProgressEmitter {
	if capacity <= 0 {
		capacity = progressBuffer
	}
	e := &ProgressEmitter{
		sink: sink,
		ch:   make(chan model.GenerationProgress, capacity),
		done: make(chan struct{}),
	}
	go e.consume()
	return e
}

// Emit queues a snapshot. It reports whether the snapshot was accepted.
func (e *ProgressEmitter) Emit(p model.GenerationProgress) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}

	select {
	case e.ch <- p:
		return true
	default:
		e.dropped.Add(1)
		if config.Debug {
			config.DebugLog.Printf("[Orchestrator] progress queue full, dropping %s snapshot of run %s", p.Step, p.RunID)
		}
		return false
	}
}

// Dropped returns how many snapshots were discarded.
func (e *ProgressEmitter) Dropped() int64 {
	return e.dropped.Load()
}

// Close stops accepting snapshots and waits for queued ones to be delivered.
func (e *ProgressEmitter) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
	e.mu.Unlock()
	<-e.done
}

func (e *ProgressEmitter) consume() {
	defer close(e.done)
	for p := range e.ch {
		e.deliver(p)
	}
}

func (e *ProgressEmitter) deliver(p model.GenerationProgress) {
	defer func() {
		if r := recover(); r != nil && config.Debug {
			config.DebugLog.Printf("[Orchestrator] progress sink panic: %v, stack: %s", r, debug.Stack())
		}
	}()
	if e.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	if err := e.sink.SaveProgress(ctx, p); err != nil && config.Debug {
		config.DebugLog.Printf("[Orchestrator] failed to save progress for run %s: %v", p.RunID, err)
	}
	if err := e.sink.Publish(ctx, p); err != nil && config.Debug {
		config.DebugLog.Printf("[Orchestrator] failed to publish progress for run %s: %v", p.RunID, err)
	}
}
