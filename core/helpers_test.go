package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

const testTimeout = 5 * time.Second

// newTestPool creates a pool that is force-stopped when the test ends.
func newTestPool(t *testing.T, workers int) *Pool {
	t.Helper()
	config := DefaultPoolConfig()
	config.Workers = workers
	return newTestPoolWithConfig(t, config)
}

func newTestPoolWithConfig(t *testing.T, config *PoolConfig) *Pool {
	t.Helper()
	if config.RejectedTaskHandler == nil {
		config.RejectedTaskHandler = &recordingRejectedHandler{}
	}
	pool, err := NewPoolWithConfig(config)
	if err != nil {
		t.Fatalf("NewPoolWithConfig() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = pool.ShutdownContext(ctx)
	})
	return pool
}

// mustGo adds fn to pool or fails the test.
func mustGo(t *testing.T, pool *Pool, fn TaskFunc, arg any) *Task {
	t.Helper()
	task, err := pool.Go(fn, arg)
	if err != nil {
		t.Fatalf("Go() error = %v", err)
	}
	return task
}

// waitTasks waits until every task is dead.
func waitTasks(t *testing.T, tasks ...*Task) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	for _, task := range tasks {
		select {
		case <-task.Done():
		case <-ctx.Done():
			t.Fatalf("%v did not finish within %v", task, testTimeout)
		}
	}
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

type recordingRejectedHandler struct {
	mu      sync.Mutex
	reasons []string
}

func (h *recordingRejectedHandler) HandleRejectedTask(poolName string, reason string) {
	h.mu.Lock()
	h.reasons = append(h.reasons, reason)
	h.mu.Unlock()
}

func (h *recordingRejectedHandler) Reasons() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.reasons...)
}

type recordingPanicHandler struct {
	mu     sync.Mutex
	values []any
	stacks [][]byte
}

func (h *recordingPanicHandler) HandlePanic(ctx context.Context, schedulerName string, workerID int, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	h.values = append(h.values, panicInfo)
	h.stacks = append(h.stacks, stackTrace)
	h.mu.Unlock()
}

func (h *recordingPanicHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.values)
}

// orderLog records events from concurrently running tasks.
type orderLog struct {
	mu     sync.Mutex
	events []int
}

func (l *orderLog) add(v int) {
	l.mu.Lock()
	l.events = append(l.events, v)
	l.mu.Unlock()
}

func (l *orderLog) snapshot() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.events...)
}
