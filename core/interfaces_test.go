package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Test Metrics
// =============================================================================

// TestMetrics is a mock metrics collector for testing
type TestMetrics struct {
	mu        sync.Mutex
	durations map[string]int
	panics    map[string]int
	depths    map[string]int
	rejected  map[string]int
	switches  map[string]int
}

func NewTestMetrics() *TestMetrics {
	return &TestMetrics{
		durations: make(map[string]int),
		panics:    make(map[string]int),
		depths:    make(map[string]int),
		rejected:  make(map[string]int),
		switches:  make(map[string]int),
	}
}

func (m *TestMetrics) RecordTaskDuration(schedulerName string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[schedulerName]++
}

func (m *TestMetrics) RecordTaskPanic(schedulerName string, panicInfo any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics[schedulerName]++
}

func (m *TestMetrics) RecordQueueDepth(schedulerName string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depths[schedulerName] = depth
}

func (m *TestMetrics) RecordTaskRejected(poolName string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *TestMetrics) RecordTaskSwitch(schedulerName string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.switches[reason]++
}

func (m *TestMetrics) count(table map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return table[key]
}

func (m *TestMetrics) sawDepth(schedulerName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.depths[schedulerName]
	return ok
}

func TestDefaultPanicHandler(t *testing.T) {
	// Given: A DefaultPanicHandler
	handler := &DefaultPanicHandler{}

	// When: HandlePanic is called
	handler.HandlePanic(context.Background(), "test-worker-0", 0, "test panic", []byte("stack trace"))

	// Then: No panic should occur
}

func TestDefaultRejectedTaskHandler(t *testing.T) {
	handler := &DefaultRejectedTaskHandler{}
	handler.HandleRejectedTask("test-pool", "full")
}

func TestNilMetrics(t *testing.T) {
	var m Metrics = &NilMetrics{}
	m.RecordTaskDuration("s", time.Second)
	m.RecordTaskPanic("s", nil)
	m.RecordQueueDepth("s", 1)
	m.RecordTaskRejected("p", "full")
	m.RecordTaskSwitch("s", SwitchYield)
}

// TestDefaultPoolConfig verifies defaults are filled in
func TestDefaultPoolConfig(t *testing.T) {
	config := DefaultPoolConfig()

	if config.Workers < 1 || config.Workers > MaxWorkers {
		t.Errorf("Workers = %d, want 1..%d", config.Workers, MaxWorkers)
	}
	if config.QueueSize != DefaultQueueSize {
		t.Errorf("QueueSize = %d, want %d", config.QueueSize, DefaultQueueSize)
	}
	if config.MaxFDs != DefaultMaxFDs {
		t.Errorf("MaxFDs = %d, want %d", config.MaxFDs, DefaultMaxFDs)
	}
	if config.Logger == nil || config.PanicHandler == nil || config.Metrics == nil || config.RejectedTaskHandler == nil {
		t.Error("DefaultPoolConfig() left a handler nil")
	}
}

// TestPool_NilHandlersUseDefaults verifies a sparse config still works
// Given: A config with only Workers set
// When: A task is run
// Then: The pool starts with default handlers and runs the task
func TestPool_NilHandlersUseDefaults(t *testing.T) {
	pool := newTestPoolWithConfig(t, &PoolConfig{Workers: 1})

	if pool.Name() != "fiber-pool" {
		t.Errorf("Name() = %q, want fiber-pool", pool.Name())
	}
	task := mustGo(t, pool, func(*Task, any) {}, nil)
	waitTasks(t, task)
}

// TestPool_MetricsRecorded verifies the pool reports through Metrics
// Given: A pool with a TestMetrics collector
// When: Tasks yield, block, panic and get rejected
// Then: Each kind of event is recorded
func TestPool_MetricsRecorded(t *testing.T) {
	// Arrange
	metrics := NewTestMetrics()
	config := DefaultPoolConfig()
	config.Name = "metrics"
	config.Workers = 1
	config.Metrics = metrics
	config.PanicHandler = &recordingPanicHandler{}
	pool := newTestPoolWithConfig(t, config)
	name := pool.Schedulers()[0].Name()

	// Act
	sem, _ := NewSemaphore(0)
	yielder := mustGo(t, pool, func(self *Task, _ any) { _ = self.Yield() }, nil)
	blocker := mustGo(t, pool, func(self *Task, _ any) { _ = sem.Wait(self) }, nil)
	panicker := mustGo(t, pool, func(*Task, any) { panic(errors.New("bad")) }, nil)
	_ = pool.AddTask(nil)
	assertEventually(t, time.Second, func() bool { return blocker.Status() == TaskSuspended })
	_ = sem.Post()
	waitTasks(t, yielder, blocker, panicker)

	// Assert
	assertEventually(t, time.Second, func() bool {
		return metrics.count(metrics.durations, name) == 3 && metrics.count(metrics.panics, name) == 1
	})
	if got := metrics.count(metrics.switches, SwitchYield); got != 1 {
		t.Errorf("yield switches = %d, want 1", got)
	}
	if got := metrics.count(metrics.switches, SwitchBlock); got != 1 {
		t.Errorf("block switches = %d, want 1", got)
	}
	if got := metrics.count(metrics.rejected, "invalid"); got != 1 {
		t.Errorf("rejections = %d, want 1", got)
	}
	if !metrics.sawDepth(name) {
		t.Error("queue depth never recorded")
	}
}

// TestDefaultLogger_Level verifies messages below the level are dropped
func TestDefaultLogger_Level(t *testing.T) {
	logger := NewDefaultLoggerWithLevel(LevelWarn)
	var sb safeBuffer
	logger.out.SetOutput(&sb)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown", F("k", 1))
	logger.Error("also shown")

	out := sb.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains filtered message: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown {k: 1}") || !strings.Contains(out, "[ERROR] also shown") {
		t.Errorf("output = %q, want WARN and ERROR lines", out)
	}
}

type safeBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
