package core

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics. The worker that ran the task
// keeps running; the task itself is dead.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called after a task panicked.
	//
	// Parameters:
	// - ctx: The pool context
	// - schedulerName: The name of the scheduler that owned the task
	// - workerID: The index of the worker within the pool
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The task's stack at the time of the panic
	HandlePanic(ctx context.Context, schedulerName string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, schedulerName string, workerID int, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Worker %d @ %s] Panic: %v\nStack trace:\n%s",
		workerID, schedulerName, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called from worker threads and must be non-blocking and fast.
type Metrics interface {
	// RecordTaskDuration records how long a task spent running, summed over
	// all of its time slices, once it is dead.
	RecordTaskDuration(schedulerName string, duration time.Duration)

	// RecordTaskPanic records that a task panicked.
	RecordTaskPanic(schedulerName string, panicInfo any)

	// RecordQueueDepth records the run queue depth after an admission.
	RecordQueueDepth(schedulerName string, depth int)

	// RecordTaskRejected records that AddTask refused a task.
	//
	// Parameters:
	// - poolName: The name of the pool
	// - reason: Why the task was rejected ("full", "closed", "invalid")
	RecordTaskRejected(poolName string, reason string)

	// RecordTaskSwitch records that a task gave up its worker.
	//
	// Parameters:
	// - schedulerName: The name of the scheduler
	// - reason: One of SwitchYield, SwitchBlock, SwitchIO, SwitchJoin
	RecordTaskSwitch(schedulerName string, reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(schedulerName string, duration time.Duration) {
}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(schedulerName string, panicInfo any) {
}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(schedulerName string, depth int) {
}

// RecordTaskRejected is a no-op.
func (m *NilMetrics) RecordTaskRejected(poolName string, reason string) {
}

// RecordTaskSwitch is a no-op.
func (m *NilMetrics) RecordTaskSwitch(schedulerName string, reason string) {
}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when AddTask refuses a task. This happens when:
// - The pool is shutting down
// - Every scheduler was full for all configured sweeps
// - The task is nil or was already submitted
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	HandleRejectedTask(poolName string, reason string)
}

// DefaultRejectedTaskHandler provides a basic handler that logs rejected tasks.
type DefaultRejectedTaskHandler struct{}

// HandleRejectedTask logs the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(poolName string, reason string) {
	fmt.Printf("[Pool %s] Task rejected: %s\n", poolName, reason)
}

// =============================================================================
// PoolConfig: Configuration for Pool
// =============================================================================

const (
	// MaxWorkers is the largest worker count a pool accepts.
	MaxWorkers = 256

	// MaxQueueSize is the largest per-scheduler run queue.
	MaxQueueSize = 1 << 16

	DefaultQueueSize    = 64
	DefaultMaxFDs       = 1024
	DefaultSubmitSweeps = 1
)

// PoolConfig holds configuration options for Pool.
// Zero-valued fields fall back to defaults; all handlers are optional.
type PoolConfig struct {
	// Name prefixes scheduler names in logs and metrics. Defaults to "fiber-pool".
	Name string

	// Workers is the number of worker threads, rounded up to a power of two.
	// Must be between 1 and MaxWorkers.
	Workers int

	// QueueSize is the per-scheduler limit on resident tasks, rounded up to a
	// power of two. Defaults to DefaultQueueSize.
	QueueSize int

	// MaxFDs is the capacity of the blocked-IO registry. Defaults to DefaultMaxFDs.
	MaxFDs int

	// SubmitSweeps is how many full passes over the schedulers AddTask makes
	// before returning ErrPoolFull. Defaults to DefaultSubmitSweeps.
	SubmitSweeps int

	// HistorySize is how many dead tasks RecentTasks remembers. Defaults to 100.
	HistorySize int

	// PinWorkers pins worker i to CPU i modulo the CPU count, where supported.
	PinWorkers bool

	// Policy picks the first scheduler AddTask tries. Defaults to round-robin.
	Policy DispatchPolicy

	// Logger receives lifecycle logs. Defaults to NoOpLogger.
	Logger Logger

	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record scheduler metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a task is rejected. Defaults to DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler
}

// DefaultPoolConfig returns a config with one worker per CPU and default handlers.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Name:                "fiber-pool",
		Workers:             min(runtime.NumCPU(), MaxWorkers),
		QueueSize:           DefaultQueueSize,
		MaxFDs:              DefaultMaxFDs,
		SubmitSweeps:        DefaultSubmitSweeps,
		Logger:              NewNoOpLogger(),
		PanicHandler:        &DefaultPanicHandler{},
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{},
	}
}
