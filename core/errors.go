package core

import "errors"

// Capacity errors
var (
	// ErrInvalidWorkerCount is returned when a pool is created with fewer than one
	// or more than MaxWorkers workers.
	ErrInvalidWorkerCount = errors.New("core: invalid worker count")

	// ErrInvalidQueueSize is returned when the per-scheduler queue size is out of range.
	ErrInvalidQueueSize = errors.New("core: invalid queue size")

	// ErrPoolFull is returned when no scheduler had a free slot after the configured sweeps.
	ErrPoolFull = errors.New("core: all run queues are full")

	// ErrFDOutOfRange is returned for descriptors outside the registry capacity.
	ErrFDOutOfRange = errors.New("core: fd out of range")

	// ErrInvalidValue is returned when a semaphore is created with a negative or too large value.
	ErrInvalidValue = errors.New("core: invalid semaphore value")

	// ErrOverflow is returned when a semaphore post would exceed SemValueMax.
	ErrOverflow = errors.New("core: semaphore overflow")
)

// Misuse errors
var (
	ErrNilTask        = errors.New("core: nil task")
	ErrTaskSubmitted  = errors.New("core: task already submitted")
	ErrTaskDead       = errors.New("core: task is dead")
	ErrTaskNotRunning = errors.New("core: task is not running")
	ErrForeignTask    = errors.New("core: task belongs to another pool")
	ErrBusy           = errors.New("core: primitive is busy")
	ErrDeadlock       = errors.New("core: operation would deadlock")
	ErrNotOwner       = errors.New("core: mutex not owned by task")
	ErrDestroyed      = errors.New("core: primitive destroyed")
	ErrFDBusy         = errors.New("core: another task is suspended on fd")
)

// Lifecycle errors
var (
	// ErrPoolClosed is returned by AddTask once shutdown has started.
	ErrPoolClosed = errors.New("core: pool is shut down")

	// ErrTaskAbandoned is the result of a task that was unwound by a forced shutdown.
	ErrTaskAbandoned = errors.New("core: task abandoned")

	// ErrTaskPanicked wraps the panic value of a task that panicked.
	ErrTaskPanicked = errors.New("core: task panicked")
)
