package fiberrunner

import "github.com/Swind/go-fiber-runner/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the fiberrunner package for most use cases.

// Task is a cooperatively scheduled unit of work
type Task = core.Task

// TaskFunc is the body of a task
type TaskFunc = core.TaskFunc

// TaskStatus is the lifecycle state of a task
type TaskStatus = core.TaskStatus

// Pool multiplexes tasks over worker threads
type Pool = core.Pool

// PoolConfig configures a Pool
type PoolConfig = core.PoolConfig

// Scheduler is one worker and its run queue
type Scheduler = core.Scheduler

// Mutex, Cond and Semaphore are the task synchronization primitives
type (
	Mutex     = core.Mutex
	Cond      = core.Cond
	Semaphore = core.Semaphore
)

// Stats snapshots
type (
	PoolStats      = core.PoolStats
	SchedulerStats = core.SchedulerStats
	TaskRecord     = core.TaskRecord
)

// Status constants
const (
	TaskReady     = core.TaskReady
	TaskRunnable  = core.TaskRunnable
	TaskRunning   = core.TaskRunning
	TaskSuspended = core.TaskSuspended
	TaskDead      = core.TaskDead
)

// Constructors
var (
	NewTask             = core.NewTask
	NewPool             = core.NewPool
	NewPoolWithConfig   = core.NewPoolWithConfig
	DefaultPoolConfig   = core.DefaultPoolConfig
	NewMutex            = core.NewMutex
	WithReentrant       = core.WithReentrant
	NewCond             = core.NewCond
	NewSemaphore        = core.NewSemaphore
	NewRoundRobinPolicy = core.NewRoundRobinPolicy
)

// Errors
var (
	ErrInvalidWorkerCount = core.ErrInvalidWorkerCount
	ErrPoolFull           = core.ErrPoolFull
	ErrPoolClosed         = core.ErrPoolClosed
	ErrTaskAbandoned      = core.ErrTaskAbandoned
	ErrTaskPanicked       = core.ErrTaskPanicked
	ErrBusy               = core.ErrBusy
	ErrDeadlock           = core.ErrDeadlock
	ErrNotOwner           = core.ErrNotOwner
	ErrFDOutOfRange       = core.ErrFDOutOfRange
)
