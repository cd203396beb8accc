package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// TaskFunc is the body of a task. It receives its own task handle, which is
// the token for Yield, Join and every blocking primitive.
type TaskFunc func(t *Task, arg any)

// TaskStatus is the lifecycle state of a Task.
type TaskStatus int32

const (
	// TaskReady: created, not yet dispatched for the first time
	TaskReady TaskStatus = iota

	// TaskRunnable: sitting in a run queue
	TaskRunnable

	// TaskRunning: executing on its worker
	TaskRunning

	// TaskSuspended: waiting on a primitive, an fd or a join
	TaskSuspended

	// TaskDead: finished; the handle stays valid but can no longer run
	TaskDead
)

func (s TaskStatus) String() string {
	switch s {
	case TaskReady:
		return "ready"
	case TaskRunnable:
		return "runnable"
	case TaskRunning:
		return "running"
	case TaskSuspended:
		return "suspended"
	case TaskDead:
		return "dead"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Switch reasons reported to Metrics.RecordTaskSwitch
const (
	SwitchYield = "yield"
	SwitchBlock = "block"
	SwitchIO    = "io"
	SwitchJoin  = "join"
)

var taskIDs atomic.Uint64

// errExited unwinds a task that called Exit.
var errExited = errors.New("task exited")

// Task is a cooperatively scheduled unit of work with its own stack.
//
// A task is owned by the scheduler it was admitted to until it is dead, and
// it always runs on that scheduler's worker.
type Task struct {
	id  uint64
	fn  TaskFunc
	arg any

	status    atomic.Int32
	submitted atomic.Bool

	// Written by the pool before the first push, read-only afterwards
	sched *Scheduler

	// Owned by the home worker
	exec     *execution
	commit   func() bool
	reason   string
	runTime  time.Duration
	switches int

	err        error
	result     any
	panicValue any
	stack      []byte

	done   chan struct{}
	joined event
}

// NewTask creates a task in the Ready state. The task does not run until it
// is added to a pool.
func NewTask(fn TaskFunc, arg any) *Task {
	return &Task{
		id:   taskIDs.Add(1),
		fn:   fn,
		arg:  arg,
		done: make(chan struct{}),
	}
}

// ID returns a process-unique identifier, for logs and labels only.
func (t *Task) ID() uint64 {
	return t.id
}

// Name returns the name of the task function.
func (t *Task) Name() string {
	return taskName(t.fn)
}

// Arg returns the argument the task was created with.
func (t *Task) Arg() any {
	return t.arg
}

// Status returns the current lifecycle state.
func (t *Task) Status() TaskStatus {
	return TaskStatus(t.status.Load())
}

// Scheduler returns the scheduler that owns the task, or nil before admission.
func (t *Task) Scheduler() *Scheduler {
	if !t.submitted.Load() {
		return nil
	}
	return t.sched
}

// Done is closed once the task is dead.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks the calling goroutine until the task is dead or ctx ends.
// It must not be called from inside a task; use Join there.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err reports how the task ended: nil when the function returned,
// ErrTaskPanicked (wrapped) or ErrTaskAbandoned otherwise.
// It returns nil while the task is still alive.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Result returns the value passed to Exit. It is nil while the task is
// alive or when the task ended without calling Exit.
func (t *Task) Result() any {
	select {
	case <-t.done:
		return t.result
	default:
		return nil
	}
}

// Exit ends t immediately with result v, from any depth of calls inside the
// task. Deferred calls run as the task unwinds, and waiters read v through
// Result once Wait or Join returns. Exit returns only when t is not the
// running task.
func (t *Task) Exit(v any) error {
	if err := t.mustRun(); err != nil {
		return err
	}
	t.result = v
	panic(errExited)
}

// Yield gives up the worker. The task goes to the back of its scheduler's
// run queue. It must be called by the task itself.
func (t *Task) Yield() error {
	if err := t.mustRun(); err != nil {
		return err
	}
	t.park(SwitchYield, func() bool {
		t.ready()
		return true
	})
	return nil
}

// Join suspends t until target is dead. It must be called by t itself.
func (t *Task) Join(target *Task) error {
	if target == nil {
		return ErrNilTask
	}
	if target == t {
		return ErrDeadlock
	}
	if err := t.mustRun(); err != nil {
		return err
	}
	target.joined.wait(t)
	return nil
}

func (t *Task) String() string {
	return fmt.Sprintf("task-%d(%s)", t.id, t.Status())
}

// park records commit and switches back to the worker. The worker marks the
// task suspended and runs commit; commit publishes the task to whoever will
// wake it and reports false when the wait turned out to be unnecessary.
func (t *Task) park(reason string, commit func() bool) {
	t.commit = commit
	t.reason = reason
	t.exec.suspend()
}

// ready moves a suspended task back onto its home run queue.
// Safe to call from any goroutine.
func (t *Task) ready() {
	if !t.status.CompareAndSwap(int32(TaskSuspended), int32(TaskRunnable)) {
		return
	}
	s := t.sched
	s.suspended.Add(-1)
	s.queue.push(t)
	s.used.Release(1)
}

// mustRun rejects blocking calls from a task that is not the running one.
func (t *Task) mustRun() error {
	if t == nil {
		return ErrNilTask
	}
	if t.Status() != TaskRunning {
		return ErrTaskNotRunning
	}
	return nil
}

// body is the function run inside the task's execution.
func (t *Task) body() {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if err, ok := r.(error); ok {
			switch {
			case errors.Is(err, errExited):
				return
			case errors.Is(err, errAbandoned):
				t.err = ErrTaskAbandoned
				return
			}
		}
		t.panicValue = r
		t.stack = debug.Stack()
		t.err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
	}()
	t.fn(t, t.arg)
}
