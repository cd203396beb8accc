package core

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Scheduler owns one worker thread and the tasks admitted to it.
//
// The used semaphore counts runnable entries in the run queue and is the only
// place the worker sleeps. The free semaphore counts resident slots: a slot is
// taken at admission and returned when the task dies, so a full scheduler
// never has more than QueueSize live tasks.
type Scheduler struct {
	id   int
	name string
	pool *Pool
	cpu  int

	queue *runQueue
	used  *semaphore.Weighted
	free  *semaphore.Weighted
	size  int64

	resident  atomic.Int32
	suspended atomic.Int32
	current   atomic.Pointer[Task]
	tasks     sync.Map // *Task -> struct{}, resident tasks

	stopping  atomic.Bool
	drained   chan struct{}
	drainOnce sync.Once

	dispatched atomic.Uint64
	completed  atomic.Uint64
	panicked   atomic.Uint64
	switches   atomic.Uint64
}

func newScheduler(p *Pool, id int, size int, cpu int) *Scheduler {
	s := &Scheduler{
		id:      id,
		name:    fmt.Sprintf("%s-worker-%d", p.name, id),
		pool:    p,
		cpu:     cpu,
		queue:   newRunQueue(size),
		used:    semaphore.NewWeighted(int64(size)),
		free:    semaphore.NewWeighted(int64(size)),
		size:    int64(size),
		drained: make(chan struct{}),
	}
	// The run queue starts empty: hold every used permit.
	s.used.TryAcquire(int64(size))
	return s
}

// ID returns the worker index within the pool.
func (s *Scheduler) ID() int {
	return s.id
}

// Name returns the scheduler name used in logs and metrics.
func (s *Scheduler) Name() string {
	return s.name
}

// Current returns the task running on this worker, or nil.
func (s *Scheduler) Current() *Task {
	return s.current.Load()
}

// Resident returns the number of admitted tasks that are not dead yet.
func (s *Scheduler) Resident() int {
	return int(s.resident.Load())
}

// Stats returns a point-in-time snapshot of the scheduler.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		ID:         s.id,
		Name:       s.name,
		Queued:     s.queue.len(),
		Resident:   int(s.resident.Load()),
		Suspended:  int(s.suspended.Load()),
		Capacity:   int(s.size),
		Dispatched: s.dispatched.Load(),
		Completed:  s.completed.Load(),
		Panicked:   s.panicked.Load(),
		Switches:   s.switches.Load(),
		Stopping:   s.stopping.Load(),
	}
}

// admit reserves a slot and queues t. It reports false when the scheduler is
// full.
func (s *Scheduler) admit(t *Task) (bool, error) {
	if !s.free.TryAcquire(1) {
		return false, nil
	}
	// resident goes up before stopping is checked; shutdown reads them in
	// the opposite order.
	s.resident.Add(1)
	if s.stopping.Load() {
		s.releaseSlot()
		return false, ErrPoolClosed
	}

	t.sched = s
	s.tasks.Store(t, struct{}{})
	s.queue.push(t)
	s.used.Release(1)
	s.dispatched.Add(1)
	s.pool.metrics.RecordQueueDepth(s.name, s.queue.len())
	return true, nil
}

func (s *Scheduler) releaseSlot() {
	s.free.Release(1)
	if s.resident.Add(-1) == 0 && s.stopping.Load() {
		s.drainOnce.Do(func() { close(s.drained) })
	}
}

// beginStop marks the scheduler as stopping and reports whether it still
// has resident tasks to drain.
func (s *Scheduler) beginStop() bool {
	s.stopping.Store(true)
	return s.resident.Load() > 0
}

// run is the worker loop.
func (s *Scheduler) run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if s.cpu >= 0 {
		if err := pinThread(s.cpu); err != nil {
			s.pool.logger.Warn("Failed to pin worker",
				F("scheduler", s.name), F("cpu", s.cpu), F("error", err))
		}
	}
	s.pool.logger.Debug("Worker started", F("scheduler", s.name))

	for ctx.Err() == nil {
		if err := s.used.Acquire(ctx, 1); err != nil {
			break
		}
		s.execute(s.queue.pop())
	}

	if s.pool.abandoning.Load() {
		s.abandonResident()
	}
	s.pool.logger.Debug("Worker stopped", F("scheduler", s.name))
	return nil
}

// execute runs t until it suspends or dies.
func (s *Scheduler) execute(t *Task) {
	if t.Status() == TaskDead {
		return
	}
	if t.exec == nil {
		// First dispatch: Ready -> Runnable once the execution exists.
		t.exec = newExecution(t.body)
		t.status.Store(int32(TaskRunnable))
	}
	t.status.Store(int32(TaskRunning))
	s.current.Store(t)
	defer s.current.Store(nil)

	for {
		start := time.Now()
		alive := t.exec.resume()
		t.runTime += time.Since(start)
		if !alive {
			s.retire(t)
			return
		}

		commit, reason := t.commit, t.reason
		t.commit, t.reason = nil, ""
		s.suspended.Add(1)
		t.status.Store(int32(TaskSuspended))
		if commit() {
			t.switches++
			s.switches.Add(1)
			s.pool.metrics.RecordTaskSwitch(s.name, reason)
			return
		}
		// Already satisfied: carry on without going through the queue.
		t.status.Store(int32(TaskRunning))
		s.suspended.Add(-1)
	}
}

// retire marks t dead and returns its slot.
func (s *Scheduler) retire(t *Task) {
	t.status.Store(int32(TaskDead))
	s.tasks.Delete(t)

	s.completed.Add(1)
	s.pool.history.add(TaskRecord{
		ID:         t.id,
		Name:       t.Name(),
		Scheduler:  s.name,
		RunTime:    t.runTime,
		Switches:   t.switches,
		FinishedAt: time.Now(),
		Err:        t.err,
		Result:     t.result,
	})
	s.pool.metrics.RecordTaskDuration(s.name, t.runTime)
	if t.panicValue != nil {
		s.panicked.Add(1)
		s.pool.metrics.RecordTaskPanic(s.name, t.panicValue)
		s.pool.panicHandler.HandlePanic(s.pool.ctx, s.name, s.id, t.panicValue, t.stack)
	}
	// The slot and the record are visible before Wait and Join return.
	s.releaseSlot()
	close(t.done)
	t.joined.fire()
}

// abandonResident unwinds every task still owned by the scheduler. It runs
// on the worker thread because executions are bound to it.
func (s *Scheduler) abandonResident() {
	var abandoned int
	s.tasks.Range(func(key, _ any) bool {
		t := key.(*Task)
		// Dead first, so that nothing can wake t while it unwinds.
		if t.status.CompareAndSwap(int32(TaskSuspended), int32(TaskDead)) {
			s.suspended.Add(-1)
		}
		t.status.Store(int32(TaskDead))
		if t.exec != nil {
			t.exec.abandon()
		}
		if t.err == nil {
			t.err = ErrTaskAbandoned
		}
		s.retire(t)
		abandoned++
		return true
	})
	if abandoned > 0 {
		s.pool.logger.Warn("Abandoned resident tasks",
			F("scheduler", s.name), F("count", abandoned))
	}
}
