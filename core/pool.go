package core

import (
	"context"
	"math/bits"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Pool multiplexes tasks over a fixed set of worker threads, one Scheduler
// per worker. Workers start when the pool is created.
type Pool struct {
	name       string
	schedulers []*Scheduler
	policy     DispatchPolicy
	sweeps     int
	fds        *fdRegistry
	history    *taskHistory

	logger              Logger
	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	stopping     atomic.Bool
	abandoning   atomic.Bool
	rejected     atomic.Uint64
	shutdownOnce sync.Once
	shutdownErr  error
	stopped      chan struct{}
}

// NewPool creates a pool with the given number of workers and default settings.
func NewPool(workers int) (*Pool, error) {
	config := DefaultPoolConfig()
	config.Workers = workers
	return NewPoolWithConfig(config)
}

// NewPoolWithConfig creates a pool from config. Invalid sizes are rejected
// before any worker starts.
func NewPoolWithConfig(config *PoolConfig) (*Pool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if config.Workers < 1 || config.Workers > MaxWorkers {
		return nil, ErrInvalidWorkerCount
	}
	queueSize := config.QueueSize
	if queueSize == 0 {
		queueSize = DefaultQueueSize
	}
	if queueSize < 0 || queueSize > MaxQueueSize {
		return nil, ErrInvalidQueueSize
	}
	maxFDs := config.MaxFDs
	if maxFDs <= 0 {
		maxFDs = DefaultMaxFDs
	}
	sweeps := config.SubmitSweeps
	if sweeps <= 0 {
		sweeps = DefaultSubmitSweeps
	}

	p := &Pool{
		name:                config.Name,
		policy:              config.Policy,
		sweeps:              sweeps,
		fds:                 newFDRegistry(maxFDs),
		history:             newTaskHistory(config.HistorySize),
		logger:              config.Logger,
		panicHandler:        config.PanicHandler,
		metrics:             config.Metrics,
		rejectedTaskHandler: config.RejectedTaskHandler,
		stopped:             make(chan struct{}),
	}

	// Use defaults if not provided
	if p.name == "" {
		p.name = "fiber-pool"
	}
	if p.policy == nil {
		p.policy = NewRoundRobinPolicy()
	}
	if p.logger == nil {
		p.logger = NewNoOpLogger()
	}
	if p.panicHandler == nil {
		p.panicHandler = &DefaultPanicHandler{}
	}
	if p.metrics == nil {
		p.metrics = &NilMetrics{}
	}
	if p.rejectedTaskHandler == nil {
		p.rejectedTaskHandler = &DefaultRejectedTaskHandler{}
	}

	workers := roundUpPow2(config.Workers)
	queueSize = roundUpPow2(queueSize)
	p.schedulers = make([]*Scheduler, workers)
	for i := range p.schedulers {
		cpu := -1
		if config.PinWorkers {
			cpu = i % runtime.NumCPU()
		}
		p.schedulers[i] = newScheduler(p, i, queueSize, cpu)
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.group = new(errgroup.Group)
	for _, s := range p.schedulers {
		p.group.Go(func() error {
			return s.run(p.ctx)
		})
	}

	p.logger.Info("Pool started",
		F("pool", p.name), F("workers", workers), F("queue_size", queueSize))
	return p, nil
}

func roundUpPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// WorkerCount returns the number of workers after rounding.
func (p *Pool) WorkerCount() int {
	return len(p.schedulers)
}

// Schedulers returns the pool's schedulers in worker order.
func (p *Pool) Schedulers() []*Scheduler {
	return append([]*Scheduler(nil), p.schedulers...)
}

// IsRunning reports whether the pool still accepts tasks.
func (p *Pool) IsRunning() bool {
	return !p.stopping.Load()
}

// AddTask admits t to the first scheduler with a free slot, starting where
// the dispatch policy says. It never blocks.
func (p *Pool) AddTask(t *Task) error {
	if t == nil || t.fn == nil {
		return p.reject("invalid", ErrNilTask)
	}
	if p.stopping.Load() {
		return p.reject("closed", ErrPoolClosed)
	}
	if !t.submitted.CompareAndSwap(false, true) {
		if t.Status() == TaskDead {
			return p.reject("invalid", ErrTaskDead)
		}
		return p.reject("invalid", ErrTaskSubmitted)
	}

	n := len(p.schedulers)
	for sweep := 0; sweep < p.sweeps; sweep++ {
		start := p.policy.Start(p.schedulers)
		for i := 0; i < n; i++ {
			s := p.schedulers[(start+i)&(n-1)]
			ok, err := s.admit(t)
			if err != nil {
				t.submitted.Store(false)
				return p.reject("closed", err)
			}
			if ok {
				return nil
			}
		}
	}
	t.submitted.Store(false)
	return p.reject("full", ErrPoolFull)
}

// Go creates a task running fn(t, arg) and adds it to the pool.
func (p *Pool) Go(fn TaskFunc, arg any) (*Task, error) {
	t := NewTask(fn, arg)
	if err := p.AddTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *Pool) reject(reason string, err error) error {
	p.rejected.Add(1)
	p.rejectedTaskHandler.HandleRejectedTask(p.name, reason)
	p.metrics.RecordTaskRejected(p.name, reason)
	return err
}

// SuspendFD suspends t until WakeFD(fd). t must be the running task and
// belong to this pool. The wakeup may be spurious.
func (p *Pool) SuspendFD(t *Task, fd int) error {
	if err := t.mustRun(); err != nil {
		return err
	}
	if t.sched == nil || t.sched.pool != p {
		return ErrForeignTask
	}
	return p.fds.suspend(t, fd)
}

// WakeFD wakes the task suspended on fd. It reports false when no task was
// suspended; the readiness is then kept for the next SuspendFD on fd.
func (p *Pool) WakeFD(fd int) (bool, error) {
	return p.fds.wake(fd)
}

// FDWaiter returns the task suspended on fd, or nil.
func (p *Pool) FDWaiter(fd int) *Task {
	return p.fds.waiter(fd)
}

// RecentTasks returns up to limit records of dead tasks, newest first.
// limit <= 0 returns every record kept.
func (p *Pool) RecentTasks(limit int) []TaskRecord {
	return p.history.recent(limit)
}

// Stats returns a point-in-time snapshot of the pool.
func (p *Pool) Stats() PoolStats {
	stats := PoolStats{
		Name:       p.name,
		Workers:    len(p.schedulers),
		Rejected:   p.rejected.Load(),
		Running:    !p.stopping.Load(),
		Schedulers: make([]SchedulerStats, 0, len(p.schedulers)),
	}
	for _, s := range p.schedulers {
		ss := s.Stats()
		stats.Queued += ss.Queued
		stats.Resident += ss.Resident
		stats.Suspended += ss.Suspended
		stats.Completed += ss.Completed
		stats.Schedulers = append(stats.Schedulers, ss)
	}
	return stats
}

// Shutdown stops accepting tasks, waits until every resident task is dead
// and then stops the workers. A task that never finishes blocks Shutdown
// forever; use ShutdownContext to bound the wait.
func (p *Pool) Shutdown() {
	_ = p.ShutdownContext(context.Background())
}

// ShutdownContext is Shutdown with a deadline. When ctx ends before the
// drain completes, resident tasks are abandoned: each one unwinds on its
// worker, running its deferred calls, and ends with ErrTaskAbandoned.
// ShutdownContext then returns ctx.Err(). Calls after the first wait for it
// and return its result.
func (p *Pool) ShutdownContext(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.shutdownErr = p.shutdown(ctx)
		close(p.stopped)
	})
	<-p.stopped
	return p.shutdownErr
}

func (p *Pool) shutdown(ctx context.Context) error {
	p.stopping.Store(true)
	p.logger.Info("Pool shutting down", F("pool", p.name))

	// Phase 1: drain
	var pending []*Scheduler
	for _, s := range p.schedulers {
		if s.beginStop() {
			pending = append(pending, s)
		}
	}
	var err error
drain:
	for _, s := range pending {
		select {
		case <-s.drained:
		case <-ctx.Done():
			err = ctx.Err()
			break drain
		}
	}
	if err != nil {
		p.abandoning.Store(true)
		p.logger.Warn("Pool drain interrupted, abandoning tasks",
			F("pool", p.name), F("error", err))
	}

	// Phase 2: stop workers
	p.cancel()
	if werr := p.group.Wait(); werr != nil && err == nil {
		err = werr
	}
	p.logger.Info("Pool stopped", F("pool", p.name))
	return err
}

// Done is closed once shutdown has completed.
func (p *Pool) Done() <-chan struct{} {
	return p.stopped
}
