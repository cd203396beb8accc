package core

import "time"

// TaskRecord describes a task after it died.
type TaskRecord struct {
	ID         uint64
	Name       string
	Scheduler  string
	RunTime    time.Duration // time spent running, over all slices
	Switches   int
	FinishedAt time.Time
	Err        error
	Result     any // value passed to Task.Exit
}

// SchedulerStats is a snapshot of one scheduler.
type SchedulerStats struct {
	ID         int
	Name       string
	Queued     int // runnable entries in the run queue
	Resident   int // admitted and not dead
	Suspended  int
	Capacity   int
	Dispatched uint64
	Completed  uint64
	Panicked   uint64
	Switches   uint64
	Stopping   bool
}

// PoolStats is a snapshot of a pool and its schedulers.
type PoolStats struct {
	Name       string
	Workers    int
	Queued     int
	Resident   int
	Suspended  int
	Completed  uint64
	Rejected   uint64
	Running    bool
	Schedulers []SchedulerStats
}
