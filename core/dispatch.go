package core

import "sync/atomic"

// DispatchPolicy chooses where AddTask starts looking for a free slot.
// The pool tries the remaining schedulers in index order from there.
type DispatchPolicy interface {
	// Start returns the index of the first scheduler to try.
	Start(schedulers []*Scheduler) int
}

// RoundRobinPolicy advances a shared cursor on every call, whether or not
// the submission that used it succeeds.
type RoundRobinPolicy struct {
	cursor atomic.Uint32
}

// NewRoundRobinPolicy creates a round-robin policy starting at scheduler 0.
func NewRoundRobinPolicy() *RoundRobinPolicy {
	return &RoundRobinPolicy{}
}

func (p *RoundRobinPolicy) Start(schedulers []*Scheduler) int {
	return int(p.cursor.Add(1)-1) % len(schedulers)
}

// LeastLoadedPolicy starts at the scheduler with the fewest resident tasks.
// Ties go to the lowest index.
type LeastLoadedPolicy struct{}

func (LeastLoadedPolicy) Start(schedulers []*Scheduler) int {
	best, load := 0, int32(-1)
	for i, s := range schedulers {
		if n := s.resident.Load(); load < 0 || n < load {
			best, load = i, n
		}
	}
	return best
}
