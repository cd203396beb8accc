package core

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"code.hybscloud.com/lfq"
)

// runQueue is the bounded many-producer, one-consumer queue of runnable
// tasks. The owning worker is the only consumer.
//
// The compact (CAS) MPSC variant is used: the FAA variants may report
// ErrWouldBlock while items remain, and pop relies on a used-slot permit
// meaning an item is there.
type runQueue struct {
	q     lfq.Queue[*Task]
	count atomic.Int64
}

// newRunQueue creates a queue for size tasks. lfq needs at least two slots.
func newRunQueue(size int) *runQueue {
	return &runQueue{
		q: lfq.BuildMPSC[*Task](lfq.New(max(size, 2)).SingleConsumer().Compact()),
	}
}

// push appends t. Admission control guarantees room, so a full queue means
// the slot accounting is broken.
func (q *runQueue) push(t *Task) {
	if err := q.q.Enqueue(&t); err != nil {
		panic(fmt.Sprintf("core: run queue rejected %s: %v", t, err))
	}
	q.count.Add(1)
}

// pop removes the oldest task. Only the owning worker calls pop, and only
// after acquiring a used-slot permit.
func (q *runQueue) pop() *Task {
	for {
		t, err := q.q.Dequeue()
		if err == nil {
			q.count.Add(-1)
			return t
		}
		if !lfq.IsWouldBlock(err) {
			panic(fmt.Sprintf("core: run queue: %v", err))
		}
		// The permit was released after Enqueue returned; the item is
		// being published.
		runtime.Gosched()
	}
}

// len is a racy snapshot for stats.
func (q *runQueue) len() int {
	return int(max(q.count.Load(), 0))
}
