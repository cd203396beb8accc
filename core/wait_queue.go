package core

import "sync/atomic"

const (
	segmentShift  = 6
	segmentSize   = 1 << segmentShift
	segmentIDMask = 1<<(32-segmentShift) - 1
)

// permitted marks a cell whose ticket was released before its waiter parked.
var permitted = new(Task)

// segment holds the rendezvous cells for segmentSize consecutive tickets.
type segment struct {
	id    uint32
	cells [segmentSize]atomic.Pointer[Task]
	done  atomic.Int32
	next  atomic.Pointer[segment]
}

func (s *segment) nextOrCreate() *segment {
	if n := s.next.Load(); n != nil {
		return n
	}
	n := &segment{id: (s.id + 1) & segmentIDMask}
	if s.next.CompareAndSwap(nil, n) {
		return n
	}
	return s.next.Load()
}

// waitQueue maps tickets to parked tasks. Each cell sees exactly two
// arrivals, the waiter's park and the releaser's release, and whichever is
// second completes the handoff. Segments are appended on demand and dropped
// from the head once every cell in them has completed.
type waitQueue struct {
	head atomic.Pointer[segment]
}

func (q *waitQueue) locate(ticket uint32) (*segment, *atomic.Pointer[Task]) {
	h := q.head.Load()
	if h == nil {
		q.head.CompareAndSwap(nil, &segment{})
		h = q.head.Load()
	}
	id := ticket >> segmentShift
	s := h
	for s.id != id {
		s = s.nextOrCreate()
	}
	return s, &s.cells[ticket&(segmentSize-1)]
}

// park publishes t under ticket. It returns false when the ticket was
// already released, in which case t must continue without waiting.
func (q *waitQueue) park(ticket uint32, t *Task) bool {
	s, cell := q.locate(ticket)
	if cell.CompareAndSwap(nil, t) {
		return true
	}
	q.complete(s)
	return false
}

// release hands ticket over. It returns the parked task that must be woken,
// or nil when the waiter has not parked yet and will find the permit.
func (q *waitQueue) release(ticket uint32) *Task {
	s, cell := q.locate(ticket)
	if cell.CompareAndSwap(nil, permitted) {
		return nil
	}
	t := cell.Load()
	q.complete(s)
	return t
}

func (q *waitQueue) complete(s *segment) {
	if s.done.Add(1) != segmentSize {
		return
	}
	for {
		h := q.head.Load()
		if h.done.Load() != segmentSize {
			return
		}
		q.head.CompareAndSwap(h, h.nextOrCreate())
	}
}
