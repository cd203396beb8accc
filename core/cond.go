package core

// Cond is a condition variable for tasks holding a Mutex. The low half of
// its word is the number of waiters, or retiredLo once destroyed.
type Cond struct {
	word ticketWord
	q    waitQueue
}

// NewCond creates a condition variable with no waiters.
func NewCond() *Cond {
	return &Cond{}
}

// Wait atomically releases m and suspends t until signalled, then
// reacquires m before returning. t must own m.
func (c *Cond) Wait(t *Task, m *Mutex) error {
	if err := t.mustRun(); err != nil {
		return err
	}
	if m == nil || m.owner.Load() != t {
		return ErrNotOwner
	}
	var ticket uint32
	for {
		hi, lo := c.word.load()
		if lo == retiredLo {
			return ErrDestroyed
		}
		if c.word.cas(hi, lo, hi+1, lo+1) {
			ticket = hi
			break
		}
	}
	depth := m.depth
	m.depth = 0
	// m is released only after t is published, so a signal sent by the next
	// holder cannot be lost.
	t.park(SwitchBlock, func() bool {
		parked := c.q.park(ticket, t)
		m.release()
		return parked
	})

	if err := m.Lock(t); err != nil {
		return err
	}
	m.depth = depth
	return nil
}

// Signal wakes the oldest waiter, if any. It may be called from any goroutine.
func (c *Cond) Signal() {
	for {
		hi, lo := c.word.load()
		if lo == 0 || lo == retiredLo {
			return
		}
		if c.word.cas(hi, lo, hi, lo-1) {
			if w := c.q.release(hi - lo); w != nil {
				w.ready()
			}
			return
		}
	}
}

// Broadcast wakes every waiter, oldest first.
func (c *Cond) Broadcast() {
	for {
		hi, lo := c.word.load()
		if lo == 0 || lo == retiredLo {
			return
		}
		if c.word.cas(hi, lo, hi, 0) {
			for ticket := hi - lo; ticket != hi; ticket++ {
				if w := c.q.release(ticket); w != nil {
					w.ready()
				}
			}
			return
		}
	}
}

// Waiters returns the number of tasks waiting on the condition.
func (c *Cond) Waiters() int {
	_, lo := c.word.load()
	if lo == retiredLo {
		return 0
	}
	return int(lo)
}

// Destroy retires the condition variable. It fails with ErrBusy while tasks
// are waiting.
func (c *Cond) Destroy() error {
	return c.word.retire(func(lo uint32) bool { return lo == 0 })
}
