package core

const (
	semBias = 1 << 31

	// SemValueMax is the largest value a Semaphore can hold.
	SemValueMax = semBias - 1
)

// Semaphore is a counting semaphore for tasks.
//
// The low half of its word is semBias minus the available count plus the
// number of waiters, so a value above semBias means tasks are parked.
// retiredLo marks a destroyed semaphore. Waiters are woken in the order
// they arrived.
type Semaphore struct {
	word ticketWord
	q    waitQueue
}

// NewSemaphore creates a semaphore holding value permits.
func NewSemaphore(value int) (*Semaphore, error) {
	if value < 0 || value > SemValueMax {
		return nil, ErrInvalidValue
	}
	s := &Semaphore{}
	s.word.v.Store(packTicket(0, uint32(semBias-value)))
	return s, nil
}

// Wait takes a permit, suspending t until one is posted.
func (s *Semaphore) Wait(t *Task) error {
	if err := t.mustRun(); err != nil {
		return err
	}
	for {
		hi, lo := s.word.load()
		if lo == retiredLo {
			return ErrDestroyed
		}
		if lo < semBias {
			if s.word.cas(hi, lo, hi, lo+1) {
				return nil
			}
			continue
		}
		if s.word.cas(hi, lo, hi+1, lo+1) {
			ticket := hi
			t.park(SwitchBlock, func() bool {
				return s.q.park(ticket, t)
			})
			return nil
		}
	}
}

// TryWait takes a permit if one is available without suspending.
func (s *Semaphore) TryWait() bool {
	for {
		hi, lo := s.word.load()
		if lo >= semBias {
			return false
		}
		if s.word.cas(hi, lo, hi, lo+1) {
			return true
		}
	}
}

// Post returns a permit, waking the oldest waiter if there is one.
// It may be called from any goroutine.
func (s *Semaphore) Post() error {
	for {
		hi, lo := s.word.load()
		if lo == retiredLo {
			return ErrDestroyed
		}
		if lo <= semBias {
			if lo == semBias-SemValueMax {
				return ErrOverflow
			}
			if s.word.cas(hi, lo, hi, lo-1) {
				return nil
			}
			continue
		}
		if s.word.cas(hi, lo, hi, lo-1) {
			waiters := lo - semBias
			if w := s.q.release(hi - waiters); w != nil {
				w.ready()
			}
			return nil
		}
	}
}

// Value returns the number of available permits, or minus the number of
// waiting tasks when there are any. A destroyed semaphore reports 0.
func (s *Semaphore) Value() int {
	_, lo := s.word.load()
	if lo == retiredLo {
		return 0
	}
	return semBias - int(lo)
}

// Destroy retires the semaphore. It fails with ErrBusy while tasks are
// waiting, leaving the semaphore usable.
func (s *Semaphore) Destroy() error {
	return s.word.retire(func(lo uint32) bool { return lo <= semBias })
}
