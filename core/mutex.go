package core

import "sync/atomic"

// Mutex is a task mutex with FIFO handoff. The low half of its word counts
// the holder plus the waiters, or is retiredLo once destroyed. Unlock passes ownership directly to the oldest
// waiter, so a woken task already owns the mutex.
type Mutex struct {
	word      ticketWord
	q         waitQueue
	owner     atomic.Pointer[Task]
	depth     int
	reentrant bool
}

// MutexOption configures a Mutex.
type MutexOption func(*Mutex)

// WithReentrant lets the owner lock the mutex again; each Lock needs a
// matching Unlock.
func WithReentrant() MutexOption {
	return func(m *Mutex) {
		m.reentrant = true
	}
}

// NewMutex creates an unlocked mutex.
func NewMutex(opts ...MutexOption) *Mutex {
	m := &Mutex{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lock acquires the mutex for t, suspending t while another task holds it.
func (m *Mutex) Lock(t *Task) error {
	if err := t.mustRun(); err != nil {
		return err
	}
	if m.owner.Load() == t {
		if !m.reentrant {
			return ErrDeadlock
		}
		m.depth++
		return nil
	}
	for {
		hi, lo := m.word.load()
		if lo == retiredLo {
			return ErrDestroyed
		}
		if lo == 0 {
			if m.word.cas(hi, 0, hi, 1) {
				m.owner.Store(t)
				return nil
			}
			continue
		}
		if m.word.cas(hi, lo, hi+1, lo+1) {
			ticket := hi
			t.park(SwitchBlock, func() bool {
				return m.q.park(ticket, t)
			})
			m.owner.Store(t)
			return nil
		}
	}
}

// TryLock acquires the mutex only if it is free. Like Lock, it must be
// called by the running task t.
func (m *Mutex) TryLock(t *Task) bool {
	if t.mustRun() != nil {
		return false
	}
	if m.owner.Load() == t {
		if !m.reentrant {
			return false
		}
		m.depth++
		return true
	}
	hi, lo := m.word.load()
	if lo != 0 || !m.word.cas(hi, 0, hi, 1) {
		return false
	}
	m.owner.Store(t)
	return true
}

// Unlock releases the mutex held by t.
func (m *Mutex) Unlock(t *Task) error {
	if t == nil || m.owner.Load() != t {
		return ErrNotOwner
	}
	if m.depth > 0 {
		m.depth--
		return nil
	}
	m.release()
	return nil
}

// release drops ownership without checking the caller.
func (m *Mutex) release() {
	m.owner.Store(nil)
	for {
		hi, lo := m.word.load()
		if m.word.cas(hi, lo, hi, lo-1) {
			if lo > 1 {
				if w := m.q.release(hi - (lo - 1)); w != nil {
					w.ready()
				}
			}
			return
		}
	}
}

// Owner returns the task holding the mutex, or nil.
func (m *Mutex) Owner() *Task {
	return m.owner.Load()
}

// Destroy retires the mutex. It fails with ErrBusy while the mutex is held.
func (m *Mutex) Destroy() error {
	return m.word.retire(func(lo uint32) bool { return lo == 0 })
}
