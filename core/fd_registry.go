package core

import "sync/atomic"

// fdReady marks an fd whose readiness arrived while no task was suspended on it.
var fdReady = new(Task)

// fdRegistry maps descriptors to at most one suspended task each.
// A slot is nil, fdReady, or the suspended task.
type fdRegistry struct {
	slots []atomic.Pointer[Task]
}

func newFDRegistry(size int) *fdRegistry {
	return &fdRegistry{slots: make([]atomic.Pointer[Task], size)}
}

func (r *fdRegistry) slot(fd int) (*atomic.Pointer[Task], error) {
	if fd < 0 || fd >= len(r.slots) {
		return nil, ErrFDOutOfRange
	}
	return &r.slots[fd], nil
}

// suspend parks t until wake(fd). A readiness signal that arrived first is
// consumed without parking. Wakeups can be spurious; callers retry their IO.
func (r *fdRegistry) suspend(t *Task, fd int) error {
	slot, err := r.slot(fd)
	if err != nil {
		return err
	}
	if slot.CompareAndSwap(fdReady, nil) {
		return nil
	}

	var busy bool
	t.park(SwitchIO, func() bool {
		for {
			cur := slot.Load()
			switch cur {
			case nil:
				if slot.CompareAndSwap(nil, t) {
					return true
				}
			case fdReady:
				if slot.CompareAndSwap(fdReady, nil) {
					return false
				}
			default:
				busy = true
				return false
			}
		}
	})
	if busy {
		return ErrFDBusy
	}
	return nil
}

// wake readies the task suspended on fd. With no task suspended, it leaves a
// pending readiness for the next suspend and reports false.
func (r *fdRegistry) wake(fd int) (bool, error) {
	slot, err := r.slot(fd)
	if err != nil {
		return false, err
	}
	for {
		cur := slot.Load()
		switch cur {
		case nil:
			if slot.CompareAndSwap(nil, fdReady) {
				return false, nil
			}
		case fdReady:
			return false, nil
		default:
			if slot.CompareAndSwap(cur, nil) {
				cur.ready()
				return true, nil
			}
		}
	}
}

// waiter returns the task suspended on fd, or nil.
func (r *fdRegistry) waiter(fd int) *Task {
	slot, err := r.slot(fd)
	if err != nil {
		return nil
	}
	if t := slot.Load(); t != fdReady {
		return t
	}
	return nil
}
