package core

const eventFired = 1 << 31

// event is a one-shot latch. Tasks that wait before fire are parked and all
// woken, oldest first, when it fires; tasks that wait afterwards pass through.
// The low half of the word holds the fired bit and the waiter count.
type event struct {
	word ticketWord
	q    waitQueue
}

func (e *event) wait(t *Task) {
	for {
		hi, lo := e.word.load()
		if lo&eventFired != 0 {
			return
		}
		if e.word.cas(hi, lo, hi+1, lo+1) {
			ticket := hi
			t.park(SwitchJoin, func() bool {
				return e.q.park(ticket, t)
			})
			return
		}
	}
}

func (e *event) fire() {
	for {
		hi, lo := e.word.load()
		if lo&eventFired != 0 {
			return
		}
		if e.word.cas(hi, lo, hi, eventFired) {
			for ticket := hi - lo; ticket != hi; ticket++ {
				if w := e.q.release(ticket); w != nil {
					w.ready()
				}
			}
			return
		}
	}
}

func (e *event) fired() bool {
	_, lo := e.word.load()
	return lo&eventFired != 0
}
