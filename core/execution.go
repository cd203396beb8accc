package core

import (
	"errors"
	"iter"
)

// errAbandoned unwinds a suspended execution whose owner gave up on it.
var errAbandoned = errors.New("execution abandoned")

// execution is a suspendable call stack. The owner drives it with resume and
// the body gives control back with suspend. All resume and abandon calls must
// come from the goroutine that created the execution.
type execution struct {
	next      func() (struct{}, bool)
	stop      func()
	yield     func(struct{}) bool
	abandoned bool
}

// newExecution prepares body without running it. body is responsible for
// recovering its own panics, including errAbandoned.
func newExecution(body func()) *execution {
	e := &execution{}
	e.next, e.stop = iter.Pull(func(yield func(struct{}) bool) {
		e.yield = yield
		body()
	})
	return e
}

// resume runs the body until it suspends or returns. It reports whether the
// body is still alive.
func (e *execution) resume() bool {
	_, alive := e.next()
	return alive
}

// suspend returns control to the goroutine that called resume.
// Called from inside the body only.
func (e *execution) suspend() {
	if e.abandoned || !e.yield(struct{}{}) {
		e.abandoned = true
		panic(errAbandoned)
	}
}

// abandon unwinds a suspended body. Deferred calls in the body run before
// abandon returns.
func (e *execution) abandon() {
	e.stop()
}
