// Package ioreactor forwards descriptor readiness to a fiber pool.
//
// A Reactor watches registered descriptors and calls Waker.WakeFD when one
// becomes ready. Tasks suspend themselves with core.Pool.SuspendFD after a
// nonblocking read or write returns EAGAIN and retry once woken.
package ioreactor

import (
	"errors"

	"github.com/Swind/go-fiber-runner/core"
)

// Waker is implemented by *core.Pool.
type Waker interface {
	WakeFD(fd int) (bool, error)
}

// Events selects the readiness a descriptor is watched for.
type Events uint32

const (
	Readable Events = 1 << iota
	Writable
)

var (
	ErrUnsupported = errors.New("ioreactor: not supported on this platform")
	ErrNilWaker    = errors.New("ioreactor: waker is nil")
	ErrInvalidFD   = errors.New("ioreactor: invalid fd")
	ErrNoEvents    = errors.New("ioreactor: no events selected")
	ErrRegistered  = errors.New("ioreactor: fd already registered")
	ErrNotFound    = errors.New("ioreactor: fd not registered")
	ErrRunning     = errors.New("ioreactor: already running")
	ErrClosed      = errors.New("ioreactor: closed")
)

// Option configures a Reactor.
type Option func(*options)

type options struct {
	logger    core.Logger
	maxEvents int
}

// WithLogger sets the logger used for wake failures.
func WithLogger(l core.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxEvents sets how many events one poll may return.
func WithMaxEvents(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEvents = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: core.NewNoOpLogger(), maxEvents: 128}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
