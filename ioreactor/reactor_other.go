//go:build !linux

package ioreactor

import "context"

// Reactor is unavailable on this platform.
type Reactor struct{}

// New always fails with ErrUnsupported.
func New(waker Waker, opts ...Option) (*Reactor, error) {
	return nil, ErrUnsupported
}

func (r *Reactor) Add(fd int, events Events) error { return ErrUnsupported }
func (r *Reactor) Remove(fd int) error             { return ErrUnsupported }
func (r *Reactor) Len() int                        { return 0 }
func (r *Reactor) Run(ctx context.Context) error   { return ErrUnsupported }
func (r *Reactor) Close() error                    { return nil }
