//go:build linux

package ioreactor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/Swind/go-fiber-runner/core"
)

// Reactor is an edge-triggered epoll loop. An eventfd interrupts the poll on
// Close or context cancellation.
type Reactor struct {
	epfd   int
	wakefd int
	waker  Waker
	opts   options

	mu      sync.Mutex
	fds     map[int]Events
	running bool
	exited  chan struct{}

	closed atomic.Bool
}

// New creates a Reactor that wakes tasks through waker.
func New(waker Waker, opts ...Option) (*Reactor, error) {
	if waker == nil {
		return nil, ErrNilWaker
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("ioreactor: epoll_create1: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("ioreactor: eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("ioreactor: register eventfd: %w", err)
	}

	return &Reactor{
		epfd:   epfd,
		wakefd: wakefd,
		waker:  waker,
		opts:   buildOptions(opts),
		fds:    make(map[int]Events),
	}, nil
}

// Add starts watching fd. The reactor does not own fd; remove it before
// closing it.
func (r *Reactor) Add(fd int, events Events) error {
	if fd < 0 {
		return ErrInvalidFD
	}
	mask := toEpoll(events)
	if mask == 0 {
		return ErrNoEvents
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return ErrClosed
	}
	if _, ok := r.fds[fd]; ok {
		return ErrRegistered
	}

	ev := unix.EpollEvent{Events: mask | unix.EPOLLRDHUP | unix.EPOLLET, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("ioreactor: add fd %d: %w", fd, err)
	}
	r.fds[fd] = events
	return nil
}

// Remove stops watching fd.
func (r *Reactor) Remove(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return ErrClosed
	}
	if _, ok := r.fds[fd]; !ok {
		return ErrNotFound
	}
	delete(r.fds, fd)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("ioreactor: remove fd %d: %w", fd, err)
	}
	return nil
}

// Len returns the number of watched descriptors.
func (r *Reactor) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fds)
}

// Run polls until ctx is done or the reactor is closed. It returns ctx.Err()
// or ErrClosed. Only one Run may be active.
func (r *Reactor) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.running {
		r.mu.Unlock()
		return ErrRunning
	}
	r.running = true
	exited := make(chan struct{})
	r.exited = exited
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(exited)
	}()

	stop := context.AfterFunc(ctx, r.notify)
	defer stop()

	events := make([]unix.EpollEvent, r.opts.maxEvents)
	for {
		n, err := unix.EpollWait(r.epfd, events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("ioreactor: epoll_wait: %w", err)
		}

		for i := range n {
			fd := int(events[i].Fd)
			if fd == r.wakefd {
				r.drain()
				continue
			}
			if _, err := r.waker.WakeFD(fd); err != nil {
				r.opts.logger.Warn("Wake failed",
					core.F("fd", fd),
					core.F("error", err),
				)
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if r.closed.Load() {
			return ErrClosed
		}
	}
}

// Close stops Run, waits for it to return and releases the epoll and
// eventfd descriptors. Watched descriptors are left open.
func (r *Reactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	r.mu.Lock()
	running, exited := r.running, r.exited
	r.mu.Unlock()
	if running {
		r.notify()
		<-exited
	}

	r.mu.Lock()
	clear(r.fds)
	r.mu.Unlock()
	return errors.Join(unix.Close(r.epfd), unix.Close(r.wakefd))
}

func (r *Reactor) notify() {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(r.wakefd, buf[:])
}

func (r *Reactor) drain() {
	var buf [8]byte
	_, _ = unix.Read(r.wakefd, buf[:])
}

func toEpoll(events Events) uint32 {
	var mask uint32
	if events&Readable != 0 {
		mask |= unix.EPOLLIN
	}
	if events&Writable != 0 {
		mask |= unix.EPOLLOUT
	}
	return mask
}
