// Package fiberrunner is an M:N cooperative task runtime for Go.
//
// Lightweight tasks run on a fixed set of worker threads. Each worker owns a
// scheduler with a bounded run queue, and every task stays on the worker it
// was admitted to until it finishes. Tasks are never preempted: they run
// until they yield, block on a Mutex, Cond or Semaphore, suspend on a file
// descriptor, join another task, or return.
//
// # Quick Start
//
// Initialize the global pool at application startup:
//
//	if err := fiberrunner.InitGlobalPool(4); err != nil {
//		log.Fatal(err)
//	}
//	defer fiberrunner.ShutdownGlobalPool()
//
// Start tasks. Each task receives its own handle, which it passes to every
// blocking call:
//
//	mu := fiberrunner.NewMutex()
//	task, err := fiberrunner.Go(func(t *fiberrunner.Task, arg any) {
//		mu.Lock(t)
//		defer mu.Unlock(t)
//		t.Yield() // other tasks on this worker run here
//	}, nil)
//
// # Key Concepts
//
// Pool: a fixed, power-of-two number of workers. AddTask never blocks; when
// every scheduler is full it returns ErrPoolFull. Shutdown waits for every
// admitted task to finish, ShutdownContext bounds that wait and abandons what
// is left.
//
// Mutex, Cond, Semaphore: single-word ticket primitives that park tasks, not
// threads, and wake them in FIFO order.
//
// SuspendFD and WakeFD: a blocked-IO registry. The ioreactor package drives
// WakeFD from epoll on Linux.
//
// # Thread Safety
//
// A task's function must not call runtime.LockOSThread or block its thread
// for long: it shares the worker with every other task on that scheduler.
// Post, Signal, Broadcast and WakeFD may be called from any goroutine.
// Unlock must be given the owning task.
package fiberrunner
