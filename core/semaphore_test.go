package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewSemaphore_InvalidValue verifies out of range initial values are refused
func TestNewSemaphore_InvalidValue(t *testing.T) {
	for _, v := range []int{-1, SemValueMax + 1} {
		if _, err := NewSemaphore(v); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("NewSemaphore(%d) error = %v, want ErrInvalidValue", v, err)
		}
	}
	s, err := NewSemaphore(SemValueMax)
	if err != nil {
		t.Fatalf("NewSemaphore(SemValueMax) error = %v", err)
	}
	if err := s.Post(); !errors.Is(err, ErrOverflow) {
		t.Errorf("Post() at max error = %v, want ErrOverflow", err)
	}
}

// TestSemaphore_Bound verifies no more than n holders at once
// Given: A semaphore of 3 and 24 tasks on 4 workers
// When: Each task holds a permit across several yields
// Then: The number of concurrent holders never exceeds 3
func TestSemaphore_Bound(t *testing.T) {
	// Arrange
	pool := newTestPool(t, 4)
	sem, _ := NewSemaphore(3)
	var holders, peak atomic.Int32

	// Act
	tasks := make([]*Task, 24)
	for i := range tasks {
		tasks[i] = mustGo(t, pool, func(self *Task, _ any) {
			if err := sem.Wait(self); err != nil {
				t.Errorf("Wait() error = %v", err)
				return
			}
			n := holders.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			for range 3 {
				_ = self.Yield()
			}
			holders.Add(-1)
			_ = sem.Post()
		}, nil)
	}
	waitTasks(t, tasks...)

	// Assert
	if got := peak.Load(); got > 3 || got == 0 {
		t.Errorf("peak holders = %d, want 1..3", got)
	}
	if got := sem.Value(); got != 3 {
		t.Errorf("Value() = %d, want 3", got)
	}
}

// TestSemaphore_ProducerConsumer runs the classic pairing to completion
// Given: A semaphore of 0 and 256 consumer/producer pairs on 4 workers
// When: Each consumer waits 128 times and each producer posts 128 times
// Then: Every task finishes and the shared counter ends at 0
func TestSemaphore_ProducerConsumer(t *testing.T) {
	// Arrange
	config := DefaultPoolConfig()
	config.Workers = 4
	config.QueueSize = 256
	pool := newTestPoolWithConfig(t, config)
	sem, _ := NewSemaphore(0)
	var value atomic.Int64

	consume := func(self *Task, _ any) {
		for range 128 {
			if err := sem.Wait(self); err != nil {
				t.Errorf("Wait() error = %v", err)
				return
			}
			value.Add(-1)
			_ = self.Yield()
		}
	}
	produce := func(self *Task, _ any) {
		for range 128 {
			if err := sem.Post(); err != nil {
				t.Errorf("Post() error = %v", err)
				return
			}
			value.Add(1)
			_ = self.Yield()
		}
	}

	// Act
	var tasks []*Task
	for range 256 {
		tasks = append(tasks, mustGo(t, pool, consume, nil), mustGo(t, pool, produce, nil))
	}
	waitTasks(t, tasks...)

	// Assert
	if got := value.Load(); got != 0 {
		t.Errorf("value = %d, want 0", got)
	}
	if got := sem.Value(); got != 0 {
		t.Errorf("Value() = %d, want 0", got)
	}
}

// TestSemaphore_FIFOAndValue verifies waiters queue up in order
// Given: A semaphore of 0 and three tasks that wait in turn
// When: Three posts arrive from a plain goroutine
// Then: Value reports -3 while they wait and they wake in arrival order
func TestSemaphore_FIFOAndValue(t *testing.T) {
	// Arrange
	pool := newTestPool(t, 1)
	sem, _ := NewSemaphore(0)
	var log orderLog
	tasks := make([]*Task, 3)
	for i := range tasks {
		tasks[i] = mustGo(t, pool, func(self *Task, arg any) {
			_ = sem.Wait(self)
			log.add(arg.(int))
		}, i)
	}
	assertEventually(t, time.Second, func() bool { return sem.Value() == -3 })

	// Act
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 3 {
			_ = sem.Post()
		}
	}()
	wg.Wait()
	waitTasks(t, tasks...)

	// Assert
	got := log.snapshot()
	for i, v := range got {
		if v != i {
			t.Fatalf("wake order = %v, want [0 1 2]", got)
		}
	}
}

func TestSemaphore_TryWait(t *testing.T) {
	sem, _ := NewSemaphore(1)
	if !sem.TryWait() {
		t.Fatal("TryWait() = false with a permit available")
	}
	if sem.TryWait() {
		t.Error("TryWait() = true with no permits")
	}
	if got := sem.Value(); got != 0 {
		t.Errorf("Value() = %d, want 0", got)
	}
}

// TestSemaphore_DestroyWithWaiters verifies a busy destroy leaves the semaphore usable
// Given: A task waiting on a semaphore
// When: Destroy is called, then the semaphore is posted
// Then: Destroy fails with ErrBusy, the waiter wakes, and a later Destroy succeeds
func TestSemaphore_DestroyWithWaiters(t *testing.T) {
	// Arrange
	pool := newTestPool(t, 1)
	sem, _ := NewSemaphore(0)
	task := mustGo(t, pool, func(self *Task, _ any) { _ = sem.Wait(self) }, nil)
	assertEventually(t, time.Second, func() bool { return sem.Value() == -1 })

	// Act & Assert
	if err := sem.Destroy(); !errors.Is(err, ErrBusy) {
		t.Fatalf("Destroy() with waiter error = %v, want ErrBusy", err)
	}
	if err := sem.Post(); err != nil {
		t.Fatalf("Post() after failed Destroy error = %v", err)
	}
	waitTasks(t, task)
	if err := sem.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := sem.Post(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Post() after Destroy error = %v, want ErrDestroyed", err)
	}
}

func TestSemaphore_WaitOutsideTask(t *testing.T) {
	sem, _ := NewSemaphore(1)
	if err := sem.Wait(NewTask(func(*Task, any) {}, nil)); !errors.Is(err, ErrTaskNotRunning) {
		t.Errorf("Wait() error = %v, want ErrTaskNotRunning", err)
	}
	if err := sem.Wait(nil); !errors.Is(err, ErrNilTask) {
		t.Errorf("Wait(nil) error = %v, want ErrNilTask", err)
	}
}

// TestSemaphore_DestroyRacesWait verifies a waiter is never stranded by Destroy
// Given: A fresh empty semaphore per round and a task that waits on it
// When: Destroy runs concurrently with the Wait, 200 times
// Then: Either Destroy succeeds and Wait reports ErrDestroyed, or Destroy
// fails with ErrBusy and a Post wakes the waiter
func TestSemaphore_DestroyRacesWait(t *testing.T) {
	pool := newTestPool(t, 2)
	for round := range 200 {
		sem, _ := NewSemaphore(0)
		var waitErr error
		task := mustGo(t, pool, func(self *Task, _ any) {
			waitErr = sem.Wait(self)
		}, nil)

		destroyErr := sem.Destroy()
		switch {
		case destroyErr == nil:
			if err := sem.Post(); !errors.Is(err, ErrDestroyed) {
				t.Fatalf("round %d: Post() after Destroy error = %v, want ErrDestroyed", round, err)
			}
			waitTasks(t, task)
			if !errors.Is(waitErr, ErrDestroyed) {
				t.Fatalf("round %d: Wait() error = %v, want ErrDestroyed", round, waitErr)
			}
		case errors.Is(destroyErr, ErrBusy):
			if err := sem.Post(); err != nil {
				t.Fatalf("round %d: Post() error = %v", round, err)
			}
			waitTasks(t, task)
			if waitErr != nil {
				t.Fatalf("round %d: Wait() error = %v, want nil", round, waitErr)
			}
		default:
			t.Fatalf("round %d: Destroy() error = %v", round, destroyErr)
		}
	}
}

// TestSemaphore_DestroyedState verifies every operation sees the destroyed word
// Given: A semaphore holding two permits
// When: It is destroyed
// Then: TryWait fails, Value is 0, and Wait from a task reports ErrDestroyed
func TestSemaphore_DestroyedState(t *testing.T) {
	// Arrange
	pool := newTestPool(t, 1)
	sem, _ := NewSemaphore(2)

	// Act
	if err := sem.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	// Assert
	if sem.TryWait() {
		t.Error("TryWait() after Destroy = true")
	}
	if got := sem.Value(); got != 0 {
		t.Errorf("Value() after Destroy = %d, want 0", got)
	}
	var waitErr error
	task := mustGo(t, pool, func(self *Task, _ any) {
		waitErr = sem.Wait(self)
	}, nil)
	waitTasks(t, task)
	if !errors.Is(waitErr, ErrDestroyed) {
		t.Errorf("Wait() after Destroy error = %v, want ErrDestroyed", waitErr)
	}
}
