package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTaskHistory_RecentNewestFirst(t *testing.T) {
	h := newTaskHistory(3)
	for i := uint64(1); i <= 5; i++ {
		h.add(TaskRecord{ID: i})
	}

	got := h.recent(0)
	if len(got) != 3 {
		t.Fatalf("len(recent) = %d, want 3", len(got))
	}
	for i, want := range []uint64{5, 4, 3} {
		if got[i].ID != want {
			t.Errorf("recent[%d].ID = %d, want %d", i, got[i].ID, want)
		}
	}
	if got := h.recent(1); len(got) != 1 || got[0].ID != 5 {
		t.Errorf("recent(1) = %v, want [5]", got)
	}
	if got := newTaskHistory(0).recent(0); got != nil {
		t.Errorf("empty recent = %v, want nil", got)
	}
}

func namedTaskForHistory(self *Task, _ any) {
	_ = self.Yield()
	panic(errors.New("after yield"))
}

// TestPool_RecentTasks verifies dead tasks are recorded with their outcome
// Given: A task that yields once and then panics
// When: It dies
// Then: RecentTasks shows its name, one switch and the panic error
func TestPool_RecentTasks(t *testing.T) {
	config := DefaultPoolConfig()
	config.Workers = 1
	config.PanicHandler = &recordingPanicHandler{}
	pool := newTestPoolWithConfig(t, config)

	task := mustGo(t, pool, namedTaskForHistory, nil)
	waitTasks(t, task)

	var records []TaskRecord
	assertEventually(t, time.Second, func() bool {
		records = pool.RecentTasks(10)
		return len(records) == 1
	})
	rec := records[0]
	if rec.ID != task.ID() {
		t.Errorf("ID = %d, want %d", rec.ID, task.ID())
	}
	if !strings.HasSuffix(rec.Name, "namedTaskForHistory") {
		t.Errorf("Name = %q, want suffix namedTaskForHistory", rec.Name)
	}
	if rec.Switches != 1 {
		t.Errorf("Switches = %d, want 1", rec.Switches)
	}
	if !errors.Is(rec.Err, ErrTaskPanicked) {
		t.Errorf("Err = %v, want ErrTaskPanicked", rec.Err)
	}
}
