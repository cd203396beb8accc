package core

import (
	"reflect"
	"runtime"
	"sync"
)

const defaultTaskHistoryCapacity = 100

// taskHistory keeps the most recent TaskRecords in a fixed ring.
type taskHistory struct {
	mu    sync.Mutex
	items []TaskRecord
	head  int
	count int
}

func newTaskHistory(capacity int) *taskHistory {
	if capacity < 1 {
		capacity = defaultTaskHistoryCapacity
	}
	return &taskHistory{items: make([]TaskRecord, capacity)}
}

func (h *taskHistory) add(record TaskRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// recent returns up to limit records, newest first. limit <= 0 means all.
func (h *taskHistory) recent(limit int) []TaskRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}
	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]TaskRecord, 0, limit)
	for i := range limit {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

// taskName resolves a readable name for fn.
func taskName(fn TaskFunc) string {
	if fn == nil {
		return "anonymous"
	}
	pc := reflect.ValueOf(fn).Pointer()
	if pc == 0 {
		return "anonymous"
	}
	f := runtime.FuncForPC(pc)
	if f == nil || f.Name() == "" {
		return "anonymous"
	}
	return f.Name()
}
