package core

import "testing"

func TestRoundRobinPolicy_Start(t *testing.T) {
	p := NewRoundRobinPolicy()
	schedulers := make([]*Scheduler, 3)
	want := []int{0, 1, 2, 0, 1}
	for i, w := range want {
		if got := p.Start(schedulers); got != w {
			t.Errorf("call %d: Start() = %d, want %d", i, got, w)
		}
	}
}

// TestLeastLoadedPolicy_Start verifies the lowest resident count wins
// Given: Schedulers holding 3, 1 and 1 resident tasks
// When: Start is called
// Then: The first scheduler with 1 task is chosen
func TestLeastLoadedPolicy_Start(t *testing.T) {
	schedulers := []*Scheduler{{}, {}, {}}
	schedulers[0].resident.Store(3)
	schedulers[1].resident.Store(1)
	schedulers[2].resident.Store(1)

	if got := (LeastLoadedPolicy{}).Start(schedulers); got != 1 {
		t.Errorf("Start() = %d, want 1", got)
	}
}
