package engine

import (
	"slices"

	"github.com/porras/fake-sonic-pi/internal/ir"
)

// taskSet holds live tasks in creation order.
//
// Creation order is the tie-break for everything the engine decides, so the
// set never reorders. Tasks are only removed by prune and cull.
type taskSet struct {
	tasks []*Task
}

func (s *taskSet) add(t *Task) {
	s.tasks = append(s.tasks, t)
}

func (s *taskSet) len() int {
	return len(s.tasks)
}

// prune drops terminated tasks.
func (s *taskSet) prune() {
	s.tasks = slices.DeleteFunc(s.tasks, func(t *Task) bool { return t.done })
}

// partition splits the live set into waiting and scheduled tasks, both in
// creation order.
func (s *taskSet) partition() (waiting, scheduled []*Task) {
	for _, t := range s.tasks {
		if t.waiting {
			waiting = append(waiting, t)
		} else {
			scheduled = append(scheduled, t)
		}
	}
	return waiting, scheduled
}

// cull releases and removes scheduled tasks that would wake after horizon.
// It returns the scheduled tasks that remain and how many were culled.
func (s *taskSet) cull(scheduled []*Task, horizon ir.Beat) ([]*Task, int) {
	kept := scheduled[:0]
	culled := 0
	for _, t := range scheduled {
		if t.wakeBeat > horizon {
			t.release()
			culled++
			continue
		}
		kept = append(kept, t)
	}
	if culled > 0 {
		s.prune()
	}
	return kept, culled
}

// releaseAll terminates every live task.
func (s *taskSet) releaseAll() {
	for _, t := range s.tasks {
		t.release()
	}
	s.tasks = nil
}

// earliest returns the scheduled task with the smallest wake beat. Among
// equal wake beats the first created wins.
func earliest(scheduled []*Task) *Task {
	var best *Task
	for _, t := range scheduled {
		if best == nil || t.wakeBeat < best.wakeBeat {
			best = t
		}
	}
	return best
}
