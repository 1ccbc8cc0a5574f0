package engine

import (
	"fmt"
	"iter"

	"github.com/porras/fake-sonic-pi/internal/ir"
)

// Body is the code run by a task, or by the definition that sets up a run.
type Body func(c *Context) error

type taskKind int

const (
	kindLiveLoop taskKind = iota
	kindOneShot
)

func (k taskKind) String() string {
	if k == kindLiveLoop {
		return "live_loop"
	}
	return "at"
}

// wake is what a task hands back to the engine when it suspends.
type wake struct {
	beat    ir.Beat
	waiting bool
}

// abortSignal unwinds a task body whose coroutine is being released.
type abortSignal struct{}

// Task is one suspendable unit of work: a live loop or a one-shot at block.
//
// A task is either scheduled (resume once the clock reaches wakeBeat) or
// waiting (blocked in sync, retried every round). Both states are reported by
// the body each time it suspends.
type Task struct {
	id   int
	kind taskKind
	name string

	next func() (wake, bool)
	stop func()

	wakeBeat ir.Beat
	waiting  bool
	done     bool
	err      error

	// lastRun is the beat of the most recent scheduled resume; ran reports
	// whether there was one.
	lastRun ir.Beat
	ran     bool

	// suspended is set every time the body sleeps or syncs. Live loops clear
	// it before each iteration to spot bodies that never yield.
	suspended bool
}

func newTask(e *Engine, id int, kind taskKind, name string, at ir.Beat, body Body) *Task {
	t := &Task{id: id, kind: kind, name: name, wakeBeat: at}

	seq := func(yield func(wake) bool) {
		c := &Context{eng: e, task: t, yield: yield}
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(abortSignal); ok {
					return
				}
				t.err = &PanicError{Value: r}
			}
		}()
		if kind == kindLiveLoop {
			t.err = c.repeat(body)
			return
		}
		t.err = body(c)
	}
	t.next, t.stop = iter.Pull(seq)
	return t
}

// Ref identifies the task in logs and signal consumer sets.
func (t *Task) Ref() string {
	return fmt.Sprintf("%s:%s#%d", t.kind, t.name, t.id)
}

// resume runs the task until it suspends or returns. Afterwards either the
// wake state is updated or the task is done.
func (t *Task) resume() error {
	w, ok := t.next()
	if !ok {
		t.done = true
		return t.err
	}
	t.wakeBeat = w.beat
	t.waiting = w.waiting
	return nil
}

// release terminates the task. A suspended body is unwound; its deferred
// calls run but it can no longer record anything.
func (t *Task) release() {
	t.stop()
	t.done = true
}
