package engine

import (
	"fmt"

	"github.com/porras/fake-sonic-pi/internal/ir"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

// Context is the handle through which script code reaches the engine.
//
// The definition passed to New receives a root Context that belongs to no
// task: it can create tasks, record commands and read or write signals, but
// Sleep, Sync and Stop return ErrNotInTask. Every task body receives its own
// Context bound to that task.
type Context struct {
	eng   *Engine
	task  *Task
	yield func(wake) bool

	// spins counts live loop iterations since the task last handed control
	// back to the engine.
	spins int
}

// Beat returns the engine's current beat.
func (c *Context) Beat() ir.Beat {
	return c.eng.clock.Now()
}

// TaskName returns the live loop name, "at" for one-shot tasks, or "" on the
// root context.
func (c *Context) TaskName() string {
	if c.task == nil {
		return ""
	}
	return c.task.name
}

// InTask reports whether c belongs to a task.
func (c *Context) InTask() bool {
	return c.task != nil
}

// suspend hands w to the engine and blocks until the task is resumed. If the
// task is being released instead, the body is unwound.
func (c *Context) suspend(w wake) {
	c.spins = 0
	if !c.yield(w) {
		panic(abortSignal{})
	}
}

// Sleep suspends the task for n beats. Sleeping 0 beats yields to the engine
// without moving the task's wake beat.
func (c *Context) Sleep(n float64) error {
	if c.task == nil {
		return ErrNotInTask
	}
	if !ir.ValidOffset(n) {
		return invalidOffset(c.task.Ref(), n)
	}
	c.task.suspended = true
	c.suspend(wake{beat: c.Beat().After(n)})
	return nil
}

// Stop parks the task forever. It is culled at the next round as its wake
// beat lies past any horizon, so Stop never returns to a running body.
func (c *Context) Stop() error {
	if c.task == nil {
		return ErrNotInTask
	}
	c.task.suspended = true
	c.suspend(wake{beat: ir.Never})
	return nil
}

// Sync waits for a signal named name at exactly the current beat and returns
// its value. A matching signal already present is returned immediately.
// Otherwise the task waits and retries every round, including rounds at
// later beats.
func (c *Context) Sync(name string) (any, error) {
	if c.task == nil {
		return nil, ErrNotInTask
	}
	if name == "" {
		return nil, c.invalidArgument("sync: signal name is required")
	}
	for {
		c.task.suspended = true
		if sig, ok := c.eng.signals.FindExact(c.Beat(), name); ok {
			sig.AddConsumer(c.task.Ref())
			return sig.Value, nil
		}
		c.suspend(wake{waiting: true})
	}
}

// Get returns the value of the most recent signal named name at or before
// the current beat, or def when there is none. Get never suspends.
func (c *Context) Get(name string, def any) any {
	if sig, ok := c.eng.signals.MostRecentAtOrBefore(c.Beat(), name); ok {
		return sig.Value
	}
	return def
}

// Set emits a signal named name at the current beat.
func (c *Context) Set(name string, value any) {
	c.eng.signals.Emit(c.Beat(), name, value)
}

// Cue is Set under its Sonic Pi name.
func (c *Context) Cue(name string, value any) {
	c.Set(name, value)
}

// LiveLoop creates a task that runs body over and over, starting at the
// current beat. Each iteration must sleep or sync at least once; an
// iteration that does neither fails the run with a NoSuspendError.
func (c *Context) LiveLoop(name string, body Body) error {
	if name == "" {
		return c.invalidArgument("live_loop: name is required")
	}
	if body == nil {
		return c.invalidArgument("live_loop: body is required")
	}
	c.eng.spawn(kindLiveLoop, name, c.Beat(), body)
	return nil
}

// At creates one one-shot task per offset, each running body once at the
// current beat plus that offset. Offsets are validated before any task is
// created.
func (c *Context) At(offsets []float64, body Body) error {
	if body == nil {
		return c.invalidArgument("at: body is required")
	}
	for _, off := range offsets {
		if !ir.ValidOffset(off) {
			return invalidOffset(c.ref(), off)
		}
	}
	now := c.Beat()
	for _, off := range offsets {
		c.eng.spawn(kindOneShot, "at", now.After(off), body)
	}
	return nil
}

// InThread runs body inline on the calling task. A sleep inside body
// suspends the caller.
func (c *Context) InThread(body Body) error {
	return body(c)
}

// Cleanup registers f to run once the run ends, whatever the outcome. Tasks
// are released first, and cleanups run last registered first.
func (c *Context) Cleanup(f func()) {
	c.eng.cleanups = append(c.eng.cleanups, f)
}

// UseRealTime does nothing. Virtual time has no latency to remove.
func (c *Context) UseRealTime() {}

// repeat drives a live loop body forever.
func (c *Context) repeat(body Body) error {
	for {
		c.task.suspended = false
		if err := body(c); err != nil {
			return err
		}
		if !c.task.suspended {
			return &NoSuspendError{Loop: c.task.name, Beat: c.Beat()}
		}
		// A body that only syncs on a signal already present never yields.
		c.spins++
		if c.spins > c.eng.quota.MaxRounds() {
			return &RoundsExceededError{Beat: c.Beat(), Rounds: c.spins, Limit: c.eng.quota.MaxRounds()}
		}
	}
}

func (c *Context) ref() string {
	if c.task == nil {
		return ""
	}
	return c.task.Ref()
}

func (c *Context) invalidArgument(msg string) *RuntimeError {
	return &RuntimeError{Code: ErrCodeInvalidArgument, Message: msg, Task: c.ref()}
}

// Command records cmd with args at the current beat.
func (c *Context) Command(cmd trace.Command, args ...any) trace.Node {
	return c.eng.recorder.Record(c.Beat(), cmd, args)
}

// Play records a play command.
func (c *Context) Play(args ...any) trace.Node {
	return c.Command(trace.Play, args...)
}

// Sample records a sample command.
func (c *Context) Sample(args ...any) trace.Node {
	return c.Command(trace.Sample, args...)
}

// Synth records a synth command.
func (c *Context) Synth(args ...any) trace.Node {
	return c.Command(trace.Synth, args...)
}

// Control records a control command.
func (c *Context) Control(args ...any) trace.Node {
	return c.Command(trace.Control, args...)
}

// MidiNoteOn records a midi_note_on command.
func (c *Context) MidiNoteOn(args ...any) trace.Node {
	return c.Command(trace.MidiNoteOn, args...)
}

// SetVolume records a set_volume! command.
func (c *Context) SetVolume(args ...any) trace.Node {
	return c.Command(trace.SetVolume, args...)
}

// WithFX runs body inline with a handle for the effect described by args.
// Entering the effect is not recorded.
func (c *Context) WithFX(body func(fx trace.Node) error, args ...any) error {
	if body == nil {
		return c.invalidArgument("with_fx: body is required")
	}
	return body(trace.Node{Command: trace.FX, Args: args})
}

// String implements fmt.Stringer for log output.
func (c *Context) String() string {
	if c.task == nil {
		return fmt.Sprintf("root@%s", c.Beat())
	}
	return fmt.Sprintf("%s@%s", c.task.Ref(), c.Beat())
}

