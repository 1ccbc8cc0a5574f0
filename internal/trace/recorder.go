package trace

import (
	"slices"

	"github.com/porras/fake-sonic-pi/internal/ir"
)

// Event is one recorded command invocation.
type Event struct {
	Seq     int64   `json:"seq"`
	Beat    ir.Beat `json:"beat"`
	Command Command `json:"command"`
	Args    []any   `json:"args"`
}

// Recorder is an append-only log of command invocations.
// Not safe for concurrent use.
type Recorder struct {
	events []Event
	seq    int64
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends an invocation of cmd with args at beat and returns a handle.
// Args are stored as given; callers must not mutate them afterwards.
func (r *Recorder) Record(beat ir.Beat, cmd Command, args []any) Node {
	r.seq++
	r.events = append(r.events, Event{
		Seq:     r.seq,
		Beat:    beat,
		Command: cmd,
		Args:    args,
	})
	return Node{Command: cmd, Args: args}
}

// Events returns the recorded events in invocation order.
func (r *Recorder) Events() []Event {
	return slices.Clone(r.events)
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	return len(r.events)
}

// BeatsOf returns the beats at which cmd was invoked with exactly args, in
// recording order. With no args every invocation of cmd matches.
func BeatsOf(events []Event, cmd Command, args ...any) []ir.Beat {
	var beats []ir.Beat
	for _, ev := range events {
		if ev.Command != cmd {
			continue
		}
		if len(args) > 0 && !ArgsEqual(ev.Args, args) {
			continue
		}
		beats = append(beats, ev.Beat)
	}
	return beats
}

// Count returns how many times cmd was invoked.
func Count(events []Event, cmd Command) int {
	n := 0
	for _, ev := range events {
		if ev.Command == cmd {
			n++
		}
	}
	return n
}

// ArgsEqual compares two argument lists, treating numbers of different Go
// types as equal when their values are (so 12 matches 12.0), including inside
// option maps and nested lists.
func ArgsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ir.ValuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Digest returns a content digest over the events. Two runs of the same
// script produce the same digest.
func Digest(events []Event) (string, error) {
	return ir.Digest(ir.DomainTrace, events)
}
