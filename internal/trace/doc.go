// Package trace records the domain commands a script invoked (play, sample,
// synth, ...) together with the beat at which each was invoked.
//
// The recorder is a flat append log. It has no ordering semantics of its own:
// the order of events is exactly the order in which the engine resumed the
// tasks that issued them.
package trace
