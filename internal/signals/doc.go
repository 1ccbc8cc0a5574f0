// Package signals implements the append-only store of timestamped, named
// signals that tasks synchronize on.
//
// A signal is emitted by set/cue at the current beat (or seeded before a run)
// and never removed. Tasks observe signals two ways:
//   - FindExact: only a signal stamped with exactly the current beat (sync)
//   - MostRecentAtOrBefore: the latest signal not in the future (get)
//
// The engine snapshots the store before each round of waiting tasks and
// compares afterwards to decide whether same-beat propagation has settled.
//
// The store is not safe for concurrent use. The engine is its only writer and
// runs one task at a time.
package signals
