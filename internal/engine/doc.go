// Package engine implements the virtual-time scheduler that runs a fake
// Sonic Pi script: live loops, one-shot "at" blocks, sleep, sync, get/set/cue
// and the recorded domain commands.
//
// No real time passes and no task runs in parallel. The engine owns a logical
// clock measured in beats and decides, one step at a time, which task to
// resume next.
//
// ARCHITECTURE:
//
// Tasks as coroutines:
// Every task body runs inside an iter.Pull coroutine. Sleep and Sync suspend
// the coroutine by yielding a wake state back to the engine:
//   - a concrete beat: do not resume before the clock reaches it
//   - waiting: blocked on a signal, retry every round
//
// Exactly one coroutine executes at any moment, and only while the engine is
// blocked inside its resume call. All engine state is therefore mutated by a
// single logical thread and needs no locking.
//
// Control loop (one iteration):
//  1. prune terminated tasks
//  2. split live tasks into waiting and scheduled
//  3. cull scheduled tasks whose wake beat lies past the horizon
//  4. note the size of the signal store, which only ever grows
//  5. resume every waiting task once, in live-set order
//  6. if the store grew, start over without moving the clock (fixpoint)
//  7. otherwise advance the clock to whichever comes first: the next future
//     signal beat (clock only) or the earliest scheduled task (resume it).
//     Ties go to the scheduled task. With neither, the run is complete.
//
// Step 6 guarantees that a cascade of same-beat cues between tasks that sync
// on each other settles before time moves on.
//
// DETERMINISM:
//   - the live set is ordered by creation; waiting tasks resume in that order
//   - scheduled tasks sharing the minimum wake beat resume in creation order
//   - no maps are iterated, no wall clock is read
package engine
