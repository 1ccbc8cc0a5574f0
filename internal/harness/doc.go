// Package harness runs scenario files against the engine.
//
// A scenario names a horizon, seed signals, a script (JavaScript file or
// step lists) and assertions about the result:
//
//	name: drums_and_bass
//	description: two loops at different rates
//	beats: 2
//	loops:
//	  - name: drums
//	    steps:
//	      - {command: sample, args: [bd_haus]}
//	      - {sleep: 0.5}
//	assertions:
//	  - {type: output_at, command: sample, args: [bd_haus], beats: [0, 0.5, 1, 1.5]}
//
// Scenarios run with a fixed run ID, so the same scenario always yields the
// same result. Results can be compared against golden snapshots (canonical
// JSON) with goldie, or through the CLI test command.
//
// output_at follows the have_output(...).at(...) matcher: by default every
// listed beat must occur, and "exact: true" requires the matching beats to
// be exactly the list.
package harness
