// Package script runs fake Sonic Pi programs written in JavaScript on the
// engine, using the goja runtime.
//
// Task bodies are generator functions. The suspending primitives return a
// request that the body yields to the engine:
//
//	live_loop("drums", function* () {
//	  sample("bd_haus");
//	  yield sleep(0.5);
//	});
//
//	live_loop("bass", function* () {
//	  const note = yield sync("tick");
//	  play(note);
//	  yield sleep(1);
//	});
//
// Non-suspending primitives (play, sample, get, set, cue, at, live_loop, ...)
// are plain calls. in_thread and with_fx return their body's generator, so
// a body that sleeps is delegated to with yield*.
//
// One goja runtime serves the whole run. A JavaScript call always completes
// before its task suspends, so calls into the runtime from different tasks
// never interleave.
package script
