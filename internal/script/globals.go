package script

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/porras/fake-sonic-pi/internal/trace"
)

// commandGlobals maps JavaScript names to recorded commands.
var commandGlobals = map[string]trace.Command{
	"play":         trace.Play,
	"sample":       trace.Sample,
	"synth":        trace.Synth,
	"control":      trace.Control,
	"midi_note_on": trace.MidiNoteOn,
	"set_volume":   trace.SetVolume,
}

func (s *session) install() error {
	globals := map[string]func(goja.FunctionCall) goja.Value{
		"live_loop":     s.liveLoop,
		"at":            s.at,
		"in_thread":     s.inThread,
		"with_fx":       s.withFX,
		"sleep":         s.suspending(opSleep),
		"sync":          s.suspending(opSync),
		"stop":          s.suspending(opStop),
		"get":           s.get,
		"set":           s.set,
		"cue":           s.set,
		"beat":          s.beat,
		"use_real_time": s.useRealTime,
		"puts":          s.puts,
	}
	for name, cmd := range commandGlobals {
		globals[name] = s.command(cmd)
	}
	for name, fn := range globals {
		if err := s.vm.Set(name, fn); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	return nil
}

// function returns argument i as a callable or throws a TypeError.
func (s *session) function(call goja.FunctionCall, i int, what string) goja.Callable {
	fn, ok := goja.AssertFunction(call.Argument(i))
	if !ok {
		panic(s.vm.NewTypeError(what + ": body must be a function"))
	}
	return fn
}

func (s *session) liveLoop(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	fn := s.function(call, 1, "live_loop")
	if err := s.current.LiveLoop(name, s.body(fn)); err != nil {
		s.throw(err)
	}
	return goja.Undefined()
}

// at accepts a single offset or an array of offsets.
func (s *session) at(call goja.FunctionCall) goja.Value {
	offsets, err := toOffsets(call.Argument(0).Export())
	if err != nil {
		panic(s.vm.NewTypeError("at: " + err.Error()))
	}
	fn := s.function(call, 1, "at")
	if err := s.current.At(offsets, s.body(fn)); err != nil {
		s.throw(err)
	}
	return goja.Undefined()
}

// inThread calls the body inline and hands back its result, so a generator
// body can be delegated to with yield*.
func (s *session) inThread(call goja.FunctionCall) goja.Value {
	fn := s.function(call, 0, "in_thread")
	ret, err := fn(goja.Undefined())
	if err != nil {
		s.rethrow(err)
	}
	return ret
}

// withFX takes the effect arguments followed by the body. The body receives
// the effect's node.
func (s *session) withFX(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) == 0 {
		panic(s.vm.NewTypeError("with_fx: body must be a function"))
	}
	last := len(call.Arguments) - 1
	fn := s.function(call, last, "with_fx")
	args := exportArgs(call.Arguments[:last])

	var ret goja.Value
	err := s.current.WithFX(func(fx trace.Node) error {
		var err error
		ret, err = fn(goja.Undefined(), s.node(fx))
		return err
	}, args...)
	if err != nil {
		s.rethrow(err)
	}
	return ret
}

func (s *session) suspending(o op) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if !s.current.InTask() {
			s.throw(fmt.Errorf("%s: %w", o, errNotInTask))
		}
		if s.pending != nil {
			s.throw(fmt.Errorf("%s: %w", s.pending.op, ErrUnyielded))
		}
		req := &request{op: o}
		switch o {
		case opSleep:
			req.beats = call.Argument(0).ToFloat()
		case opSync:
			req.name = call.Argument(0).String()
		}
		s.pending = req
		return s.vm.ToValue(req)
	}
}

func (s *session) get(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	var def any
	if len(call.Arguments) > 1 {
		def = call.Argument(1).Export()
	}
	return s.vm.ToValue(s.current.Get(name, def))
}

func (s *session) set(call goja.FunctionCall) goja.Value {
	s.current.Set(call.Argument(0).String(), call.Argument(1).Export())
	return goja.Undefined()
}

func (s *session) beat(goja.FunctionCall) goja.Value {
	return s.vm.ToValue(float64(s.current.Beat()))
}

func (s *session) useRealTime(goja.FunctionCall) goja.Value {
	s.current.UseRealTime()
	return goja.Undefined()
}

func (s *session) puts(call goja.FunctionCall) goja.Value {
	s.script.logger.Info("puts",
		"script", s.script.name,
		"task", s.current.TaskName(),
		"beat", s.current.Beat(),
		"args", exportArgs(call.Arguments))
	return goja.Undefined()
}

func (s *session) command(cmd trace.Command) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		return s.node(s.current.Command(cmd, exportArgs(call.Arguments)...))
	}
}
