package script

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/porras/fake-sonic-pi/internal/engine"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

type op int

const (
	opSleep op = iota
	opSync
	opStop
)

func (o op) String() string {
	switch o {
	case opSleep:
		return "sleep"
	case opSync:
		return "sync"
	default:
		return "stop"
	}
}

// request is what a suspending primitive returns to JavaScript, to be yielded
// back to the driver.
type request struct {
	op    op
	beats float64
	name  string
}

// session is one runtime bound to one run.
type session struct {
	script *Script
	vm     *goja.Runtime

	// current is the engine context of the task whose JavaScript is running.
	current *engine.Context

	// pending is the last request created and not yet yielded.
	pending *request

	// failVal/failErr remember the exception thrown for a Go-side error, so
	// the original error can be returned once it escapes JavaScript.
	failVal goja.Value
	failErr error
}

func newSession(s *Script) (*session, error) {
	sess := &session{script: s, vm: goja.New()}
	if err := sess.install(); err != nil {
		return nil, fmt.Errorf("install globals: %w", err)
	}
	return sess, nil
}

// throw raises err inside JavaScript and remembers it.
func (s *session) throw(err error) {
	obj := s.vm.NewGoError(err)
	s.failVal, s.failErr = obj, err
	panic(obj)
}

// rethrow propagates an error returned by a nested JavaScript call.
func (s *session) rethrow(err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex)
	}
	s.throw(err)
}

// convert turns an error out of goja into the error Run should see.
func (s *session) convert(err error) error {
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		if cause, ok := ie.Value().(error); ok {
			return cause
		}
	}
	var ex *goja.Exception
	if errors.As(err, &ex) && s.failVal != nil && ex.Value() == s.failVal {
		failed := s.failErr
		s.failVal, s.failErr = nil, nil
		return failed
	}
	return &Error{Script: s.script.name, Err: err}
}

// unyielded reports a request that was created and dropped.
func (s *session) unyielded() error {
	if s.pending == nil {
		return nil
	}
	req := s.pending
	s.pending = nil
	return fmt.Errorf("%s: %w", req.op, ErrUnyielded)
}

// body adapts a JavaScript function into an engine task body.
func (s *session) body(fn goja.Callable) engine.Body {
	return func(c *engine.Context) error {
		return s.drive(c, fn, goja.Undefined())
	}
}

// drive calls fn on behalf of c. A generator result is stepped until done,
// performing each yielded request on the engine between steps.
func (s *session) drive(c *engine.Context, fn goja.Callable, args ...goja.Value) error {
	s.current = c
	ret, err := fn(goja.Undefined(), args...)
	if err != nil {
		return s.convert(err)
	}

	gen, next, ok := s.generator(ret)
	if !ok {
		return s.unyielded()
	}

	input := goja.Undefined()
	for {
		s.current = c
		res, err := next(gen, input)
		if err != nil {
			return s.convert(err)
		}
		step := res.ToObject(s.vm)
		yielded := step.Get("value")
		if step.Get("done").ToBoolean() {
			return s.unyielded()
		}

		req, ok := exportRequest(yielded)
		if !ok {
			return &Error{
				Script: s.script.name,
				Err:    fmt.Errorf("yielded %s; only sleep(), sync() and stop() can be yielded", yielded),
			}
		}
		if s.pending != nil && s.pending != req {
			return s.unyielded()
		}
		s.pending = nil

		input, err = s.perform(c, req)
		if err != nil {
			return err
		}
	}
}

// generator returns v and its next method if v is an iterator.
func (s *session) generator(v goja.Value) (goja.Value, goja.Callable, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil, false
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, nil, false
	}
	next, ok := goja.AssertFunction(obj.Get("next"))
	if !ok {
		return nil, nil, false
	}
	return obj, next, true
}

func exportRequest(v goja.Value) (*request, bool) {
	if v == nil {
		return nil, false
	}
	req, ok := v.Export().(*request)
	return req, ok
}

// perform executes a request on the engine. This is the only place a
// scripted task suspends.
func (s *session) perform(c *engine.Context, req *request) (goja.Value, error) {
	switch req.op {
	case opSleep:
		return goja.Undefined(), c.Sleep(req.beats)
	case opSync:
		v, err := c.Sync(req.name)
		if err != nil {
			return nil, err
		}
		return s.vm.ToValue(v), nil
	default:
		return goja.Undefined(), c.Stop()
	}
}

// node builds the JavaScript handle for a recorded command.
func (s *session) node(n trace.Node) goja.Value {
	obj := s.vm.NewObject()
	_ = obj.Set("command", string(n.Command))
	_ = obj.Set("args", n.Args)
	_ = obj.Set("kill", func(goja.FunctionCall) goja.Value {
		n.Kill()
		return goja.Undefined()
	})
	return obj
}
