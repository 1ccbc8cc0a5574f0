package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dop251/goja"

	"github.com/porras/fake-sonic-pi/internal/engine"
)

// Script is a compiled program. It can be bound to any number of runs; each
// binding gets a fresh JavaScript runtime.
type Script struct {
	name    string
	program *goja.Program
	logger  *slog.Logger
}

// Option configures a Script.
type Option func(*Script)

// WithLogger sets the logger used by puts(). Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Script) {
		s.logger = l
	}
}

// Compile parses src. name is used in error messages and stack traces.
func Compile(name, src string, opts ...Option) (*Script, error) {
	prog, err := goja.Compile(name, src, true)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	s := &Script{name: name, program: prog, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load reads and compiles the script at path.
func Load(path string, opts ...Option) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Compile(filepath.Base(path), string(src), opts...)
}

// Name returns the script name given at compile time.
func (s *Script) Name() string {
	return s.name
}

// Definition returns the engine definition that evaluates the program.
// Cancelling ctx interrupts JavaScript that is still executing.
func (s *Script) Definition(ctx context.Context) engine.Body {
	return func(c *engine.Context) error {
		sess, err := newSession(s)
		if err != nil {
			return err
		}
		// Tasks call into the runtime long after the definition returns, so
		// the hook lives until the run ends rather than this call.
		stop := context.AfterFunc(ctx, func() {
			sess.vm.Interrupt(ctx.Err())
		})
		c.Cleanup(func() { stop() })

		sess.current = c
		if _, err := sess.vm.RunProgram(s.program); err != nil {
			return sess.convert(err)
		}
		return sess.unyielded()
	}
}

// Error is a JavaScript exception raised by a script.
type Error struct {
	Script string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %v", e.Script, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrUnyielded is returned when a body calls sleep, sync or stop without
// yielding the result.
var ErrUnyielded = errors.New("sleep(), sync() and stop() must be yielded: use `yield sleep(n)`")
