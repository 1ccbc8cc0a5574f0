package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/porras/fake-sonic-pi/internal/ir"
)

// RuntimeError represents a misuse of the engine detected at run time.
//
// Runtime errors include:
//   - Invalid horizon: Run called with a negative, NaN or infinite beat count
//   - Invalid offset: sleep or at given a negative or NaN beat offset
//   - Engine reused: Run called a second time on the same engine
//   - Not in task: a suspending primitive called outside any task
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Task identifies the affected task, if any.
	Task string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidHorizon indicates Run was given an unusable beat count.
	ErrCodeInvalidHorizon RuntimeErrorCode = "INVALID_HORIZON"

	// ErrCodeInvalidOffset indicates a negative or NaN sleep/at offset.
	ErrCodeInvalidOffset RuntimeErrorCode = "INVALID_OFFSET"

	// ErrCodeEngineReused indicates Run was called twice on one engine.
	ErrCodeEngineReused RuntimeErrorCode = "ENGINE_REUSED"

	// ErrCodeNotInTask indicates a suspending primitive outside any task.
	ErrCodeNotInTask RuntimeErrorCode = "NOT_IN_TASK"

	// ErrCodeInvalidArgument indicates a malformed primitive argument.
	ErrCodeInvalidArgument RuntimeErrorCode = "INVALID_ARGUMENT"
)

// Codes reported by ErrorCode for errors that are not RuntimeErrors.
const (
	CodeNoSuspend      = "NO_SUSPEND"
	CodeRoundsExceeded = "ROUNDS_EXCEEDED"
	CodeTaskFailed     = "TASK_FAILED"
	CodeCanceled       = "CANCELED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("%s: %s (task=%s)", e.Code, e.Message, e.Task)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrNotInTask is returned by Sleep, Sync and Stop when called from the
// definition context instead of from inside a task.
var ErrNotInTask = &RuntimeError{
	Code:    ErrCodeNotInTask,
	Message: "suspending primitive called outside a task",
}

// NoSuspendError is raised when a live loop body completes an iteration
// without sleeping or syncing. Such a loop would spin forever at one beat.
type NoSuspendError struct {
	Loop string
	Beat ir.Beat
}

// Error implements the error interface.
func (e *NoSuspendError) Error() string {
	return fmt.Sprintf("live_loop %q did not sleep or sync (beat %s)", e.Loop, e.Beat)
}

// TaskError wraps an error returned (or a panic raised) by a task body.
type TaskError struct {
	Task string
	Beat ir.Beat
	Err  error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s at beat %s: %v", e.Task, e.Beat, e.Err)
}

// Unwrap returns the underlying error.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// PanicError carries a value recovered from a panicking task body.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// IsNoSuspendError returns true if the error is a NoSuspendError.
// Uses errors.As to handle wrapped errors.
func IsNoSuspendError(err error) bool {
	var ns *NoSuspendError
	return errors.As(err, &ns)
}

// IsRuntimeError returns true if err is a RuntimeError with the given code.
func IsRuntimeError(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// ErrorCode classifies err into a stable string, for scenario assertions and
// CLI output. It returns "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var re *RuntimeError
	switch {
	case IsNoSuspendError(err):
		return CodeNoSuspend
	case IsRoundsExceeded(err):
		return CodeRoundsExceeded
	case errors.As(err, &re):
		return string(re.Code)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeTaskFailed
	}
}

func invalidOffset(task string, offset float64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidOffset,
		Message: fmt.Sprintf("offset must be a non-negative number, got %v", offset),
		Task:    task,
	}
}
