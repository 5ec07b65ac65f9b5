package concurrency

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is matched by every *ConfigError
	ErrConfig = errors.New("invalid pool configuration")

	// ErrRejected is returned when a task is submitted after shutdown, and stored on
	// tasks that were still queued when the pool shut down
	ErrRejected = errors.New("task rejected: pool is shut down")

	// ErrInterrupted is returned when a caller stops waiting on a queue or future
	// because its context was cancelled. It is never folded into ExecutionError.
	ErrInterrupted = errors.New("interrupted while waiting")

	// ErrQueueClosed is returned by BlockingQueue operations after Close
	ErrQueueClosed = errors.New("queue is closed")

	// ErrNilComputation is returned when Submit is called with a nil function
	ErrNilComputation = errors.New("computation cannot be nil")
)

// ConfigError describes a rejected pool construction parameter.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid pool configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Is lets errors.Is(err, ErrConfig) match any ConfigError
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// ExecutionError wraps the failure of a submitted computation.
// Cause is the exact error the computation returned (or a *PanicError).
type ExecutionError struct {
	TaskID string
	Cause  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// PanicError carries a value recovered from a panicking computation
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("computation panicked: %v", e.Value)
}

// interrupted joins ErrInterrupted with the context error that caused it
func interrupted(cause error) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, cause)
}
