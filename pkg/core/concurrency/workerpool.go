package concurrency

import (
	"context"
	"runtime"
)

// WorkerPool runs submitted computations on a fixed set of worker goroutines
// pulling from one shared FIFO queue.
// Use Submit or SubmitValue to hand it work.
type WorkerPool interface {
	// Shutdown stops the pool. New submissions fail with ErrRejected, idle
	// workers are woken and exit, and tasks still queued are resolved with
	// ErrRejected. Tasks already running finish normally.
	// Calling Shutdown more than once has no further effect.
	Shutdown()

	// AwaitTermination blocks until every worker goroutine has exited or ctx ends.
	// It returns nil only once no worker remains.
	AwaitTermination(ctx context.Context) error

	// Stop is Shutdown followed by AwaitTermination
	Stop(ctx context.Context) error

	// Workers returns the fixed number of workers
	Workers() int

	// IsShutdown returns true once Shutdown has been called
	IsShutdown() bool

	// Stats returns a snapshot of pool counters
	Stats() PoolStats

	enqueue(t task) error
	dispatcher
}

// PoolStats is a point-in-time view of a WorkerPool
type PoolStats struct {
	Name           string
	Workers        int   // Configured worker count
	AliveWorkers   int   // Workers that have not exited yet
	ActiveTasks    int   // Tasks currently executing
	QueuedTasks    int   // Tasks waiting for a worker
	SubmittedTasks int64 // Tasks accepted, continuations included
	CompletedTasks int64 // Tasks executed, successfully or not
	FailedTasks    int64 // Executed tasks whose computation failed
	RejectedTasks  int64 // Submissions refused plus tasks dropped at shutdown
}

// WorkerPoolConfig configures a WorkerPool
type WorkerPoolConfig struct {
	Workers int    // Number of worker goroutines, must be positive
	Name    string // Pool name for logs, spans and metrics
}

// DefaultWorkerPoolConfig returns one worker per CPU
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers: runtime.NumCPU(),
		Name:    "default",
	}
}

// Validate checks the configuration without building a pool
func (c WorkerPoolConfig) Validate() error {
	if c.Workers <= 0 {
		return &ConfigError{Field: "Workers", Value: c.Workers, Reason: "must be positive"}
	}
	return nil
}

// Submit queues fn on p and returns its future immediately.
// Fails with ErrRejected once p has been shut down.
func Submit[T any](p WorkerPool, fn func() (T, error)) (*Future[T], error) {
	if fn == nil {
		return nil, ErrNilComputation
	}

	f := newFuture[T](p, fn)
	if err := p.enqueue(f); err != nil {
		return nil, err
	}
	return f, nil
}

// SubmitValue is Submit for computations that cannot fail
func SubmitValue[T any](p WorkerPool, fn func() T) (*Future[T], error) {
	if fn == nil {
		return nil, ErrNilComputation
	}
	return Submit(p, func() (T, error) {
		return fn(), nil
	})
}
