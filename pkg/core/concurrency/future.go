package concurrency

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// Future holds the eventual outcome of one computation submitted to a WorkerPool.
//
// A Future moves from pending to ready exactly once. Continuations registered
// with ThenApply while it is pending are handed to the pool at that moment,
// under the same lock that flips the state, so none is lost or run twice.
type Future[T any] struct {
	id          string
	computation func() (T, error)
	pool        dispatcher

	mu            sync.Mutex
	ready         bool
	rejected      bool
	result        T
	failure       error
	continuations []task
	done          chan struct{}
}

func newFuture[T any](pool dispatcher, computation func() (T, error)) *Future[T] {
	return &Future[T]{
		id:          uuid.New().String(),
		computation: computation,
		pool:        pool,
		done:        make(chan struct{}),
	}
}

// ID returns the task identifier
func (f *Future[T]) ID() string {
	return f.id
}

// IsReady reports whether the computation has finished, successfully or not
func (f *Future[T]) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

// Done returns a channel that is closed once the future is ready
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the future is ready and returns its value.
//
// A failed computation yields an *ExecutionError whose Cause is the original
// error. A task dropped at shutdown yields an error matching ErrRejected.
// If ctx ends first, Get returns an error matching ErrInterrupted and ctx.Err();
// that is the caller giving up, not the task failing, so it is never an
// *ExecutionError.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	var zero T

	select {
	case <-f.done:
	default:
		select {
		case <-f.done:
		case <-ctx.Done():
			return zero, interrupted(ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rejected {
		return zero, fmt.Errorf("task %s: %w", f.id, f.failure)
	}
	if f.failure != nil {
		return zero, &ExecutionError{TaskID: f.id, Cause: f.failure}
	}
	return f.result, nil
}

// outcome returns the raw result and failure. Only valid once ready.
func (f *Future[T]) outcome() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.failure
}

func (f *Future[T]) run() error {
	v, err := f.invoke()
	f.complete(v, err, false)
	return err
}

func (f *Future[T]) reject(cause error) {
	var zero T
	f.complete(zero, cause, true)
}

// invoke runs the computation, turning a panic into a *PanicError
func (f *Future[T]) invoke() (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return f.computation()
}

// complete performs the pending to ready transition. It reports false if the
// future was already resolved, in which case nothing changes.
func (f *Future[T]) complete(v T, err error, rejected bool) bool {
	f.mu.Lock()
	if f.ready {
		f.mu.Unlock()
		return false
	}
	f.result = v
	f.failure = err
	f.rejected = rejected
	f.ready = true
	pending := f.continuations
	f.continuations = nil
	close(f.done)
	f.mu.Unlock()

	for _, next := range pending {
		f.pool.dispatch(next)
	}
	return true
}

// ThenApply returns a future for fn applied to f's value.
//
// The new task is submitted to f's pool right away if f is ready, otherwise when
// f becomes ready. If f fails, fn is never called and the returned future fails
// with an *ExecutionError carrying f's original cause.
// A nil fn yields a future that is already resolved with ErrNilComputation.
func ThenApply[T any, R any](f *Future[T], fn func(T) (R, error)) *Future[R] {
	if fn == nil {
		next := newFuture[R](f.pool, nil)
		next.reject(ErrNilComputation)
		return next
	}

	next := newFuture[R](f.pool, func() (R, error) {
		v, err := f.outcome()
		if err != nil {
			var zero R
			return zero, err
		}
		return fn(v)
	})

	f.mu.Lock()
	if !f.ready {
		f.continuations = append(f.continuations, next)
		f.mu.Unlock()
		return next
	}
	f.mu.Unlock()

	f.pool.dispatch(next)
	return next
}

// ThenApplyValue is ThenApply for functions that cannot fail
func ThenApplyValue[T any, R any](f *Future[T], fn func(T) R) *Future[R] {
	if fn == nil {
		return ThenApply[T, R](f, nil)
	}
	return ThenApply(f, func(v T) (R, error) {
		return fn(v), nil
	})
}
