package concurrency

// task is the unit the pool queues and workers execute.
// *Future[T] is the only implementation; the interface erases T so one queue
// can carry futures of every result type.
type task interface {
	// ID returns a unique identifier for logs and spans
	ID() string

	// run executes the computation and resolves the task.
	// The returned error is the computation's failure, reported for stats only.
	run() error

	// reject resolves a task that will never run
	reject(cause error)
}

// dispatcher accepts continuation tasks once their parent resolves.
// A dispatcher that cannot accept t must reject it so nobody waits forever.
type dispatcher interface {
	dispatch(t task)
}
