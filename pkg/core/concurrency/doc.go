// Package concurrency provides a fixed-size worker pool, chainable futures for
// the work it runs, and the blocking FIFO queue both are built on.
//
// Submit hands a computation to the pool and returns a *Future at once:
//
//	pool, err := concurrency.NewWorkerPool(ctx, concurrency.WorkerPoolConfig{Workers: 8})
//	if err != nil {
//		return err
//	}
//	defer pool.Stop(context.Background())
//
//	f, err := concurrency.SubmitValue(pool, func() int { return 21 })
//	if err != nil {
//		return err
//	}
//	doubled := concurrency.ThenApplyValue(f, func(n int) int { return n * 2 })
//	v, err := doubled.Get(ctx)
//
// Failures of user computations never stop a worker. They are stored on the
// future and reported by Get as an *ExecutionError wrapping the original error;
// a task that is never awaited simply never reports its failure.
//
// Shutdown resolves every task still waiting in the queue with ErrRejected, so
// Get cannot block forever on a pool that is gone. A computation that never
// returns still pins its worker: running tasks are not preempted.
package concurrency
