package concurrency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/fluxorio/lightpool/pkg/core/concurrency"

// defaultWorkerPool implements WorkerPool
type defaultWorkerPool struct {
	name    string
	workers int
	queue   *BlockingQueue[task]

	mu       sync.RWMutex // Guards shutdown against enqueue
	shutdown bool

	ctx        context.Context
	cancel     context.CancelFunc
	stopWatch  func() bool // Unregisters the parent-context shutdown hook
	wg         sync.WaitGroup
	terminated chan struct{}

	logger  *zap.Logger
	metrics Metrics
	tracer  trace.Tracer

	alive     int32
	active    int32
	submitted int64
	completed int64
	failed    int64
	rejected  int64
}

// NewWorkerPool starts cfg.Workers goroutines and returns the running pool.
//
// A non-positive worker count is a *ConfigError; it is never replaced by a default.
// Cancelling ctx shuts the pool down as if Shutdown had been called.
func NewWorkerPool(ctx context.Context, cfg WorkerPoolConfig, opts ...Option) (WorkerPool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	ctx, cancel := context.WithCancel(ctx)

	wp := &defaultWorkerPool{
		name:       cfg.Name,
		workers:    cfg.Workers,
		queue:      NewBlockingQueue[task](),
		ctx:        ctx,
		cancel:     cancel,
		terminated: make(chan struct{}),
		logger:     newDefaultLogger(),
		metrics:    NoopMetrics{},
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(wp)
	}
	wp.logger = wp.logger.With(zap.String("pool", wp.name))

	// Shutdown blocks on mu until the hook is stored, even if ctx is already done.
	wp.mu.Lock()
	wp.stopWatch = context.AfterFunc(ctx, wp.Shutdown)
	wp.mu.Unlock()
	wp.startWorkers()
	wp.logger.Info("worker pool started", zap.Int("workers", wp.workers))

	return wp, nil
}

// NewDefaultWorkerPool starts a pool with DefaultWorkerPoolConfig
func NewDefaultWorkerPool(ctx context.Context, opts ...Option) (WorkerPool, error) {
	return NewWorkerPool(ctx, DefaultWorkerPoolConfig(), opts...)
}

func (wp *defaultWorkerPool) startWorkers() {
	wp.wg.Add(wp.workers)
	atomic.StoreInt32(&wp.alive, int32(wp.workers))
	for i := 0; i < wp.workers; i++ {
		go wp.worker(i)
	}

	go func() {
		wp.wg.Wait()
		close(wp.terminated)
	}()
}

// worker takes tasks until the queue is closed or the pool context ends
func (wp *defaultWorkerPool) worker(id int) {
	defer wp.wg.Done()
	defer atomic.AddInt32(&wp.alive, -1)

	for {
		t, err := wp.queue.Take(wp.ctx)
		if err != nil {
			wp.logger.Debug("worker exiting", zap.Int("worker", id), zap.Error(err))
			return
		}
		wp.execute(id, t)
	}
}

func (wp *defaultWorkerPool) execute(id int, t task) {
	atomic.AddInt32(&wp.active, 1)
	wp.metrics.TaskStarted()

	_, span := wp.tracer.Start(wp.ctx, "lightpool.task", trace.WithAttributes(
		attribute.String("lightpool.pool", wp.name),
		attribute.String("lightpool.task_id", t.ID()),
		attribute.Int("lightpool.worker", id),
	))

	start := time.Now()
	err := t.run()
	elapsed := time.Since(start)

	if err != nil {
		atomic.AddInt64(&wp.failed, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var panicErr *PanicError
		if errors.As(err, &panicErr) {
			wp.logger.Error("task panicked",
				zap.String("task", t.ID()),
				zap.Any("panic", panicErr.Value),
				zap.ByteString("stack", panicErr.Stack))
		} else {
			wp.logger.Debug("task failed", zap.String("task", t.ID()), zap.Error(err))
		}
	}
	span.End()

	atomic.AddInt64(&wp.completed, 1)
	atomic.AddInt32(&wp.active, -1)
	wp.metrics.TaskFinished(elapsed, err)
}

// enqueue holds the read lock across the shutdown check and the Add so that
// Shutdown cannot drain the queue in between.
func (wp *defaultWorkerPool) enqueue(t task) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.shutdown {
		atomic.AddInt64(&wp.rejected, 1)
		wp.metrics.IncRejected(1)
		return ErrRejected
	}
	if err := wp.queue.Add(t); err != nil {
		return fmt.Errorf("enqueue task %s: %w", t.ID(), ErrRejected)
	}

	atomic.AddInt64(&wp.submitted, 1)
	wp.metrics.IncSubmitted()
	return nil
}

// dispatch submits a continuation, rejecting it if the pool is gone
func (wp *defaultWorkerPool) dispatch(t task) {
	if err := wp.enqueue(t); err != nil {
		t.reject(err)
	}
}

// Shutdown implements WorkerPool interface
func (wp *defaultWorkerPool) Shutdown() {
	wp.mu.Lock()
	if wp.shutdown {
		wp.mu.Unlock()
		return
	}
	wp.shutdown = true
	wp.queue.Close()
	stopWatch := wp.stopWatch
	wp.mu.Unlock()

	stopWatch()
	wp.cancel()

	drained := wp.queue.Drain()
	if len(drained) > 0 {
		atomic.AddInt64(&wp.rejected, int64(len(drained)))
		wp.metrics.IncRejected(len(drained))
	}
	for _, t := range drained {
		t.reject(ErrRejected)
	}

	wp.logger.Info("worker pool shut down", zap.Int("dropped", len(drained)))
}

// AwaitTermination implements WorkerPool interface
func (wp *defaultWorkerPool) AwaitTermination(ctx context.Context) error {
	select {
	case <-wp.terminated:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("await termination: %w", ctx.Err())
	}
}

// Stop implements WorkerPool interface
func (wp *defaultWorkerPool) Stop(ctx context.Context) error {
	wp.Shutdown()
	return wp.AwaitTermination(ctx)
}

// Workers implements WorkerPool interface
func (wp *defaultWorkerPool) Workers() int {
	return wp.workers
}

// IsShutdown implements WorkerPool interface
func (wp *defaultWorkerPool) IsShutdown() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.shutdown
}

// Stats implements WorkerPool interface
func (wp *defaultWorkerPool) Stats() PoolStats {
	return PoolStats{
		Name:           wp.name,
		Workers:        wp.workers,
		AliveWorkers:   int(atomic.LoadInt32(&wp.alive)),
		ActiveTasks:    int(atomic.LoadInt32(&wp.active)),
		QueuedTasks:    wp.queue.Len(),
		SubmittedTasks: atomic.LoadInt64(&wp.submitted),
		CompletedTasks: atomic.LoadInt64(&wp.completed),
		FailedTasks:    atomic.LoadInt64(&wp.failed),
		RejectedTasks:  atomic.LoadInt64(&wp.rejected),
	}
}
