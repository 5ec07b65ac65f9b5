package concurrency

import (
	"time"
)

// Metrics receives pool activity as it happens.
//
// Implementations must be safe for concurrent use and should not block:
// methods are called from Submit and from worker goroutines.
type Metrics interface {
	// IncSubmitted counts a task accepted into the queue
	IncSubmitted()

	// IncRejected counts tasks refused at Submit or dropped from the queue at shutdown
	IncRejected(n int)

	// TaskStarted is called when a worker claims a task
	TaskStarted()

	// TaskFinished is called when a claimed task resolves.
	// err is the computation's failure, nil on success.
	TaskFinished(elapsed time.Duration, err error)
}

// NoopMetrics discards every update
type NoopMetrics struct{}

func (NoopMetrics) IncSubmitted()                     {}
func (NoopMetrics) IncRejected(int)                   {}
func (NoopMetrics) TaskStarted()                      {}
func (NoopMetrics) TaskFinished(time.Duration, error) {}
