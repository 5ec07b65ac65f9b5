package concurrency

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option customizes a WorkerPool at construction
type Option func(*defaultWorkerPool)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(wp *defaultWorkerPool) {
		if logger == nil {
			logger = zap.NewNop()
		}
		wp.logger = logger
	}
}

// WithMetrics installs a metrics sink
func WithMetrics(m Metrics) Option {
	return func(wp *defaultWorkerPool) {
		if m != nil {
			wp.metrics = m
		}
	}
}

// WithTracer sets the tracer used to open one span per executed task.
// Defaults to the global otel tracer provider, which is a no-op unless configured.
func WithTracer(tracer trace.Tracer) Option {
	return func(wp *defaultWorkerPool) {
		if tracer != nil {
			wp.tracer = tracer
		}
	}
}

// WithName overrides WorkerPoolConfig.Name in logs, spans and stats
func WithName(name string) Option {
	return func(wp *defaultWorkerPool) {
		if name != "" {
			wp.name = name
		}
	}
}
