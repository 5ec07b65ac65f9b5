package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fluxorio/lightpool/pkg/config"
	"github.com/fluxorio/lightpool/pkg/core/concurrency"
	lpprom "github.com/fluxorio/lightpool/pkg/observability/prometheus"
)

type globalFlags struct {
	configPath  string
	workers     int
	metricsAddr string
	trace       bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "lightpool",
		Short:         "Fixed-size worker pool with chainable futures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "YAML or JSON config file")
	flags.IntVarP(&g.workers, "workers", "w", 0, "number of workers (overrides config)")
	flags.StringVar(&g.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.BoolVar(&g.trace, "trace", false, "write one span per task to stderr")

	root.AddCommand(newBenchCommand(g), newChainCommand(g))
	return root
}

// loadConfig applies command-line flags on top of the file and environment
func (g *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("workers") {
		cfg.Pool.Workers = g.workers
	}
	if g.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = g.metricsAddr
	}
	if g.trace {
		cfg.Tracing.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session bundles a started pool with the telemetry around it
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	pool     concurrency.WorkerPool
	registry *prometheus.Registry
	closers  []func(context.Context) error
}

func newLogger(level string, out io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(out), lvl)
	return zap.New(core), nil
}

func startSession(ctx context.Context, cfg *config.Config, stderr io.Writer) (*session, error) {
	logger, err := newLogger(cfg.LogLevel, stderr)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(collectors.NewGoCollector())

	opts := []concurrency.Option{concurrency.WithLogger(logger)}

	if cfg.Tracing.Enabled {
		expOpts := []stdouttrace.Option{stdouttrace.WithWriter(stderr)}
		if cfg.Tracing.PrettyPrint {
			expOpts = append(expOpts, stdouttrace.WithPrettyPrint())
		}
		exporter, err := stdouttrace.New(expOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		opts = append(opts, concurrency.WithTracer(tp.Tracer("lightpool")))
		s.closers = append(s.closers, tp.Shutdown)
	}

	metrics := lpprom.NewPoolMetrics(s.registry, cfg.Pool.Name)
	opts = append(opts, concurrency.WithMetrics(metrics))

	pool, err := concurrency.NewWorkerPool(ctx, cfg.WorkerPoolConfig(), opts...)
	if err != nil {
		s.close(context.Background())
		return nil, err
	}
	s.pool = pool
	metrics.ObservePool(pool)

	if cfg.Metrics.Enabled {
		srv := lpprom.NewMetricsServer(s.registry, cfg.Metrics.Path)
		go func() {
			if err := srv.ListenAndServe(cfg.Metrics.Addr); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		logger.Info("serving metrics",
			zap.String("addr", cfg.Metrics.Addr),
			zap.String("path", cfg.Metrics.Path))
		s.closers = append(s.closers, srv.ShutdownWithContext)
	}

	return s, nil
}

// close stops the pool first so in-flight spans and counters land before
// the exporters go away.
func (s *session) close(ctx context.Context) error {
	var err error
	if s.pool != nil {
		err = multierr.Append(err, s.pool.Stop(ctx))
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.closers[i](ctx))
	}
	_ = s.logger.Sync()
	return err
}

func printStats(w io.Writer, s concurrency.PoolStats) {
	fmt.Fprintf(w, "pool %s: workers=%d submitted=%d completed=%d failed=%d rejected=%d\n",
		s.Name, s.Workers, s.SubmittedTasks, s.CompletedTasks, s.FailedTasks, s.RejectedTasks)
}
