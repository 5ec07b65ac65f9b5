package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fluxorio/lightpool/pkg/core/concurrency"
)

type benchOptions struct {
	tasks    int
	chain    int
	failEach int
}

// benchResult summarizes one bench run
type benchResult struct {
	Sum     int64
	Passed  int64
	Failed  int64
	Elapsed time.Duration
	Stats   concurrency.PoolStats
}

func newBenchCommand(g *globalFlags) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Submit many small tasks and report throughput",
		Long: `
Submits --tasks independent computations, optionally extends each one with
--chain ThenApply steps, waits for every result concurrently and prints the
sum, pass/fail counts, elapsed time and pool counters.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := startSession(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			res, runErr := runBench(cmd.Context(), s.pool, *opts)

			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.close(stopCtx); err != nil {
				s.logger.Warn("shutdown incomplete", zap.Error(err))
			}
			if runErr != nil {
				return runErr
			}
			res.Stats = s.pool.Stats()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tasks=%d chain=%d passed=%d failed=%d sum=%d elapsed=%s\n",
				opts.tasks, opts.chain, res.Passed, res.Failed, res.Sum, res.Elapsed)
			printStats(out, res.Stats)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.tasks, "tasks", "n", 1000, "number of tasks to submit")
	flags.IntVar(&opts.chain, "chain", 0, "ThenApply steps appended to every task")
	flags.IntVar(&opts.failEach, "fail-every", 0, "make every Nth task fail (0 disables)")
	return cmd
}

// runBench submits opts.tasks computations returning their index, each
// followed by opts.chain increments, and gathers every result.
func runBench(ctx context.Context, pool concurrency.WorkerPool, opts benchOptions) (benchResult, error) {
	if opts.tasks < 0 || opts.chain < 0 {
		return benchResult{}, fmt.Errorf("tasks and chain must not be negative")
	}

	start := time.Now()
	futures := make([]*concurrency.Future[int], 0, opts.tasks)

	for i := 0; i < opts.tasks; i++ {
		f, err := concurrency.Submit(pool, func() (int, error) {
			if opts.failEach > 0 && (i+1)%opts.failEach == 0 {
				return 0, fmt.Errorf("task %d: synthetic failure", i)
			}
			return i, nil
		})
		if err != nil {
			return benchResult{}, fmt.Errorf("submit task %d: %w", i, err)
		}
		for c := 0; c < opts.chain; c++ {
			f = concurrency.ThenApplyValue(f, func(n int) int { return n + 1 })
		}
		futures = append(futures, f)
	}

	var res benchResult
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pool.Workers())
	for _, f := range futures {
		g.Go(func() error {
			v, err := f.Get(gctx)
			var execErr *concurrency.ExecutionError
			switch {
			case err == nil:
				atomic.AddInt64(&res.Passed, 1)
				atomic.AddInt64(&res.Sum, int64(v))
				return nil
			case errors.As(err, &execErr):
				atomic.AddInt64(&res.Failed, 1)
				return nil
			default:
				return err
			}
		})
	}
	if err := g.Wait(); err != nil {
		return benchResult{}, err
	}

	res.Elapsed = time.Since(start)
	return res, nil
}
