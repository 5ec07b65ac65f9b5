package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fluxorio/lightpool/pkg/core/concurrency"
)

type chainOptions struct {
	value  int
	depth  int
	failAt int
}

// stageResult is the outcome of one link in the chain. Stage 0 is the root task.
type stageResult struct {
	Stage int
	Value int
	Err   error
	Calls int
}

func newChainCommand(g *globalFlags) *cobra.Command {
	opts := &chainOptions{}

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Build a ThenApply chain and show how failures propagate",
		Long: `
Submits --value, then appends --depth steps that each double the previous
result. With --fail-at I, step I returns an error: every later step reports
the same cause and its function is never invoked.
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
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := s.close(stopCtx); err != nil {
					s.logger.Warn("shutdown incomplete", zap.Error(err))
				}
			}()

			stages, err := runChain(cmd.Context(), s.pool, *opts)
			if err != nil {
				return err
			}
			printStages(cmd.OutOrStdout(), stages)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.value, "value", 1, "value produced by the root task")
	flags.IntVar(&opts.depth, "depth", 5, "number of ThenApply steps")
	flags.IntVar(&opts.failAt, "fail-at", 0, "step (1-based) that fails; 0 disables")
	return cmd
}

func runChain(ctx context.Context, pool concurrency.WorkerPool, opts chainOptions) ([]stageResult, error) {
	if opts.depth < 0 {
		return nil, fmt.Errorf("depth must not be negative")
	}

	calls := make([]int, opts.depth+1)

	root, err := concurrency.SubmitValue(pool, func() int {
		calls[0]++
		return opts.value
	})
	if err != nil {
		return nil, fmt.Errorf("submit root: %w", err)
	}

	futures := []*concurrency.Future[int]{root}
	for stage := 1; stage <= opts.depth; stage++ {
		next := concurrency.ThenApply(futures[stage-1], func(n int) (int, error) {
			calls[stage]++
			if stage == opts.failAt {
				return 0, fmt.Errorf("step %d refused %d", stage, n)
			}
			return n * 2, nil
		})
		futures = append(futures, next)
	}

	results := make([]stageResult, 0, len(futures))
	for i, f := range futures {
		v, err := f.Get(ctx)
		if errors.Is(err, concurrency.ErrInterrupted) {
			return nil, err
		}
		results = append(results, stageResult{Stage: i, Value: v, Err: err})
	}
	// Every stage is resolved, so the counters are no longer written.
	for i := range results {
		results[i].Calls = calls[i]
	}
	return results, nil
}

func printStages(w io.Writer, stages []stageResult) {
	for _, s := range stages {
		if s.Err != nil {
			var execErr *concurrency.ExecutionError
			cause := s.Err
			if errors.As(s.Err, &execErr) {
				cause = execErr.Cause
			}
			fmt.Fprintf(w, "stage %d: failed (%v) calls=%d\n", s.Stage, cause, s.Calls)
			continue
		}
		fmt.Fprintf(w, "stage %d: %d calls=%d\n", s.Stage, s.Value, s.Calls)
	}
}
