package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fluxorio/lightpool/pkg/core/concurrency"
)

func startPool(t *testing.T, workers int) concurrency.WorkerPool {
	t.Helper()

	pool, err := concurrency.NewWorkerPool(context.Background(),
		concurrency.WorkerPoolConfig{Workers: workers, Name: "cli"},
		concurrency.WithLogger(nil))
	if err != nil {
		t.Fatalf("NewWorkerPool() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pool.Stop(ctx)
	})
	return pool
}

func TestRunBench(t *testing.T) {
	tests := []struct {
		name       string
		opts       benchOptions
		wantSum    int64
		wantPassed int64
		wantFailed int64
	}{
		{"plain", benchOptions{tasks: 100}, 4950, 100, 0},
		{"chained", benchOptions{tasks: 10, chain: 3}, 45 + 30, 10, 0},
		// Tasks 4 and 9 fail; their chains fail with them.
		{"failures", benchOptions{tasks: 10, chain: 2, failEach: 5}, 45 - 4 - 9 + 16, 8, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := startPool(t, 4)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			res, err := runBench(ctx, pool, tt.opts)
			if err != nil {
				t.Fatalf("runBench() error = %v", err)
			}
			if res.Sum != tt.wantSum {
				t.Errorf("Sum = %d, want %d", res.Sum, tt.wantSum)
			}
			if res.Passed != tt.wantPassed {
				t.Errorf("Passed = %d, want %d", res.Passed, tt.wantPassed)
			}
			if res.Failed != tt.wantFailed {
				t.Errorf("Failed = %d, want %d", res.Failed, tt.wantFailed)
			}
		})
	}
}

func TestRunBench_AfterShutdown(t *testing.T) {
	pool := startPool(t, 1)
	pool.Shutdown()

	_, err := runBench(context.Background(), pool, benchOptions{tasks: 1})
	if !errors.Is(err, concurrency.ErrRejected) {
		t.Errorf("runBench() error = %v, want ErrRejected", err)
	}
}

func TestRunChain(t *testing.T) {
	pool := startPool(t, 2)

	stages, err := runChain(context.Background(), pool, chainOptions{value: 3, depth: 4, failAt: 2})
	if err != nil {
		t.Fatalf("runChain() error = %v", err)
	}
	if len(stages) != 5 {
		t.Fatalf("len(stages) = %d, want 5", len(stages))
	}

	if stages[1].Err != nil || stages[1].Value != 6 {
		t.Errorf("stage 1 = (%d, %v), want (6, nil)", stages[1].Value, stages[1].Err)
	}

	var first *concurrency.ExecutionError
	if !errors.As(stages[2].Err, &first) {
		t.Fatalf("stage 2 error = %v, want *ExecutionError", stages[2].Err)
	}
	for _, s := range stages[3:] {
		var execErr *concurrency.ExecutionError
		if !errors.As(s.Err, &execErr) {
			t.Fatalf("stage %d error = %v, want *ExecutionError", s.Stage, s.Err)
		}
		if execErr.Cause != first.Cause {
			t.Errorf("stage %d cause = %v, want %v", s.Stage, execErr.Cause, first.Cause)
		}
		if s.Calls != 0 {
			t.Errorf("stage %d calls = %d, want 0", s.Stage, s.Calls)
		}
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func TestBenchCommand(t *testing.T) {
	out, _, err := execute(t, "bench", "--workers", "3", "--tasks", "20", "--chain", "1")
	if err != nil {
		t.Fatalf("bench error = %v", err)
	}

	// sum(0..19) + 20 increments
	if !strings.Contains(out, "sum=210") {
		t.Errorf("output missing sum=210:\n%s", out)
	}
	if !strings.Contains(out, "workers=3 submitted=40 completed=40 failed=0 rejected=0") {
		t.Errorf("output missing pool stats:\n%s", out)
	}
}

func TestBenchCommand_Trace(t *testing.T) {
	_, errOut, err := execute(t, "bench", "--workers", "1", "--tasks", "2", "--trace")
	if err != nil {
		t.Fatalf("bench error = %v", err)
	}
	if !strings.Contains(errOut, "lightpool.task") {
		t.Errorf("stderr has no task span:\n%s", errOut)
	}
}

func TestBenchCommand_InvalidWorkers(t *testing.T) {
	_, _, err := execute(t, "bench", "--workers", "0")
	if err == nil || !strings.Contains(err.Error(), "pool.workers") {
		t.Errorf("bench error = %v, want pool.workers validation error", err)
	}
}

func TestChainCommand(t *testing.T) {
	out, _, err := execute(t, "chain", "--value", "1", "--depth", "3", "--fail-at", "2")
	if err != nil {
		t.Fatalf("chain error = %v", err)
	}

	want := []string{
		"stage 0: 1 calls=1",
		"stage 1: 2 calls=1",
		"stage 2: failed (step 2 refused 2) calls=1",
		"stage 3: failed (step 2 refused 2) calls=0",
	}
	for _, line := range want {
		if !strings.Contains(out, line) {
			t.Errorf("output missing %q:\n%s", line, out)
		}
	}
}
