package taskgroup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/taskgroup/go-task-group/core"
)

func newTestExecutor(t *testing.T, opts Options) *StealingExecutor {
	t.Helper()
	executor, err := NewStealingExecutorWithOptions(opts)
	if err != nil {
		t.Fatalf("NewStealingExecutorWithOptions failed: %v", err)
	}
	return executor
}

func testOptions(parallelism int) Options {
	opts := DefaultOptions()
	opts.Parallelism = parallelism
	return opts
}

func TestStealingExecutorState(t *testing.T) {
	executor := newTestExecutor(t, testOptions(2))

	// Invoker goroutine operations are considered thread-safe.
	if !executor.IsThreadSafe() {
		t.Error("invoker not thread-safe while idle")
	}
	if executor.IsShutdown() {
		t.Error("fresh executor reports shut down")
	}
	if executor.IsSuspended() {
		t.Error("fresh executor reports suspended")
	}
	if executor.Invoker() != core.CurrentGoroutineID() {
		t.Error("invoker is not the constructing goroutine")
	}

	if err := executor.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !executor.IsShutdown() {
		t.Error("IsShutdown() = false after Shutdown")
	}
}

func TestSingleComputation(t *testing.T) {
	executor := newTestExecutor(t, testOptions(2))
	defer executor.Shutdown()

	invoker := core.CurrentGoroutineID()

	results, err := ComputeAll(context.Background(), executor, []Callable[string]{
		func(ctx context.Context) (string, error) {
			// We are running on an executor worker.
			if core.CurrentGoroutineID() == invoker {
				t.Error("task ran on the invoker goroutine")
			}
			if !executor.IsThreadSafe() {
				t.Error("worker not thread-safe mid-batch")
			}
			if executor.IsShutdown() {
				t.Error("executor reports shut down mid-batch")
			}
			worker, ok := CurrentWorker(ctx)
			if !ok {
				t.Error("task context carries no worker identity")
			} else if worker.Name == "" {
				t.Error("worker has no name")
			}
			return "red", nil
		},
	})
	if err != nil {
		t.Fatalf("ComputeAll failed: %v", err)
	}
	if len(results) != 1 || results[0] != "red" {
		t.Fatalf("results = %v, want [red]", results)
	}
}

func TestComputeAllOrderedResults(t *testing.T) {
	executor := newTestExecutor(t, testOptions(3))
	defer executor.Shutdown()

	// Stagger completion so "blue" finishes first and "red" last.
	redGate := make(chan struct{})
	greenGate := make(chan struct{})

	results, err := ComputeAll(context.Background(), executor, []Callable[string]{
		func(ctx context.Context) (string, error) {
			<-redGate
			return "red", nil
		},
		func(ctx context.Context) (string, error) {
			<-greenGate
			defer close(redGate)
			return "green", nil
		},
		func(ctx context.Context) (string, error) {
			defer close(greenGate)
			return "blue", nil
		},
	})
	if err != nil {
		t.Fatalf("ComputeAll failed: %v", err)
	}

	want := []string{"red", "green", "blue"}
	for i, color := range want {
		if results[i] != color {
			t.Errorf("results[%d] = %q, want %q", i, results[i], color)
		}
	}
}

func TestInvokeAllBlocksUntilAllComplete(t *testing.T) {
	executor := newTestExecutor(t, testOptions(2))
	defer executor.Shutdown()

	var counter atomic.Int32
	tasks := make([]Action, 3)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			counter.Add(1)
			return nil
		}
	}

	if err := InvokeAll(context.Background(), executor, tasks); err != nil {
		t.Fatalf("InvokeAll failed: %v", err)
	}
	// The invoker blocks until all tasks complete, so the counter must
	// have reached three by now.
	if got := counter.Load(); got != 3 {
		t.Fatalf("counter = %d, want 3", got)
	}
}

func TestExternalSubmissionFails(t *testing.T) {
	executor := newTestExecutor(t, testOptions(2))
	defer executor.Shutdown()

	var ran atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		// These tasks should never run.
		errCh <- InvokeAll(context.Background(), executor, []Action{
			func(ctx context.Context) error { ran.Store(true); return nil },
			func(ctx context.Context) error { ran.Store(true); return nil },
		})
	}()

	if err := <-errCh; !errors.Is(err, ErrNotInvoker) {
		t.Fatalf("error = %v, want %v", err, ErrNotInvoker)
	}
	if ran.Load() {
		t.Error("task ran despite invoker mismatch")
	}
}

func TestExternalShutdownFails(t *testing.T) {
	executor := newTestExecutor(t, testOptions(2))
	defer executor.Shutdown()

	errCh := make(chan error, 1)
	go func() {
		errCh <- executor.Shutdown()
	}()

	if err := <-errCh; !errors.Is(err, ErrNotInvoker) {
		t.Fatalf("error = %v, want %v", err, ErrNotInvoker)
	}
}

func TestOptionsAppliedToWorkers(t *testing.T) {
	priority := 3
	opts := DefaultOptions()
	opts.Parallelism = 2
	opts.WorkerNameTemplate = "foo"
	opts.WorkerPriority = &priority

	executor := newTestExecutor(t, opts)
	defer executor.Shutdown()

	err := InvokeAll(context.Background(), executor, []Action{
		func(ctx context.Context) error {
			worker, ok := CurrentWorker(ctx)
			if !ok {
				t.Error("task context carries no worker identity")
				return nil
			}
			if len(worker.Name) < 3 || worker.Name[:3] != "foo" {
				t.Errorf("worker name %q does not start with foo", worker.Name)
			}
			if worker.Priority != 3 {
				t.Errorf("worker priority = %d, want 3", worker.Priority)
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("InvokeAll failed: %v", err)
	}

	workers := executor.Pool().Workers()
	if len(workers) != 2 {
		t.Fatalf("got %d workers, want 2", len(workers))
	}
	for i, worker := range workers {
		if worker.Name[:3] != "foo" {
			t.Errorf("worker %d name %q does not start with foo", i, worker.Name)
		}
		if worker.Priority != 3 {
			t.Errorf("worker %d priority = %d, want 3", i, worker.Priority)
		}
	}
}

func TestShutdownRejectsSubsequentBatches(t *testing.T) {
	executor := newTestExecutor(t, testOptions(2))

	if err := executor.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	var ran atomic.Bool
	err := InvokeAll(context.Background(), executor, []Action{
		func(ctx context.Context) error { ran.Store(true); return nil },
	})
	if !errors.Is(err, ErrPoolShutdown) {
		t.Fatalf("error = %v, want %v", err, ErrPoolShutdown)
	}
	if ran.Load() {
		t.Error("task ran after shutdown")
	}
}

func TestTaskPanicSurfacesAsBatchFailure(t *testing.T) {
	executor := newTestExecutor(t, testOptions(2))
	defer executor.Shutdown()

	err := InvokeAll(context.Background(), executor, []Action{
		func(ctx context.Context) error {
			panic("kaboom")
		},
	})
	if err == nil {
		t.Fatal("expected panic to surface as an error")
	}
	var panicErr *core.PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("error %v does not wrap a *core.PanicError", err)
	}
	if panicErr.Value != "kaboom" {
		t.Errorf("panic value = %v, want kaboom", panicErr.Value)
	}

	// The worker that hosted the panic must still be alive.
	var counter atomic.Int32
	if err := InvokeAll(context.Background(), executor, []Action{
		func(ctx context.Context) error { counter.Add(1); return nil },
		func(ctx context.Context) error { counter.Add(1); return nil },
	}); err != nil {
		t.Fatalf("follow-up batch failed: %v", err)
	}
	if counter.Load() != 2 {
		t.Fatalf("follow-up counter = %d, want 2", counter.Load())
	}
}

func TestTaskFailureDiscardsSiblingResults(t *testing.T) {
	executor := newTestExecutor(t, testOptions(3))
	defer executor.Shutdown()

	errBoom := errors.New("boom")
	var othersRan atomic.Int32

	results, err := ComputeAll(context.Background(), executor, []Callable[string]{
		func(ctx context.Context) (string, error) {
			othersRan.Add(1)
			return "red", nil
		},
		func(ctx context.Context) (string, error) {
			return "", errBoom
		},
		func(ctx context.Context) (string, error) {
			othersRan.Add(1)
			return "blue", nil
		},
	})
	if results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("error = %v, want wrapped %v", err, errBoom)
	}
}

func TestWorkerThreadSafetyScopedToOwnExecutor(t *testing.T) {
	own := newTestExecutor(t, testOptions(1))
	defer own.Shutdown()

	// A second executor, suspended on its own invoker goroutine, to probe
	// cross-group membership.
	foreignCh := make(chan *StealingExecutor)
	foreignStarted := make(chan struct{})
	releaseForeign := make(chan struct{})
	foreignDone := make(chan error)

	go func() {
		foreign, err := NewStealingExecutorWithOptions(testOptions(1))
		if err != nil {
			foreignCh <- nil
			foreignDone <- err
			return
		}
		foreignCh <- foreign
		err = InvokeAll(context.Background(), foreign, []Action{
			func(ctx context.Context) error {
				close(foreignStarted)
				<-releaseForeign
				return nil
			},
		})
		foreign.Shutdown()
		foreignDone <- err
	}()

	foreign := <-foreignCh
	if foreign == nil {
		t.Fatalf("foreign executor construction failed: %v", <-foreignDone)
	}
	<-foreignStarted // foreign is now suspended

	var sawOwn, sawForeign bool
	err := InvokeAll(context.Background(), own, []Action{
		func(ctx context.Context) error {
			sawOwn = own.IsThreadSafe()
			sawForeign = foreign.IsThreadSafe()
			return nil
		},
	})
	close(releaseForeign)
	if err != nil {
		t.Fatalf("InvokeAll failed: %v", err)
	}
	if ferr := <-foreignDone; ferr != nil {
		t.Fatalf("foreign batch failed: %v", ferr)
	}

	if !sawOwn {
		t.Error("worker not thread-safe for its own suspended executor")
	}
	if sawForeign {
		t.Error("worker thread-safe for a foreign suspended executor")
	}
}

func TestWorkerNotThreadSafeOutsideBatch(t *testing.T) {
	executor := newTestExecutor(t, testOptions(1))
	defer executor.Shutdown()

	// Run one batch so the worker goroutine exists and is registered.
	if err := InvokeAll(context.Background(), executor, []Action{
		func(ctx context.Context) error { return nil },
	}); err != nil {
		t.Fatalf("InvokeAll failed: %v", err)
	}

	// No batch in flight: an unrelated goroutine is never thread-safe.
	resultCh := make(chan bool, 1)
	go func() {
		resultCh <- executor.IsThreadSafe()
	}()
	if <-resultCh {
		t.Error("unrelated goroutine considered thread-safe")
	}
}

func TestSuspendedVisibleToPollingGoroutine(t *testing.T) {
	executor := newTestExecutor(t, testOptions(2))
	defer executor.Shutdown()

	started := make(chan struct{})
	release := make(chan struct{})
	observed := make(chan bool, 1)

	go func() {
		<-started
		observed <- executor.IsSuspended()
		close(release)
	}()

	if executor.IsSuspended() {
		t.Fatal("suspended before batch")
	}
	err := InvokeAll(context.Background(), executor, []Action{
		func(ctx context.Context) error {
			close(started)
			select {
			case <-release:
			case <-time.After(2 * time.Second):
				t.Error("poller never observed the batch")
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("InvokeAll failed: %v", err)
	}
	if !<-observed {
		t.Error("poller did not observe suspended state")
	}
	if executor.IsSuspended() {
		t.Error("suspended after batch")
	}
}

func TestConstructorValidatesOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Parallelism = 0
	if _, err := NewStealingExecutorWithOptions(opts); err == nil {
		t.Fatal("expected error for zero parallelism")
	}

	opts = DefaultOptions()
	opts.WorkerNameTemplate = ""
	if _, err := NewStealingExecutorWithOptions(opts); err == nil {
		t.Fatal("expected error for empty worker name template")
	}
}
