// Package taskgroup provides a task-group executor: a single designated
// invoker goroutine fans a batch of independent, task-confined units of
// work out to a worker pool, blocks until every task completes, and
// collects results in submission order.
//
// It is built for programs that are otherwise single-threaded by design
// (e.g. a simulation loop) and want to parallelize one bounded unit of
// work per iteration while keeping the single-threaded illusion intact
// everywhere else.
//
// # Quick Start
//
//	executor, err := taskgroup.NewStealingExecutor()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer executor.Shutdown()
//
//	tasks := []taskgroup.Callable[string]{
//		func(ctx context.Context) (string, error) { return "red", nil },
//		func(ctx context.Context) (string, error) { return "green", nil },
//		func(ctx context.Context) (string, error) { return "blue", nil },
//	}
//
//	// Blocks until all three finish; results keep submission order.
//	colors, err := taskgroup.ComputeAll(ctx, executor, tasks)
//
// # Key Concepts
//
// Invoker: the goroutine that constructed the executor. It is the only
// goroutine allowed to call ComputeAll, InvokeAll, or Shutdown; every
// other goroutine gets ErrNotInvoker.
//
// Batch: one ComputeAll/InvokeAll call. A batch either fully succeeds and
// returns every result in task order, or fails as a whole: on the first
// task failure, panic, submission rejection, or context cancellation, all
// outstanding handles are cancelled and the originating error is returned.
// No partial results are ever delivered.
//
// IsThreadSafe: a runtime predicate telling the calling goroutine whether
// it may touch task-local state right now. True for the invoker, and for
// a worker of this executor's own pool while a batch is in flight.
//
// # Thread Safety
//
// Tasks in one batch must touch disjoint state. The executor guarantees
// that invoker writes before a batch are visible to every task, and task
// writes are visible to the invoker once the batch returns; it provides
// no synchronization between sibling tasks. Acquiring a lock held by the
// invoker from inside a task deadlocks by construction, because the
// invoker is blocked waiting for that task.
package taskgroup
