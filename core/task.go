package core

import "context"

// Callable is a value-producing unit of work submitted as part of a batch.
// A Callable must not touch state reachable from its sibling tasks or from
// the invoker without external synchronization; this is a caller obligation
// the executor cannot verify. The ctx is cancelled when the batch fails and
// the task is asked to stop early.
type Callable[T any] func(ctx context.Context) (T, error)

// Action is the side-effect-only counterpart of Callable.
type Action func(ctx context.Context) error

// TaskFunc is the type-erased form of a task as handed to a Pool.
// ComputeAll and InvokeAll wrap Callable/Action values into TaskFuncs so a
// single batch algorithm (and a single cancellable handle shape) serves both.
type TaskFunc func(ctx context.Context) (any, error)

// WorkerInfo identifies a pool worker goroutine.
//
// Priority is the configured worker priority, or 0 when unset. Goroutines
// carry no OS-level priority, so the value is informational: it is recorded
// on the worker and visible to tasks and monitoring, nothing more.
type WorkerInfo struct {
	Name     string
	Priority int
	PoolID   string
}

// =============================================================================
// Context Helper
// =============================================================================

type workerKeyType struct{}

var workerKey workerKeyType

// WithWorker returns a context carrying the given worker identity. Pools call
// this before running a task so the task can identify its host worker.
func WithWorker(ctx context.Context, info WorkerInfo) context.Context {
	return context.WithValue(ctx, workerKey, info)
}

// CurrentWorker reports the worker executing the current task, if any.
// It returns false when the context does not belong to a pool worker.
func CurrentWorker(ctx context.Context) (WorkerInfo, bool) {
	if v := ctx.Value(workerKey); v != nil {
		return v.(WorkerInfo), true
	}
	return WorkerInfo{}, false
}
