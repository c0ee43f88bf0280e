package taskgroup

import (
	"context"

	"github.com/taskgroup/go-task-group/core"
)

// Re-export commonly used types from the core package for convenience.
// This allows users to import only the taskgroup package for most use cases.

// Callable is a value-producing unit of work
type Callable[T any] = core.Callable[T]

// Action is a side-effect-only unit of work
type Action = core.Action

// Executor is the task-group contract implemented by every backend
type Executor = core.Executor

// WorkerInfo identifies a pool worker goroutine
type WorkerInfo = core.WorkerInfo

// Logger is the structured logging contract
type Logger = core.Logger

// Field is a structured logging key-value pair
type Field = core.Field

// Metrics is the batch/pool measurement contract
type Metrics = core.Metrics

// Sentinel errors surfaced by batch operations
var (
	ErrNotInvoker    = core.ErrNotInvoker
	ErrNilTask       = core.ErrNilTask
	ErrPoolShutdown  = core.ErrPoolShutdown
	ErrTaskCancelled = core.ErrTaskCancelled
)

// F creates a structured logging Field
var F = core.F

// CurrentWorker reports the worker executing the current task, if any
var CurrentWorker = core.CurrentWorker

// ComputeAll executes value-producing tasks on ex and returns their
// results in submission order. See core.ComputeAll.
func ComputeAll[T any](ctx context.Context, ex Executor, tasks []Callable[T]) ([]T, error) {
	return core.ComputeAll(ctx, ex, tasks)
}

// InvokeAll executes side-effecting tasks on ex, blocking until all
// complete. See core.InvokeAll.
func InvokeAll(ctx context.Context, ex Executor, tasks []Action) error {
	return core.InvokeAll(ctx, ex, tasks)
}
