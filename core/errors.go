package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInvoker is returned when a submission or lifecycle operation is
	// called from a goroutine other than the executor's invoker.
	ErrNotInvoker = errors.New("taskgroup: operation requires the invoker goroutine")

	// ErrNilTask is returned when a batch contains a nil task.
	ErrNilTask = errors.New("taskgroup: nil task")

	// ErrPoolShutdown is returned when work is submitted to a pool that has
	// been shut down, or an executor is constructed over one.
	ErrPoolShutdown = errors.New("taskgroup: pool is shut down")

	// ErrTaskCancelled is reported by a handle whose task was cancelled
	// before it started running.
	ErrTaskCancelled = errors.New("taskgroup: task cancelled")
)

// TaskError wraps the failure of a single task with its position in the
// batch. The cause is reachable through errors.Is / errors.As.
type TaskError struct {
	Index int
	Cause error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("taskgroup: task %d: %v", e.Index, e.Cause)
}

func (e *TaskError) Unwrap() error {
	return e.Cause
}

// PanicError carries the recovered value of a task that panicked, so the
// batch failure surfaced to the invoker identifies the original cause.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("taskgroup: task panicked: %v", e.Value)
}
