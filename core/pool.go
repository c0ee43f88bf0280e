package core

import "context"

// =============================================================================
// Pool: the worker-pool collaborator consumed by the execution core
// =============================================================================

// Pool is the capability an executor needs from a worker-pool backend.
// The execution core only submits work, forwards shutdown, and queries the
// shutdown state; everything else (worker management, queueing, stealing)
// is the backend's business.
type Pool interface {
	// Submit schedules fn for asynchronous execution and returns a handle
	// to its eventual outcome. Returns ErrPoolShutdown (possibly wrapped)
	// if the pool no longer accepts work.
	Submit(fn TaskFunc) (Future, error)

	// Shutdown transitions the pool to a non-accepting state. The
	// transition is one-way and idempotent. Tasks already running are
	// allowed to finish.
	Shutdown()

	// IsShutdown reports whether Shutdown has been called.
	IsShutdown() bool
}

// Future is the pending handle for one submitted task. Handles are owned
// exclusively by the batch algorithm for the duration of a batch and are
// never exposed to callers.
type Future interface {
	// Await blocks until the task completes and returns its result, or
	// returns ctx.Err() if ctx is done first. Retrieving the result
	// establishes a happens-before edge from the task to the caller.
	Await(ctx context.Context) (any, error)

	// Cancel requests cancellation. A task that has not started will never
	// run; a running task has its context cancelled when interrupt is
	// true, and otherwise runs to completion with its result discarded by
	// the batch. Best-effort in all cases.
	Cancel(interrupt bool)
}
