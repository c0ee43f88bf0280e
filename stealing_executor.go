package taskgroup

import (
	"github.com/taskgroup/go-task-group/core"
)

// StealingExecutor is a core.Executor backed by a WorkStealingPool.
//
// The work-stealing backend pairs well with the core's in-order awaiting:
// workers that complete their initial tasks steal the not-yet-started
// tail of the batch, shrinking the odds of the invoker blocking long on
// the last handles.
type StealingExecutor struct {
	*core.GroupCore
	pool *WorkStealingPool
}

var _ core.Executor = (*StealingExecutor)(nil)

// NewStealingExecutor creates a StealingExecutor with default options.
// The calling goroutine becomes the invoker, the only goroutine allowed
// to submit batches or shut the executor down.
func NewStealingExecutor() (*StealingExecutor, error) {
	return NewStealingExecutorWithOptions(DefaultOptions())
}

// NewStealingExecutorWithOptions creates a StealingExecutor configured by
// opts. The calling goroutine becomes the invoker.
func NewStealingExecutorWithOptions(opts Options) (*StealingExecutor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	pool := NewWorkStealingPool(opts.Name, opts)
	groupCore, err := core.NewGroupCore(opts.Name, pool, &core.CoreConfig{
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		pool.Shutdown()
		return nil, err
	}

	return &StealingExecutor{GroupCore: groupCore, pool: pool}, nil
}

// IsThreadSafe reports whether the calling goroutine may access task-local
// state: it is the invoker, or it is a worker of this executor's own pool
// while a batch is in flight. A worker running outside any batch, or one
// belonging to a different executor, does not qualify.
func (e *StealingExecutor) IsThreadSafe() bool {
	gid := core.CurrentGoroutineID()
	if gid == e.Invoker() {
		return true
	}
	return e.pool.OwnsGoroutine(gid) && e.IsSuspended()
}

// Pool returns the underlying work-stealing pool, e.g. for stats polling.
func (e *StealingExecutor) Pool() *WorkStealingPool {
	return e.pool
}
