package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Executor runs batches of tasks considered safe to run beside each other
// while the invoker goroutine blocks until their completion.
//
// An Executor is designed for homogeneous tasks that access unshared,
// task-confined state. Synchronization is required to access state shared
// between tasks; failure to do so can result in data corruption. Attempting
// to acquire a lock held by the invoker from inside a task will always
// deadlock, because the invoker is blocked waiting on that same task.
//
// Batches can only be submitted from the invoker goroutine; ComputeAll and
// InvokeAll fail with ErrNotInvoker from anywhere else.
//
// Memory consistency effects: actions in the invoker goroutine prior to a
// batch call happen-before any actions taken by any task in that batch,
// which in turn happen-before the retrieval of their results.
type Executor interface {
	// Shutdown initiates an orderly shutdown of the underlying pool, after
	// which no new batches are accepted. Idempotent. Invoker-only.
	Shutdown() error

	// IsShutdown reports whether the executor has been shut down.
	// Callable from any goroutine.
	IsShutdown() bool

	// Invoker returns the goroutine ID of the only goroutine allowed to
	// submit batches to this executor.
	Invoker() uint64

	// IsSuspended reports whether a batch is currently in flight,
	// essentially blocking the invoker. Callable from any goroutine.
	IsSuspended() bool

	// IsThreadSafe reports whether the calling goroutine may access
	// task-local state right now.
	IsThreadSafe() bool

	// Name returns the executor's name, used in logs and metric labels.
	Name() string

	// Stats returns current observability data for this executor.
	Stats() ExecutorStats

	// RecentBatches returns completed batch records in newest-first order.
	RecentBatches(limit int) []BatchRecord

	// Batch protocol internals, provided by GroupCore and promoted into
	// concrete executors through embedding.
	beginBatch() error
	finishBatch(size int, start time.Time, batchErr error)
	submit(fn TaskFunc) (Future, error)
}

// CoreConfig holds the optional collaborators of a GroupCore.
// Nil fields fall back to NoOpLogger and NilMetrics.
type CoreConfig struct {
	Logger  Logger
	Metrics Metrics
}

// GroupCore provides the shared submission/await/cancel protocol for an
// Executor. Concrete strategies embed a *GroupCore over their pool and
// override IsThreadSafe with backend-specific worker identification.
//
// The goroutine that constructs a GroupCore becomes its invoker.
type GroupCore struct {
	name    string
	invoker uint64
	pool    Pool

	suspended atomic.Bool
	batches   atomic.Int64
	failures  atomic.Int64
	history   batchHistory

	logger  Logger
	metrics Metrics
}

// NewGroupCore creates the execution core for an executor named name over
// the given pool. The calling goroutine is recorded as the invoker; no
// other goroutine may submit batches or shut the executor down.
//
// Constructing over a pool that is already shut down is an error.
func NewGroupCore(name string, pool Pool, cfg *CoreConfig) (*GroupCore, error) {
	if pool == nil {
		return nil, errors.New("taskgroup: nil pool")
	}
	if pool.IsShutdown() {
		return nil, fmt.Errorf("taskgroup: cannot create executor: %w", ErrPoolShutdown)
	}
	if name == "" {
		name = "taskgroup"
	}

	c := &GroupCore{
		name:    name,
		invoker: CurrentGoroutineID(),
		pool:    pool,
		history: newBatchHistory(defaultBatchHistoryCapacity),
		logger:  &NoOpLogger{},
		metrics: &NilMetrics{},
	}
	if cfg != nil {
		if cfg.Logger != nil {
			c.logger = cfg.Logger
		}
		if cfg.Metrics != nil {
			c.metrics = cfg.Metrics
		}
	}
	return c, nil
}

func (c *GroupCore) ensureInvoker() error {
	if gid := CurrentGoroutineID(); gid != c.invoker {
		return fmt.Errorf("%w: called from goroutine %d, invoker is %d",
			ErrNotInvoker, gid, c.invoker)
	}
	return nil
}

// Shutdown forwards the shutdown transition to the pool. Invoker-only,
// idempotent. An in-flight batch is unaffected by this call itself; it
// only blocks future submissions.
func (c *GroupCore) Shutdown() error {
	if err := c.ensureInvoker(); err != nil {
		return err
	}
	c.pool.Shutdown()
	c.logger.Info("executor shut down", F("executor", c.name))
	return nil
}

// IsShutdown reports whether the underlying pool has been shut down.
func (c *GroupCore) IsShutdown() bool {
	return c.pool.IsShutdown()
}

// Invoker returns the invoker goroutine ID.
func (c *GroupCore) Invoker() uint64 {
	return c.invoker
}

// IsSuspended reports whether a batch is in flight. Atomic read.
func (c *GroupCore) IsSuspended() bool {
	return c.suspended.Load()
}

// IsThreadSafe reports whether the caller may access task-local state: the
// invoker qualifies whenever no batch is in flight. Strategies with worker
// identification override this to also admit their own workers mid-batch.
func (c *GroupCore) IsThreadSafe() bool {
	return CurrentGoroutineID() == c.invoker && !c.suspended.Load()
}

// Name returns the executor name.
func (c *GroupCore) Name() string {
	return c.name
}

// Stats returns current observability data for this executor.
func (c *GroupCore) Stats() ExecutorStats {
	stats := ExecutorStats{
		Name:      c.name,
		Invoker:   c.invoker,
		Suspended: c.suspended.Load(),
		Shutdown:  c.pool.IsShutdown(),
		Batches:   c.batches.Load(),
		Failures:  c.failures.Load(),
	}
	if last, ok := c.history.Last(); ok {
		stats.LastBatchSize = last.Size
		stats.LastBatchAt = last.FinishedAt
	}
	return stats
}

// RecentBatches returns completed batch records in newest-first order.
func (c *GroupCore) RecentBatches(limit int) []BatchRecord {
	return c.history.Recent(limit)
}

func (c *GroupCore) beginBatch() error {
	if err := c.ensureInvoker(); err != nil {
		return err
	}
	c.suspended.Store(true)
	return nil
}

func (c *GroupCore) finishBatch(size int, start time.Time, batchErr error) {
	c.suspended.Store(false)

	duration := time.Since(start)
	c.batches.Add(1)
	c.metrics.RecordBatchDuration(c.name, size, duration)

	record := BatchRecord{
		Size:       size,
		Duration:   duration,
		FinishedAt: time.Now(),
		Failed:     batchErr != nil,
	}
	if batchErr != nil {
		record.Err = batchErr.Error()
		c.failures.Add(1)
		if errors.Is(batchErr, ErrPoolShutdown) {
			c.metrics.RecordBatchRejected(c.name, "shutdown")
		} else {
			c.metrics.RecordTaskFailure(c.name)
		}
		c.logger.Error("batch failed",
			F("executor", c.name), F("size", size), F("error", batchErr))
	} else {
		c.logger.Debug("batch completed",
			F("executor", c.name), F("size", size), F("duration", duration))
	}
	c.history.Add(record)
}

func (c *GroupCore) submit(fn TaskFunc) (Future, error) {
	return c.pool.Submit(fn)
}

// =============================================================================
// Batch algorithm
// =============================================================================

// ComputeAll executes the given value-producing tasks on ex, blocking the
// invoker until all complete, and returns their results in the same order
// as the tasks slice regardless of completion order.
//
// Upon failure of any submission or task, every handle obtained so far is
// cancelled and the originating failure is returned; no partial result
// slice is ever returned. Cancelling ctx while awaiting counts as a batch
// failure and propagates ctx's error.
//
// ComputeAll must be called from the invoker goroutine and fails with
// ErrNotInvoker otherwise, before running any task.
func ComputeAll[T any](ctx context.Context, ex Executor, tasks []Callable[T]) ([]T, error) {
	erased := make([]TaskFunc, len(tasks))
	for i, task := range tasks {
		if task == nil {
			return nil, &TaskError{Index: i, Cause: ErrNilTask}
		}
		erased[i] = func(c context.Context) (any, error) {
			return task(c)
		}
	}

	results := make([]T, len(tasks))
	err := runBatch(ctx, ex, erased, func(i int, v any) {
		// Comma-ok: when T is an interface type a task may validly
		// produce a nil value, which arrives here as an untyped nil.
		results[i], _ = v.(T)
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// InvokeAll executes the given side-effecting tasks on ex, blocking the
// invoker until all complete. It shares ComputeAll's algorithm and
// all-or-nothing failure semantics, with a unit result type.
func InvokeAll(ctx context.Context, ex Executor, tasks []Action) error {
	erased := make([]TaskFunc, len(tasks))
	for i, task := range tasks {
		if task == nil {
			return &TaskError{Index: i, Cause: ErrNilTask}
		}
		erased[i] = func(c context.Context) (any, error) {
			return nil, task(c)
		}
	}
	return runBatch(ctx, ex, erased, func(int, any) {})
}

// runBatch is the shared batch protocol: mark suspended, submit in order,
// await strictly in submission order, cancel everything on any failure,
// clear the suspended mark on the way out.
func runBatch(ctx context.Context, ex Executor, tasks []TaskFunc, collect func(int, any)) (batchErr error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ex.beginBatch(); err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		ex.finishBatch(len(tasks), start, batchErr)
	}()

	futures := make([]Future, 0, len(tasks))

	for i, fn := range tasks {
		future, err := ex.submit(fn)
		if err != nil {
			// The pool refused mid-batch; abandon what was submitted.
			cancelAll(futures)
			batchErr = &TaskError{Index: i, Cause: err}
			return batchErr
		}
		futures = append(futures, future)
	}

	// Await in submission order, not completion order. Sequential waiting
	// bounds the invoker's wakeups at the batch size, with a best case of
	// one when the first handle happens to finish last; a completion-order
	// service would not improve the worst case and adds bookkeeping.
	for i, future := range futures {
		v, err := future.Await(ctx)
		if err != nil {
			cancelAll(futures)
			batchErr = &TaskError{Index: i, Cause: err}
			return batchErr
		}
		collect(i, v)
	}
	return nil
}

// cancelAll requests best-effort cancellation of every handle, including
// ones already awaited; Cancel on a completed handle is a no-op.
func cancelAll(futures []Future) {
	for _, future := range futures {
		future.Cancel(true)
	}
}
