package taskgroup

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/taskgroup/go-task-group/core"
)

const (
	taskPending int32 = iota
	taskRunning
	taskDone
	taskCancelled
)

// pendingTask is the pool's Future implementation: one submitted task and
// its eventual outcome. State moves pending -> running -> done, or pending
// -> cancelled if a cancel request wins the race to start.
type pendingTask struct {
	fn    core.TaskFunc
	state atomic.Int32
	done  chan struct{}

	// Written before done is closed, read only after.
	result any
	err    error

	cancelMu  sync.Mutex
	cancelRun context.CancelFunc
}

var _ core.Future = (*pendingTask)(nil)

func newPendingTask(fn core.TaskFunc) *pendingTask {
	return &pendingTask{
		fn:   fn,
		done: make(chan struct{}),
	}
}

// run executes the task on the calling worker goroutine. A task that was
// cancelled before starting is skipped. Panics are recovered and surface
// as a PanicError so one bad task cannot take its worker down.
func (t *pendingTask) run(ctx context.Context) {
	if !t.state.CompareAndSwap(taskPending, taskRunning) {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancelMu.Lock()
	t.cancelRun = cancel
	t.cancelMu.Unlock()
	defer cancel()

	var (
		result any
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &core.PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		result, err = t.fn(runCtx)
	}()

	t.result = result
	t.err = err
	t.state.Store(taskDone)
	close(t.done)
}

// Await blocks until the task completes or ctx is done, whichever first.
func (t *pendingTask) Await(ctx context.Context) (any, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel prevents a not-yet-started task from running. For a running task
// it cancels the task's context when interrupt is true; the task decides
// whether to honor it. No-op on a completed handle.
func (t *pendingTask) Cancel(interrupt bool) {
	if t.state.CompareAndSwap(taskPending, taskCancelled) {
		t.err = core.ErrTaskCancelled
		close(t.done)
		return
	}
	if interrupt && t.state.Load() == taskRunning {
		t.cancelMu.Lock()
		if t.cancelRun != nil {
			t.cancelRun()
		}
		t.cancelMu.Unlock()
	}
}
