package taskgroup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/taskgroup/go-task-group/core"
)

// WorkStealingPool executes submitted tasks on a fixed set of worker
// goroutines. External submissions are spread round-robin across per-worker
// deques; a worker drains its own deque front-first and, when empty, steals
// from the tail of the busiest sibling's deque. This keeps the last unstarted tasks
// of a batch on whichever workers go idle first, which is exactly what the
// in-order awaiting invoker wants.
//
// Workers are named from the configured template plus a counter starting
// at 1, and record the configured priority. Each worker registers its
// goroutine ID so an executor can check membership via OwnsGoroutine.
type WorkStealingPool struct {
	id       string
	template string
	priority int

	workers []*stealingWorker
	signal  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	gidMu sync.RWMutex
	gids  map[uint64]*stealingWorker

	nameCounter atomic.Int64
	submitSeq   atomic.Uint64
	stolen      atomic.Int64

	logger  core.Logger
	metrics core.Metrics
}

var _ core.Pool = (*WorkStealingPool)(nil)

type stealingWorker struct {
	index int
	info  core.WorkerInfo
	deque workerDeque
}

// NewWorkStealingPool creates a pool sized to opts.Parallelism and starts
// its workers immediately. The caller is expected to have validated opts.
func NewWorkStealingPool(id string, opts Options) *WorkStealingPool {
	if id == "" {
		id = "stealing"
	}

	p := &WorkStealingPool{
		id:       id,
		template: opts.WorkerNameTemplate,
		signal:   make(chan struct{}, opts.Parallelism*2),
		gids:     make(map[uint64]*stealingWorker),
		logger:   opts.logger(),
		metrics:  opts.metrics(),
	}
	if opts.WorkerPriority != nil {
		p.priority = *opts.WorkerPriority
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.workers = make([]*stealingWorker, opts.Parallelism)
	for i := range p.workers {
		w := &stealingWorker{
			index: i,
			info: core.WorkerInfo{
				Name:     p.nextWorkerName(),
				Priority: p.priority,
				PoolID:   p.id,
			},
		}
		p.workers[i] = w
		p.wg.Add(1)
		go p.runWorker(w)
	}

	p.logger.Info("work-stealing pool started",
		core.F("pool", p.id), core.F("workers", len(p.workers)))
	return p
}

func (p *WorkStealingPool) nextWorkerName() string {
	return fmt.Sprintf("%s #%d", p.template, p.nameCounter.Add(1))
}

// Submit schedules fn on one of the worker deques. Rejected with
// ErrPoolShutdown once Shutdown has been called.
func (p *WorkStealingPool) Submit(fn core.TaskFunc) (core.Future, error) {
	if fn == nil {
		return nil, core.ErrNilTask
	}
	if p.closed.Load() {
		return nil, core.ErrPoolShutdown
	}

	task := newPendingTask(fn)
	idx := int(p.submitSeq.Add(1)-1) % len(p.workers)
	p.workers[idx].deque.push(task)

	// Re-check after the push: Shutdown may have raced in, and a worker
	// that already drained its deque would never see this task. The push
	// and drainWorker serialize on the deque mutex, so a task the drain
	// missed is guaranteed to observe closed here.
	if p.closed.Load() {
		task.Cancel(false)
		return nil, core.ErrPoolShutdown
	}

	select {
	case p.signal <- struct{}{}:
	default:
		// Signal channel full; busy workers re-check the deques anyway.
	}
	return task, nil
}

// Shutdown stops accepting work and asks idle workers to exit. Running
// tasks finish; tasks still queued when the workers drain out are
// cancelled. One-way and idempotent.
func (p *WorkStealingPool) Shutdown() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cancel()
	p.logger.Info("work-stealing pool shut down", core.F("pool", p.id))
}

// IsShutdown reports whether Shutdown has been called.
func (p *WorkStealingPool) IsShutdown() bool {
	return p.closed.Load()
}

// Join blocks until every worker goroutine has exited.
func (p *WorkStealingPool) Join() {
	p.wg.Wait()
}

// ID returns the pool identifier.
func (p *WorkStealingPool) ID() string {
	return p.id
}

// WorkerCount returns the number of workers.
func (p *WorkStealingPool) WorkerCount() int {
	return len(p.workers)
}

// Workers returns the identity of every worker in spawn order.
func (p *WorkStealingPool) Workers() []core.WorkerInfo {
	infos := make([]core.WorkerInfo, len(p.workers))
	for i, w := range p.workers {
		infos[i] = w.info
	}
	return infos
}

// OwnsGoroutine reports whether gid belongs to one of this pool's workers.
func (p *WorkStealingPool) OwnsGoroutine(gid uint64) bool {
	p.gidMu.RLock()
	defer p.gidMu.RUnlock()
	_, ok := p.gids[gid]
	return ok
}

// QueuedTaskCount returns the number of tasks waiting across all deques.
func (p *WorkStealingPool) QueuedTaskCount() int {
	total := 0
	for _, w := range p.workers {
		total += w.deque.len()
	}
	return total
}

// StolenTaskCount returns how many tasks have been stolen so far.
func (p *WorkStealingPool) StolenTaskCount() int64 {
	return p.stolen.Load()
}

// Stats returns current observability data for this pool.
func (p *WorkStealingPool) Stats() core.PoolStats {
	return core.PoolStats{
		ID:       p.id,
		Workers:  len(p.workers),
		Queued:   p.QueuedTaskCount(),
		Stolen:   p.stolen.Load(),
		Shutdown: p.closed.Load(),
	}
}

// runWorker is the main loop of one worker goroutine.
func (p *WorkStealingPool) runWorker(w *stealingWorker) {
	defer p.wg.Done()

	gid := core.CurrentGoroutineID()
	p.gidMu.Lock()
	p.gids[gid] = w
	p.gidMu.Unlock()

	p.logger.Debug("worker started",
		core.F("pool", p.id), core.F("worker", w.info.Name), core.F("gid", gid))

	taskCtx := core.WithWorker(p.ctx, w.info)
	for {
		task, stolen := p.nextTask(w)
		if task == nil {
			select {
			case <-p.ctx.Done():
				p.drainWorker(w)
				return
			case <-p.signal:
				continue
			}
		}
		if stolen {
			p.stolen.Add(1)
			p.metrics.RecordSteal(p.id)
		}
		task.run(taskCtx)
	}
}

// nextTask pops from the worker's own deque, then tries to steal from the
// tail of the busiest sibling's deque. The second return reports a steal.
func (p *WorkStealingPool) nextTask(w *stealingWorker) (*pendingTask, bool) {
	if task, ok := w.deque.popFront(); ok {
		return task, false
	}

	var victim *stealingWorker
	busiest := 0
	for _, cand := range p.workers {
		if cand == w {
			continue
		}
		if n := cand.deque.len(); n > busiest {
			busiest = n
			victim = cand
		}
	}
	if victim != nil {
		if task, ok := victim.deque.popBack(); ok {
			return task, true
		}
	}
	// The chosen victim may have been emptied between the length scan and
	// the pop; sweep the remaining siblings before giving up.
	for _, cand := range p.workers {
		if cand == w || cand == victim {
			continue
		}
		if task, ok := cand.deque.popBack(); ok {
			return task, true
		}
	}
	return nil, false
}

// drainWorker cancels whatever is still queued on the worker's deque at
// shutdown so no handle is left hanging forever.
func (p *WorkStealingPool) drainWorker(w *stealingWorker) {
	for {
		task, ok := w.deque.popFront()
		if !ok {
			return
		}
		task.Cancel(false)
	}
}

// =============================================================================
// workerDeque
// =============================================================================

// workerDeque is a mutex-guarded double-ended task queue. The owning
// worker pops the front (oldest first, preserving submission order);
// thieves pop the back.
type workerDeque struct {
	mu    sync.Mutex
	tasks []*pendingTask
}

func (d *workerDeque) push(t *pendingTask) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, t)
}

func (d *workerDeque) popFront() (*pendingTask, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tasks) == 0 {
		return nil, false
	}
	t := d.tasks[0]
	d.tasks[0] = nil
	d.tasks = d.tasks[1:]
	return t, true
}

func (d *workerDeque) popBack() (*pendingTask, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tasks) == 0 {
		return nil, false
	}
	last := len(d.tasks) - 1
	t := d.tasks[last]
	d.tasks[last] = nil
	d.tasks = d.tasks[:last]
	return t, true
}

func (d *workerDeque) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}
