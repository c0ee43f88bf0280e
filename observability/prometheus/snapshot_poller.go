package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/taskgroup/go-task-group/core"
)

// ExecutorSnapshotProvider provides current executor stats snapshots.
type ExecutorSnapshotProvider interface {
	Stats() core.ExecutorStats
}

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports executor/pool Stats() snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	executorsMu sync.RWMutex
	executors   map[string]ExecutorSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	executorSuspended *prom.GaugeVec
	executorShutdown  *prom.GaugeVec
	executorBatches   *prom.GaugeVec
	executorFailures  *prom.GaugeVec

	poolWorkers  *prom.GaugeVec
	poolQueued   *prom.GaugeVec
	poolStolen   *prom.GaugeVec
	poolShutdown *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	executorSuspended := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskgroup",
		Name:      "executor_suspended",
		Help:      "Executor suspended state (1=batch in flight, 0=idle).",
	}, []string{"executor"})
	executorShutdown := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskgroup",
		Name:      "executor_shutdown",
		Help:      "Executor shutdown state (1=shut down, 0=accepting).",
	}, []string{"executor"})
	executorBatches := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskgroup",
		Name:      "executor_batches",
		Help:      "Completed batch count snapshot.",
	}, []string{"executor"})
	executorFailures := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskgroup",
		Name:      "executor_failures",
		Help:      "Failed batch count snapshot.",
	}, []string{"executor"})

	poolWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskgroup",
		Name:      "pool_workers",
		Help:      "Workers per pool.",
	}, []string{"pool"})
	poolQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskgroup",
		Name:      "pool_queued",
		Help:      "Queued tasks per pool.",
	}, []string{"pool"})
	poolStolen := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskgroup",
		Name:      "pool_stolen",
		Help:      "Stolen task count snapshot.",
	}, []string{"pool"})
	poolShutdown := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskgroup",
		Name:      "pool_shutdown",
		Help:      "Pool shutdown state (1=shut down, 0=accepting).",
	}, []string{"pool"})

	collectors := []prom.Collector{
		executorSuspended, executorShutdown, executorBatches, executorFailures,
		poolWorkers, poolQueued, poolStolen, poolShutdown,
	}
	registered := make([]prom.Collector, 0, len(collectors))
	for _, collector := range collectors {
		c, err := registerCollector(reg, collector)
		if err != nil {
			return nil, err
		}
		registered = append(registered, c)
	}

	return &SnapshotPoller{
		interval:          interval,
		executors:         make(map[string]ExecutorSnapshotProvider),
		pools:             make(map[string]PoolSnapshotProvider),
		executorSuspended: registered[0].(*prom.GaugeVec),
		executorShutdown:  registered[1].(*prom.GaugeVec),
		executorBatches:   registered[2].(*prom.GaugeVec),
		executorFailures:  registered[3].(*prom.GaugeVec),
		poolWorkers:       registered[4].(*prom.GaugeVec),
		poolQueued:        registered[5].(*prom.GaugeVec),
		poolStolen:        registered[6].(*prom.GaugeVec),
		poolShutdown:      registered[7].(*prom.GaugeVec),
	}, nil
}

// AddExecutor registers an executor for polling under the given name.
func (p *SnapshotPoller) AddExecutor(name string, provider ExecutorSnapshotProvider) {
	p.executorsMu.Lock()
	defer p.executorsMu.Unlock()
	p.executors[name] = provider
}

// AddPool registers a pool for polling under the given name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	p.poolsMu.Lock()
	defer p.poolsMu.Unlock()
	p.pools[name] = provider
}

// Start begins polling until Stop is called or ctx is done. Idempotent.
func (p *SnapshotPoller) Start(ctx context.Context) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.running {
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(pollCtx)
}

// Stop halts polling and waits for the poll loop to exit.
func (p *SnapshotPoller) Stop() {
	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	cancel()
	<-done
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collect()
		}
	}
}

func (p *SnapshotPoller) collect() {
	p.executorsMu.RLock()
	for name, provider := range p.executors {
		stats := provider.Stats()
		p.executorSuspended.WithLabelValues(name).Set(boolGauge(stats.Suspended))
		p.executorShutdown.WithLabelValues(name).Set(boolGauge(stats.Shutdown))
		p.executorBatches.WithLabelValues(name).Set(float64(stats.Batches))
		p.executorFailures.WithLabelValues(name).Set(float64(stats.Failures))
	}
	p.executorsMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolStolen.WithLabelValues(name).Set(float64(stats.Stolen))
		p.poolShutdown.WithLabelValues(name).Set(boolGauge(stats.Shutdown))
	}
	p.poolsMu.RUnlock()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
