// Package prometheus adapts taskgroup observability hooks to Prometheus
// collectors.
package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/taskgroup/go-task-group/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	batchDurationSeconds *prom.HistogramVec
	batchSizeTasks       *prom.HistogramVec
	taskFailureTotal     *prom.CounterVec
	batchRejectedTotal   *prom.CounterVec
	stealTotal           *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "taskgroup"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_duration_seconds",
		Help:      "Batch call duration in seconds, as seen by the invoker.",
		Buckets:   buckets,
	}, []string{"executor"})
	sizeVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_size_tasks",
		Help:      "Number of tasks per batch.",
		Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
	}, []string{"executor"})
	failureVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_failure_total",
		Help:      "Total number of batches failed by a task error or panic.",
	}, []string{"executor"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "batch_rejected_total",
		Help:      "Total number of batches rejected before running.",
	}, []string{"executor", "reason"})
	stealVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "steal_total",
		Help:      "Total number of tasks stolen between pool workers.",
	}, []string{"pool"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if sizeVec, err = registerCollector(reg, sizeVec); err != nil {
		return nil, err
	}
	if failureVec, err = registerCollector(reg, failureVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if stealVec, err = registerCollector(reg, stealVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		batchDurationSeconds: durationVec,
		batchSizeTasks:       sizeVec,
		taskFailureTotal:     failureVec,
		batchRejectedTotal:   rejectedVec,
		stealTotal:           stealVec,
	}, nil
}

// RecordBatchDuration records one batch call's duration and size.
func (m *MetricsExporter) RecordBatchDuration(executor string, size int, duration time.Duration) {
	if m == nil {
		return
	}
	label := normalizeLabel(executor, "unknown")
	m.batchDurationSeconds.WithLabelValues(label).Observe(duration.Seconds())
	m.batchSizeTasks.WithLabelValues(label).Observe(float64(size))
}

// RecordTaskFailure records a batch failed by a task error.
func (m *MetricsExporter) RecordTaskFailure(executor string) {
	if m == nil {
		return
	}
	m.taskFailureTotal.WithLabelValues(normalizeLabel(executor, "unknown")).Inc()
}

// RecordBatchRejected records a batch refused before running.
func (m *MetricsExporter) RecordBatchRejected(executor string, reason string) {
	if m == nil {
		return
	}
	m.batchRejectedTotal.WithLabelValues(normalizeLabel(executor, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordSteal records a work-stealing event.
func (m *MetricsExporter) RecordSteal(pool string) {
	if m == nil {
		return
	}
	m.stealTotal.WithLabelValues(normalizeLabel(pool, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
