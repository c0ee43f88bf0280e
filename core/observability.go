package core

import (
	"sync"
	"time"
)

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting batch execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting batch execution.
type Metrics interface {
	// RecordBatchDuration records how long one batch call took, including
	// the in-order awaits on the invoker.
	RecordBatchDuration(executor string, size int, duration time.Duration)

	// RecordTaskFailure records that a batch failed because a task
	// returned an error or panicked.
	RecordTaskFailure(executor string)

	// RecordBatchRejected records that a batch was refused before running
	// (e.g. the pool was already shut down).
	RecordBatchRejected(executor string, reason string)

	// RecordSteal records that an idle worker stole queued work from a
	// sibling's deque.
	RecordSteal(pool string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordBatchDuration is a no-op.
func (m *NilMetrics) RecordBatchDuration(executor string, size int, duration time.Duration) {}

// RecordTaskFailure is a no-op.
func (m *NilMetrics) RecordTaskFailure(executor string) {}

// RecordBatchRejected is a no-op.
func (m *NilMetrics) RecordBatchRejected(executor string, reason string) {}

// RecordSteal is a no-op.
func (m *NilMetrics) RecordSteal(pool string) {}

// =============================================================================
// Stats snapshots
// =============================================================================

// ExecutorStats represents runtime observability state for an executor.
type ExecutorStats struct {
	Name          string
	Invoker       uint64
	Suspended     bool
	Shutdown      bool
	Batches       int64
	Failures      int64
	LastBatchSize int
	LastBatchAt   time.Time
}

// PoolStats represents runtime observability state for a worker pool.
type PoolStats struct {
	ID       string
	Workers  int
	Queued   int
	Stolen   int64
	Shutdown bool
}

// BatchRecord captures one completed (or failed) batch call.
type BatchRecord struct {
	Size       int
	Duration   time.Duration
	FinishedAt time.Time
	Failed     bool
	Err        string
}

const defaultBatchHistoryCapacity = 64

// batchHistory is a fixed-size ring of recent BatchRecords.
type batchHistory struct {
	mu    sync.Mutex
	items []BatchRecord
	head  int
	count int
}

func newBatchHistory(capacity int) batchHistory {
	if capacity < 1 {
		capacity = defaultBatchHistoryCapacity
	}
	return batchHistory{items: make([]BatchRecord, capacity)}
}

func (h *batchHistory) Add(record BatchRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, newest first. limit <= 0 means all.
func (h *batchHistory) Recent(limit int) []BatchRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > h.count {
		limit = h.count
	}
	out := make([]BatchRecord, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.head - 1 - i + len(h.items)*2) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

// Last returns the most recent record, if any.
func (h *batchHistory) Last() (BatchRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return BatchRecord{}, false
	}
	idx := (h.head - 1 + len(h.items)) % len(h.items)
	return h.items[idx], true
}
