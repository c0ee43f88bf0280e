package taskgroup

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/taskgroup/go-task-group/core"
)

// DefaultWorkerNameTemplate is the worker name prefix used when no
// template is configured. Worker factories append " #<n>" to it.
const DefaultWorkerNameTemplate = "TaskGroupWorker"

// Options is an immutable holder of executor configuration. Create one
// with DefaultOptions, adjust fields, and pass it to
// NewStealingExecutorWithOptions; it is shared by reference with the pool
// and must not be mutated afterwards.
type Options struct {
	// Name labels the executor in logs, metrics, and stats.
	Name string

	// Parallelism is the targeted worker count. Must be at least 1.
	Parallelism int

	// WorkerNameTemplate is the worker name prefix; the pool appends a
	// counter starting at 1. Must be non-empty.
	WorkerNameTemplate string

	// WorkerPriority, when set, is recorded on every spawned worker and
	// surfaced through WorkerInfo. Goroutines have no OS-level priority,
	// so the value is observational; nil leaves workers at the platform
	// default of 0.
	WorkerPriority *int

	// Logger receives lifecycle and batch events. Nil disables logging.
	Logger core.Logger

	// Metrics receives batch and pool measurements. Nil disables them.
	Metrics core.Metrics
}

// DefaultOptions returns Options with the parallelism of the host's
// logical core count, the default worker name template, and no explicit
// worker priority.
func DefaultOptions() Options {
	return Options{
		Name:               "stealing",
		Parallelism:        runtime.NumCPU(),
		WorkerNameTemplate: DefaultWorkerNameTemplate,
	}
}

// Validate reports whether the options describe a buildable executor.
func (o Options) Validate() error {
	if o.Parallelism < 1 {
		return fmt.Errorf("taskgroup: parallelism cannot be less than 1, got %d", o.Parallelism)
	}
	if o.WorkerNameTemplate == "" {
		return errors.New("taskgroup: worker name template cannot be empty")
	}
	return nil
}

func (o Options) logger() core.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return &core.NoOpLogger{}
}

func (o Options) metrics() core.Metrics {
	if o.Metrics != nil {
		return o.Metrics
	}
	return &core.NilMetrics{}
}
