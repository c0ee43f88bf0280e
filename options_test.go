package taskgroup

import (
	"runtime"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Parallelism != runtime.NumCPU() {
		t.Errorf("Parallelism = %d, want %d", opts.Parallelism, runtime.NumCPU())
	}
	if opts.WorkerNameTemplate != "TaskGroupWorker" {
		t.Errorf("WorkerNameTemplate = %q, want TaskGroupWorker", opts.WorkerNameTemplate)
	}
	if opts.WorkerPriority != nil {
		t.Errorf("WorkerPriority = %v, want nil", *opts.WorkerPriority)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("default options invalid: %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	opts.Parallelism = 0
	if err := opts.Validate(); err == nil {
		t.Error("Validate accepted zero parallelism")
	}

	opts = DefaultOptions()
	opts.Parallelism = -4
	if err := opts.Validate(); err == nil {
		t.Error("Validate accepted negative parallelism")
	}

	opts = DefaultOptions()
	opts.WorkerNameTemplate = ""
	if err := opts.Validate(); err == nil {
		t.Error("Validate accepted empty worker name template")
	}
}

func TestOptionsFallbacks(t *testing.T) {
	opts := Options{}
	if opts.logger() == nil {
		t.Error("logger() = nil for unset Logger")
	}
	if opts.metrics() == nil {
		t.Error("metrics() = nil for unset Metrics")
	}
}
