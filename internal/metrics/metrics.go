// Package metrics records operational metrics of a dataunifier run through a
// pluggable backend.
//
// Callers use the package-level helpers (RecordStep, RecordRow,
// RecordBatches). The backend defaults to a no-op, so instrumented code never
// checks whether metrics are enabled. Concrete systems live in subpackages
// (prompush, datadog) and are installed with SetBackend by the CLI.
package metrics

import (
	"sync"
	"time"
)

// Metric names.
const (
	StepTotal    = "dataunifier_step_total"
	StepDuration = "dataunifier_step_duration_seconds"
	RowsTotal    = "dataunifier_rows_total"
	BatchesTotal = "dataunifier_batches_total"
)

// Row kinds counted under RowsTotal.
const (
	RowsRead      = "read"
	RowsWritten   = "written"
	RowsDiscarded = "discarded"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a run step and observes its duration,
// labelled with success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// Step runs fn as step and records it.
func Step(job, step string, fn func() error) error {
	start := time.Now()
	err := fn()
	RecordStep(job, step, err, time.Since(start))
	return err
}

// RecordRow adds delta rows of kind (RowsRead, RowsWritten, RowsDiscarded).
// Non-positive deltas are ignored.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches counts database batches flushed by the sink.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}
