// Package metrics records import counters through a pluggable backend.
// The default backend discards everything, so callers never need to check
// whether metrics are configured.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Metric names understood by backends.
const (
	RecordsTotal          = "vocabimport_records_total"
	BatchesTotal          = "vocabimport_batches_total"
	BatchDurationSeconds  = "vocabimport_batch_duration_seconds"
	SourceResolutionTotal = "vocabimport_source_resolutions_total"
)

// Backend is the minimal interface for metrics backends.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Reset restores the no-op backend.
func Reset() { backend = nopBackend{} }

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordRecords adds delta to the record counter of kind (accepted,
// failed, skipped).
func RecordRecords(table, kind string, delta int) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{"table": table, "kind": kind})
}

// RecordBatch counts one loaded batch and its duration. status is ok,
// partial or fatal.
func RecordBatch(table, status string, d time.Duration) {
	lbls := Labels{"table": table, "status": status}
	backend.IncCounter(BatchesTotal, 1, lbls)
	backend.ObserveHistogram(BatchDurationSeconds, d.Seconds(), lbls)
}

// RecordSourceResolution counts a source lookup-or-create.
func RecordSourceResolution(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	backend.IncCounter(SourceResolutionTotal, 1, Labels{"result": result})
}
