// Package metrics provides custom Prometheus metrics for rfscan.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on concrete metric types.
type Recorder interface {
	// RecordOperation records an operation with its outcome
	// (e.g. OpSighting with StatusDropped).
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type.
	RecordError(operation, errorType string)
}

// ScannerRecorder is the Recorder used by the scan orchestrator.
type ScannerRecorder interface {
	Recorder

	// SetQueueDepth reports how many sightings wait for a worker.
	SetQueueDepth(depth int)

	// SetScannerEnabled reports whether a sub-scanner is still active.
	SetScannerEnabled(scanner string, enabled bool)

	// RecordNewNetwork counts a network seen for the first time.
	RecordNewNetwork(kind string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string) {}
func (NopRecorder) SetQueueDepth(int) {}
func (NopRecorder) SetScannerEnabled(string, bool) {}
func (NopRecorder) RecordNewNetwork(string) {}

var _ ScannerRecorder = NopRecorder{}
