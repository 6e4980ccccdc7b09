package metrics

import "time"

// Operation names accepted by the Recorder implementations.
const (
	// OpCycle is one orchestrator scan cycle.
	OpCycle = "scan_cycle"
	// OpSighting is a sighting passing through the pipeline.
	OpSighting = "sighting"
	// OpWrite is one aggregator upsert run by a worker.
	OpWrite = "write"
	// OpResolve is an RPA resolution attempt.
	OpResolve = "rpa_resolve"
	// OpPosition is a position source poll.
	OpPosition = "position"
	// OpRoutePoint is a route point write.
	OpRoutePoint = "route_point"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// Sighting outcomes.
	StatusAccepted = "accepted"
	StatusFiltered = "filtered"
	StatusDropped  = "dropped"

	// Resolution outcomes.
	StatusResolved   = "resolved"
	StatusUnresolved = "unresolved"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)

// ShutdownTimeout is the timeout for graceful shutdown operations.
const ShutdownTimeout = 5 * time.Second
