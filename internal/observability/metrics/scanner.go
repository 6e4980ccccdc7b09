package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ScannerMetrics contains Prometheus metrics for the scan orchestrator.
type ScannerMetrics struct {
	registry *prometheus.Registry

	cyclesTotal        prometheus.Counter
	cycleDuration      prometheus.Histogram
	sightingsTotal     *prometheus.CounterVec
	sightingsDropped   prometheus.Counter
	newNetworksTotal   *prometheus.CounterVec
	writesTotal        *prometheus.CounterVec
	writeDuration      prometheus.Histogram
	resolutionsTotal   *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	queueDepth         prometheus.Gauge
	scannerEnabled     *prometheus.GaugeVec
	positionPollsTotal *prometheus.CounterVec
	routePointsTotal   *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewScannerMetrics creates and registers scanner metrics.
func NewScannerMetrics(registry *prometheus.Registry) (*ScannerMetrics, error) {
	m := &ScannerMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize scanner metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register scanner metrics: %w", err)
	}
	return m, nil
}

func (m *ScannerMetrics) initMetrics() error {
	m.cyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scanner_cycles_total",
		Help: "Total number of completed scan cycles",
	})

	m.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scanner_cycle_duration_seconds",
		Help:    "Time taken by one scan cycle including all sub-scanners",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~20s
	})

	m.sightingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_sightings_total",
			Help: "Sightings reported by sub-scanners by outcome",
		},
		[]string{"status"}, // accepted, filtered, dropped
	)

	m.sightingsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scanner_sightings_dropped_total",
		Help: "Sightings dropped because the write queue was full",
	})

	m.newNetworksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_new_networks_total",
			Help: "Networks seen for the first time",
		},
		[]string{"kind"},
	)

	m.writesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_writes_total",
			Help: "Aggregator upserts run by the write workers",
		},
		[]string{"status"},
	)

	m.writeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scanner_write_duration_seconds",
		Help:    "Time taken by one aggregator upsert",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~16s
	})

	m.resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_rpa_resolutions_total",
			Help: "Resolvable private address lookups against identity keys",
		},
		[]string{"status"}, // resolved, unresolved
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_errors_total",
			Help: "Errors by operation and type",
		},
		[]string{"operation", "error_type"},
	)

	m.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scanner_write_queue_depth",
		Help: "Sightings waiting for a write worker",
	})

	m.scannerEnabled = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scanner_enabled",
			Help: "Whether a sub-scanner is active (1) or disabled (0)",
		},
		[]string{"scanner"},
	)

	m.positionPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_position_polls_total",
			Help: "Position source polls by outcome",
		},
		[]string{"status"},
	)

	m.routePointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_route_points_total",
			Help: "Route point writes by outcome",
		},
		[]string{"status"},
	)

	m.collectors = []prometheus.Collector{
		m.cyclesTotal, m.cycleDuration, m.sightingsTotal, m.sightingsDropped,
		m.newNetworksTotal, m.writesTotal, m.writeDuration, m.resolutionsTotal,
		m.errorsTotal, m.queueDepth, m.scannerEnabled, m.positionPollsTotal,
		m.routePointsTotal,
	}
	return nil
}

// Describe implements the prometheus.Collector interface.
func (m *ScannerMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *ScannerMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordOperation implements the Recorder interface.
func (m *ScannerMetrics) RecordOperation(operation, status string) {
	switch operation {
	case OpCycle:
		m.cyclesTotal.Inc()
	case OpSighting:
		m.sightingsTotal.WithLabelValues(status).Inc()
		if status == StatusDropped {
			m.sightingsDropped.Inc()
		}
	case OpWrite:
		m.writesTotal.WithLabelValues(status).Inc()
	case OpResolve:
		m.resolutionsTotal.WithLabelValues(status).Inc()
	case OpPosition:
		m.positionPollsTotal.WithLabelValues(status).Inc()
	case OpRoutePoint:
		m.routePointsTotal.WithLabelValues(status).Inc()
	}
}

// RecordDuration implements the Recorder interface.
func (m *ScannerMetrics) RecordDuration(operation string, seconds float64) {
	switch operation {
	case OpCycle:
		m.cycleDuration.Observe(seconds)
	case OpWrite:
		m.writeDuration.Observe(seconds)
	}
}

// RecordError implements the Recorder interface.
func (m *ScannerMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// SetQueueDepth implements ScannerRecorder.
func (m *ScannerMetrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// SetScannerEnabled implements ScannerRecorder.
func (m *ScannerMetrics) SetScannerEnabled(scanner string, enabled bool) {
	v := 0.0
	if enabled {
		v = 1
	}
	m.scannerEnabled.WithLabelValues(scanner).Set(v)
}

// RecordNewNetwork implements ScannerRecorder.
func (m *ScannerMetrics) RecordNewNetwork(kind string) {
	m.newNetworksTotal.WithLabelValues(kind).Inc()
}
