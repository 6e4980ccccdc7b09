package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains Prometheus metrics for push notification delivery.
type NotificationMetrics struct {
	DeliveriesTotal  *prometheus.CounterVec   // by service, event and status
	DeliveryDuration *prometheus.HistogramVec // by service
	LastSuccessTime  *prometheus.GaugeVec     // by service

	registry *prometheus.Registry
}

// NewNotificationMetrics creates and registers notification metrics.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize notification metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() error {
	m.DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Notification deliveries by service, event and status",
		},
		[]string{"service", "event", "status"},
	)

	m.DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_delivery_duration_seconds",
			Help:    "Time taken to hand a notification to its service",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10), // 10ms to ~5s
		},
		[]string{"service"},
	)

	m.LastSuccessTime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notification_last_success_time_seconds",
			Help: "Timestamp of the last successful delivery",
		},
		[]string{"service"},
	)
	return nil
}

// RecordDelivery records a notification delivery attempt.
func (m *NotificationMetrics) RecordDelivery(service, event, status string, duration time.Duration) {
	m.DeliveriesTotal.WithLabelValues(service, event, status).Inc()
	m.DeliveryDuration.WithLabelValues(service).Observe(duration.Seconds())
	if status == StatusSuccess {
		m.LastSuccessTime.WithLabelValues(service).SetToCurrentTime()
	}
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DeliveriesTotal.Collect(ch)
	m.DeliveryDuration.Collect(ch)
	m.LastSuccessTime.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DeliveriesTotal.Describe(ch)
	m.DeliveryDuration.Describe(ch)
	m.LastSuccessTime.Describe(ch)
}
