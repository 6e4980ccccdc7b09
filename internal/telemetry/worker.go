package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/events"
	"github.com/tphakala/rfscan-go/internal/logger"
)

// WorkerConfig bounds how many errors reach the telemetry backend.
type WorkerConfig struct {
	RateLimitWindow    time.Duration
	RateLimitMaxEvents int
}

// DefaultWorkerConfig allows 60 reports per minute.
func DefaultWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		RateLimitWindow:    time.Minute,
		RateLimitMaxEvents: 60,
	}
}

// Worker is an event bus consumer that forwards enhanced errors to a
// telemetry reporter.
type Worker struct {
	reporter    errors.TelemetryReporter
	rateLimiter *RateLimiter
	logger      logger.Logger

	eventsReported atomic.Uint64
	eventsDropped  atomic.Uint64
}

// WorkerStats holds delivery counters.
type WorkerStats struct {
	Reported uint64
	Dropped  uint64
}

// NewWorker creates a telemetry worker around reporter.
func NewWorker(reporter errors.TelemetryReporter, config *WorkerConfig) *Worker {
	if config == nil {
		config = DefaultWorkerConfig()
	}
	return &Worker{
		reporter: reporter,
		rateLimiter: &RateLimiter{
			window:    config.RateLimitWindow,
			maxEvents: config.RateLimitMaxEvents,
			now:       time.Now,
		},
		logger: GetLogger(),
	}
}

// Name returns the consumer name.
func (w *Worker) Name() string { return "telemetry" }

// ProcessEvent reports one error event.
func (w *Worker) ProcessEvent(event events.ErrorEvent) error {
	if w.reporter == nil || !w.reporter.IsEnabled() || event.IsReported() {
		return nil
	}

	ee, ok := event.(*errors.EnhancedError)
	if !ok {
		return nil
	}

	if !w.rateLimiter.Allow() {
		w.eventsDropped.Add(1)
		w.logger.Debug("rate limit exceeded, dropping event",
			logger.String("component", event.GetComponent()),
			logger.String("category", event.GetCategory()))
		return nil
	}

	w.reporter.ReportError(ee)
	w.eventsReported.Add(1)
	return nil
}

// Stats returns the worker counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Reported: w.eventsReported.Load(),
		Dropped:  w.eventsDropped.Load(),
	}
}

var _ events.EventConsumer = (*Worker)(nil)

// RateLimiter is a sliding window limiter.
type RateLimiter struct {
	mu         sync.Mutex
	window     time.Duration
	maxEvents  int
	eventTimes []time.Time
	now        func() time.Time
}

// Allow reports whether another event fits in the current window.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	kept := rl.eventTimes[:0]
	for _, t := range rl.eventTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	rl.eventTimes = kept

	if len(rl.eventTimes) >= rl.maxEvents {
		return false
	}
	rl.eventTimes = append(rl.eventTimes, now)
	return true
}
