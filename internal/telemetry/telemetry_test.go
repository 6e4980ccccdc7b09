package telemetry

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/events"
)

type countingReporter struct {
	enabled bool
	count   atomic.Int32
}

func (r *countingReporter) ReportError(*errors.EnhancedError) { r.count.Add(1) }
func (r *countingReporter) IsEnabled() bool                   { return r.enabled }

func TestWorkerForwardsEnhancedErrors(t *testing.T) {
	reporter := &countingReporter{enabled: true}
	w := NewWorker(reporter, nil)

	ee := errors.Newf("adapter down").Component("scanner").Category(errors.CategoryScanner).Build()
	require.NoError(t, w.ProcessEvent(ee))
	assert.Equal(t, int32(1), reporter.count.Load())

	ee.MarkReported()
	require.NoError(t, w.ProcessEvent(ee))
	assert.Equal(t, int32(1), reporter.count.Load(), "already reported errors are skipped")
	assert.Equal(t, uint64(1), w.Stats().Reported)
}

func TestWorkerDisabledReporter(t *testing.T) {
	reporter := &countingReporter{}
	w := NewWorker(reporter, nil)
	require.NoError(t, w.ProcessEvent(errors.Newf("x").Component("test").Build()))
	assert.Zero(t, reporter.count.Load())
}

func TestWorkerRateLimit(t *testing.T) {
	reporter := &countingReporter{enabled: true}
	w := NewWorker(reporter, &WorkerConfig{RateLimitWindow: time.Minute, RateLimitMaxEvents: 2})

	for range 5 {
		require.NoError(t, w.ProcessEvent(errors.Newf("x").Component("test").Build()))
	}
	assert.Equal(t, int32(2), reporter.count.Load())
	assert.Equal(t, WorkerStats{Reported: 2, Dropped: 3}, w.Stats())
}

func TestRateLimiterWindowSlides(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := &RateLimiter{window: time.Minute, maxEvents: 1, now: func() time.Time { return now }}

	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow())
}

func TestWorkerOnEventBus(t *testing.T) {
	bus := events.NewEventBus(&events.Config{BufferSize: 8, Workers: 1, Enabled: true})
	defer func() { _ = bus.Shutdown(time.Second) }()

	reporter := &countingReporter{enabled: true}
	require.NoError(t, bus.RegisterConsumer(NewWorker(reporter, nil)))

	require.True(t, bus.TryPublish(errors.Newf("store write failed").Component("datastore").Build()))
	assert.Eventually(t, func() bool { return reporter.count.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestApplyPrivacyFilters(t *testing.T) {
	event := &sentry.Event{
		Message:    "resolve failed for AA:BB:CC:DD:EE:FF",
		ServerName: "van-1",
		User:       sentry.User{ID: "me"},
		Extra:      map[string]any{"component": "rpa", "address": "AA:BB:CC:DD:EE:FF"},
		Tags:       map[string]string{"hostname": "van-1", "category": "resolver"},
		Contexts:   map[string]sentry.Context{"os": {"name": "linux"}},
		Exception:  []sentry.Exception{{Value: "key ec0234a357c8ad05341010a60a397d9b rejected"}},
	}

	out := applyPrivacyFilters(event)
	assert.Empty(t, out.ServerName)
	assert.Equal(t, sentry.User{}, out.User)
	assert.NotContains(t, out.Message, "AA:BB:CC:DD:EE:FF")
	assert.NotContains(t, out.Exception[0].Value, "ec0234a357c8ad05341010a60a397d9b")
	assert.Equal(t, map[string]any{"component": "rpa"}, out.Extra)
	assert.NotContains(t, out.Tags, "hostname")
	assert.Equal(t, "resolver", out.Tags["category"])
	assert.NotContains(t, out.Contexts, "os")
}
