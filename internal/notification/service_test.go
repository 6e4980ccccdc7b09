package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/events"
	"github.com/tphakala/rfscan-go/internal/observability/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sent struct {
	title string
	body  string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeSender) Send(message string, params *stypes.Params) []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	title, _ := params.Title()
	f.msgs = append(f.msgs, sent{title: title, body: message})
	if f.err != nil {
		return []error{nil, f.err}
	}
	return nil
}

func (f *fakeSender) sent() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.msgs...)
}

func newMetrics(t *testing.T) *metrics.NotificationMetrics {
	t.Helper()
	m, err := metrics.NewNotificationMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestServiceSendsLifecycleAndFailures(t *testing.T) {
	sender := &fakeSender{}
	m := newMetrics(t)
	svc := NewServiceWithSender(sender, time.Second, m)

	for _, e := range []*events.ScanEvent{
		{Type: events.ScanStarted, SessionID: "s1"},
		{Type: events.NewEntity, Kind: "WIFI", Name: "depot", Level: -55},
		{Type: events.IRKResolved, Address: "4D:01:02:03:04:05"},
		{Type: events.ScannerFailed, Scanner: "ble", Error: "adapter busy"},
		{Type: events.ScanStopped, SessionID: "s1", Metadata: map[string]any{"new_networks": 3}},
	} {
		require.NoError(t, svc.ProcessScanEvent(e))
	}
	svc.Close()

	got := sender.sent()
	require.Len(t, got, 3, "discoveries are not pushed")
	assert.Equal(t, sent{title: "rfscan: scanning", body: "Scan started (session s1)"}, got[0])
	assert.Equal(t, sent{title: "rfscan: scanner problem", body: "ble scanner disabled: adapter busy"}, got[1])
	assert.Equal(t, sent{title: "rfscan: scan finished", body: "Scan stopped (session s1, 3 new)"}, got[2])

	assert.InDelta(t, 1, testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues(serviceName, "scan_started", metrics.StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues(serviceName, "scanner_failed", metrics.StatusSuccess)), 0)
}

func TestServiceRecordsDeliveryErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("https://hooks.example.com/T000?token=secret: 500")}
	m := newMetrics(t)
	svc := NewServiceWithSender(sender, time.Second, m)

	require.NoError(t, svc.ProcessScanEvent(&events.ScanEvent{Type: events.PositionFailed, Error: "gps timeout"}))
	svc.Close()

	assert.InDelta(t, 1, testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues(serviceName, "position_failed", metrics.StatusError)), 0)
}

func TestServiceIgnoresEventsAfterClose(t *testing.T) {
	sender := &fakeSender{}
	svc := NewServiceWithSender(sender, time.Second, nil)
	svc.Close()
	svc.Close()

	require.NoError(t, svc.ProcessScanEvent(&events.ScanEvent{Type: events.ScanStarted}))
	assert.Empty(t, sender.sent())
}

func TestServiceOnEventBus(t *testing.T) {
	bus := events.NewEventBus(&events.Config{BufferSize: 8, Workers: 1, Enabled: true})
	sender := &fakeSender{}
	svc := NewServiceWithSender(sender, time.Second, nil)
	require.NoError(t, bus.RegisterConsumer(svc))

	require.True(t, bus.PublishScan(&events.ScanEvent{Type: events.ScanStarted, SessionID: "bus"}))
	assert.Eventually(t, func() bool { return len(sender.sent()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Shutdown(time.Second))
	svc.Close()
}

func TestNewServiceValidatesURLs(t *testing.T) {
	_, err := NewService(&conf.NotificationSettings{}, nil)
	require.Error(t, err)

	_, err = NewService(&conf.NotificationSettings{URLs: []string{"nosuchservice://token@host"}}, nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "token@")

	svc, err := NewService(&conf.NotificationSettings{URLs: []string{"logger://"}}, newMetrics(t))
	require.NoError(t, err)
	assert.Equal(t, defaultTimeout, svc.timeout)
	svc.Close()
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute}, "test")
	cb.now = func() time.Time { return now }

	fail := func(context.Context) error { return errors.New("down") }
	ok := func(context.Context) error { return nil }

	require.Error(t, cb.Call(t.Context(), fail))
	assert.Equal(t, StateClosed, cb.State())
	require.Error(t, cb.Call(t.Context(), fail))
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Call(t.Context(), ok)
	require.ErrorIs(t, err, ErrCircuitBreakerOpen)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Call(t.Context(), ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second}, "test")
	cb.now = func() time.Time { return now }

	require.Error(t, cb.Call(t.Context(), func(context.Context) error { return errors.New("down") }))
	now = now.Add(2 * time.Second)
	require.Error(t, cb.Call(t.Context(), func(context.Context) error { return errors.New("still down") }))
	assert.Equal(t, StateOpen, cb.State())

	require.ErrorIs(t, cb.Call(t.Context(), func(context.Context) error { return nil }), ErrCircuitBreakerOpen)
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute}, "test")
	require.ErrorIs(t, cb.Call(t.Context(), func(context.Context) error { return context.Canceled }), context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}
