package events

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))
}

// mockErrorEvent implements ErrorEvent for testing
type mockErrorEvent struct {
	component string
	category  string
	message   string
	reported  atomic.Bool
}

func (m *mockErrorEvent) GetComponent() string       { return m.component }
func (m *mockErrorEvent) GetCategory() string        { return m.category }
func (m *mockErrorEvent) GetContext() map[string]any { return nil }
func (m *mockErrorEvent) GetTimestamp() time.Time    { return time.Time{} }
func (m *mockErrorEvent) GetError() error            { return errors.New(m.message) }
func (m *mockErrorEvent) GetMessage() string         { return m.message }
func (m *mockErrorEvent) IsReported() bool           { return m.reported.Load() }
func (m *mockErrorEvent) MarkReported()              { m.reported.Store(true) }

// mockConsumer records everything it receives
type mockConsumer struct {
	name    string
	failing bool
	panics  bool

	mu     sync.Mutex
	errs   []ErrorEvent
	scans  []*ScanEvent
	called atomic.Int32
}

func (m *mockConsumer) Name() string { return m.name }

func (m *mockConsumer) ProcessEvent(event ErrorEvent) error {
	m.mu.Lock()
	m.errs = append(m.errs, event)
	m.mu.Unlock()
	m.called.Add(1)
	return m.result()
}

func (m *mockConsumer) result() error {
	if m.panics {
		panic("boom")
	}
	if m.failing {
		return errors.New("consumer failed")
	}
	return nil
}

// scanConsumer additionally receives scan events
type scanConsumer struct{ mockConsumer }

func (s *scanConsumer) ProcessScanEvent(event *ScanEvent) error {
	s.mu.Lock()
	s.scans = append(s.scans, event)
	s.mu.Unlock()
	s.called.Add(1)
	return s.result()
}

func (s *scanConsumer) scanTypes() []ScanEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScanEventType, 0, len(s.scans))
	for _, e := range s.scans {
		out = append(out, e.Type)
	}
	return out
}

func newTestBus(t *testing.T, cfg *Config) *EventBus {
	t.Helper()
	if cfg == nil {
		cfg = &Config{BufferSize: 100, Workers: 1, Enabled: true}
	}
	eb := NewEventBus(cfg)
	t.Cleanup(func() { _ = eb.Shutdown(time.Second) })
	return eb
}

func waitCalled(t *testing.T, c *mockConsumer, n int32) {
	t.Helper()
	require.Eventually(t, func() bool { return c.called.Load() >= n },
		2*time.Second, 5*time.Millisecond, "expected %d deliveries, got %d", n, c.called.Load())
}

func TestPublishWithoutConsumersIsRejected(t *testing.T) {
	t.Parallel()
	eb := newTestBus(t, nil)

	assert.False(t, eb.PublishScan(&ScanEvent{Type: ScanStarted}))
	assert.False(t, eb.TryPublish(&mockErrorEvent{message: "x"}))
	assert.Zero(t, eb.GetStats().EventsReceived)
}

func TestScanEventsReachScanConsumersInOrder(t *testing.T) {
	t.Parallel()
	eb := newTestBus(t, nil)

	scans := &scanConsumer{mockConsumer{name: "scans"}}
	plain := &mockConsumer{name: "errors-only"}
	require.NoError(t, eb.RegisterConsumer(scans))
	require.NoError(t, eb.RegisterConsumer(plain))

	sequence := []ScanEventType{ScanStarted, NewEntity, IRKResolved, WriteFailed, ScanStopped}
	for _, typ := range sequence {
		require.True(t, eb.PublishScan(&ScanEvent{Type: typ, SessionID: "s1"}))
	}

	waitCalled(t, &scans.mockConsumer, int32(len(sequence)))
	assert.Equal(t, sequence, scans.scanTypes())
	assert.Zero(t, plain.called.Load(), "consumers without scan support are skipped")

	scans.mu.Lock()
	assert.False(t, scans.scans[0].Timestamp.IsZero(), "timestamp is stamped on publish")
	scans.mu.Unlock()
}

func TestDuplicateConsumerRejected(t *testing.T) {
	t.Parallel()
	eb := newTestBus(t, nil)
	require.NoError(t, eb.RegisterConsumer(&mockConsumer{name: "a"}))
	require.Error(t, eb.RegisterConsumer(&mockConsumer{name: "a"}))

	var nilBus *EventBus
	require.Error(t, nilBus.RegisterConsumer(&mockConsumer{name: "a"}))
}

func TestErrorEventsAreDeduplicated(t *testing.T) {
	t.Parallel()
	eb := newTestBus(t, &Config{
		BufferSize:    10,
		Workers:       2,
		Enabled:       true,
		Deduplication: &DeduplicationConfig{Enabled: true, TTL: time.Minute},
	})
	c := &mockConsumer{name: "errs"}
	require.NoError(t, eb.RegisterConsumer(c))

	ev := &mockErrorEvent{component: "scanner", category: "radio-scanner", message: "device busy"}
	assert.True(t, eb.TryPublish(ev))
	assert.False(t, eb.TryPublish(ev))
	assert.True(t, eb.TryPublish(&mockErrorEvent{component: "scanner", category: "radio-scanner", message: "other"}))

	waitCalled(t, c, 2)
	stats := eb.GetStats()
	assert.Equal(t, uint64(2), stats.EventsReceived)
	assert.Equal(t, uint64(1), stats.EventsSuppressed)
}

func TestConsumerFailuresAreContained(t *testing.T) {
	t.Parallel()
	eb := newTestBus(t, nil)

	panicking := &scanConsumer{mockConsumer{name: "panics", panics: true}}
	failing := &scanConsumer{mockConsumer{name: "fails", failing: true}}
	healthy := &scanConsumer{mockConsumer{name: "ok"}}
	for _, c := range []EventConsumer{panicking, failing, healthy} {
		require.NoError(t, eb.RegisterConsumer(c))
	}

	require.True(t, eb.PublishScan(&ScanEvent{Type: ScannerFailed, Scanner: "ble"}))
	waitCalled(t, &healthy.mockConsumer, 1)

	require.Eventually(t, func() bool { return eb.GetStats().ConsumerErrors == 2 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), eb.GetStats().EventsProcessed)
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()
	eb := newTestBus(t, &Config{BufferSize: 1, Workers: 1, Enabled: true})

	block := make(chan struct{})
	slow := &blockingConsumer{release: block, started: make(chan struct{}, 1)}
	require.NoError(t, eb.RegisterConsumer(slow))

	require.True(t, eb.PublishScan(&ScanEvent{Type: NewEntity}))
	<-slow.started
	require.True(t, eb.PublishScan(&ScanEvent{Type: NewEntity}))

	done := make(chan bool)
	go func() { done <- eb.PublishScan(&ScanEvent{Type: NewEntity}) }()
	select {
	case accepted := <-done:
		assert.False(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("PublishScan blocked on a full buffer")
	}
	assert.Equal(t, uint64(1), eb.GetStats().EventsDropped)
	close(block)
}

type blockingConsumer struct {
	release chan struct{}
	started chan struct{}
}

func (b *blockingConsumer) Name() string                  { return "blocking" }
func (b *blockingConsumer) ProcessEvent(ErrorEvent) error { return nil }
func (b *blockingConsumer) ProcessScanEvent(*ScanEvent) error {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return nil
}

func TestShutdownDrainsQueuedEvents(t *testing.T) {
	t.Parallel()
	eb := NewEventBus(&Config{BufferSize: 50, Workers: 1, Enabled: true})
	c := &scanConsumer{mockConsumer{name: "drain"}}
	require.NoError(t, eb.RegisterConsumer(c))

	for range 20 {
		require.True(t, eb.PublishScan(&ScanEvent{Type: NewEntity}))
	}
	require.NoError(t, eb.Shutdown(2*time.Second))
	assert.Equal(t, int32(20), c.called.Load())
	assert.False(t, eb.PublishScan(&ScanEvent{Type: NewEntity}), "closed bus rejects events")
}

func TestGlobalInitialize(t *testing.T) {
	eb, err := Initialize(&Config{BufferSize: 10, Workers: 1, Enabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, ResetGlobal(time.Second)) })

	again, err := Initialize(nil)
	require.NoError(t, err)
	assert.Same(t, eb, again)
	assert.Same(t, eb, GetEventBus())
}

func TestAdapterForwardsErrorEvents(t *testing.T) {
	t.Parallel()
	eb := newTestBus(t, nil)
	adapter := NewEventPublisherAdapter(eb)

	ev := &mockErrorEvent{component: "datastore", message: "disk full"}
	assert.False(t, adapter.TryPublish(ev), "no consumers yet")

	c := &mockConsumer{name: "errs"}
	require.NoError(t, eb.RegisterConsumer(c))
	assert.False(t, adapter.TryPublish("not an event"))
	assert.True(t, adapter.TryPublish(ev))
	waitCalled(t, c, 1)
}

func TestScanEventMessages(t *testing.T) {
	t.Parallel()
	tests := []struct {
		event   ScanEvent
		want    string
		failure bool
	}{
		{ScanEvent{Type: ScanStarted, SessionID: "abc"}, "Scan started (session abc)", false},
		{ScanEvent{Type: ScanStopped, SessionID: "abc", Metadata: map[string]any{"new_networks": 3}}, "Scan stopped (session abc, 3 new)", false},
		{ScanEvent{Type: NewEntity, Kind: "WIFI", Name: "cafe", Level: -60}, "New WIFI: cafe at -60 dBm", false},
		{ScanEvent{Type: NewEntity, Kind: "BLE", Address: "AA:BB:CC:DD:EE:FF", Level: -70}, "New BLE: AA:BB:CC:DD:EE:FF at -70 dBm", false},
		{ScanEvent{Type: ScannerFailed, Scanner: "wifi", Error: "no device"}, "wifi scanner disabled: no device", true},
		{ScanEvent{Type: WriteFailed, Address: "A", Error: "locked"}, "Failed to store sighting of A: locked", true},
		{ScanEvent{Type: PositionFailed, Error: "timeout"}, "Position source failed: timeout", true},
		{ScanEvent{Type: IRKResolved, Address: "A", IRKID: "k"}, "Address A resolved with key k", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.event.Type), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.event.Message())
			assert.Equal(t, tt.failure, tt.event.IsFailure())
		})
	}
}
