package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/events"
)

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mu         sync.Mutex
	connected  bool
	publishErr error
	messages   []published
}

func (f *fakeClient) Connect(context.Context) error { return nil }
func (f *fakeClient) IsConnected() bool              { return f.connected }
func (f *fakeClient) Disconnect()                    {}

func (f *fakeClient) Publish(_ context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.messages = append(f.messages, published{topic: topic, payload: payload})
	return nil
}

func TestPublisherTopics(t *testing.T) {
	p := NewPublisher(&fakeClient{}, Config{Topic: "fleet/van-1/"})
	assert.Equal(t, "fleet/van-1/state", p.Topic(events.ScanStarted))
	assert.Equal(t, "fleet/van-1/state", p.Topic(events.ScanStopped))
	assert.Equal(t, "fleet/van-1/entity", p.Topic(events.NewEntity))
	assert.Equal(t, "fleet/van-1/identity", p.Topic(events.IRKResolved))
	assert.Equal(t, "fleet/van-1/failure", p.Topic(events.ScannerFailed))
	assert.Equal(t, "fleet/van-1/failure", p.Topic(events.WriteFailed))

	bare := NewPublisher(&fakeClient{}, Config{})
	assert.Equal(t, "entity", bare.Topic(events.NewEntity))
}

func TestPublisherPublishesNewEntity(t *testing.T) {
	client := &fakeClient{connected: true}
	p := NewPublisher(client, DefaultConfig())

	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, p.ProcessScanEvent(&events.ScanEvent{
		Type:      events.NewEntity,
		Timestamp: ts,
		SessionID: "s-1",
		Address:   "AA:BB:CC:00:00:01",
		Kind:      "WIFI",
		Name:      "depot",
		Level:     -55,
	}))

	require.Len(t, client.messages, 1)
	msg := client.messages[0]
	assert.Equal(t, "rfscan/entity", msg.topic)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "new_entity", got["type"])
	assert.Equal(t, "AA:BB:CC:00:00:01", got["address"])
	assert.InDelta(t, -55, got["level"], 0)
	assert.InDelta(t, 64, got["signalQuality"], 0)
	assert.Equal(t, "Good", got["signalLabel"])
	assert.Equal(t, "New WIFI: depot at -55 dBm", got["message"])
	assert.NotContains(t, got, "newNetworks")
}

func TestPublisherStopSummary(t *testing.T) {
	client := &fakeClient{connected: true}
	p := NewPublisher(client, DefaultConfig())

	require.NoError(t, p.ProcessScanEvent(&events.ScanEvent{
		Type:      events.ScanStopped,
		SessionID: "s-1",
		Metadata:  map[string]any{"new_networks": int64(4), "total_sightings": int64(6)},
	}))

	var got ScanEventDTO
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &got))
	require.NotNil(t, got.NewNetworks)
	assert.EqualValues(t, 4, *got.NewNetworks)
	assert.EqualValues(t, 6, *got.TotalSightings)
	assert.Nil(t, got.Level)
}

func TestPublisherSkipsWhenDisconnected(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, DefaultConfig())
	require.NoError(t, p.ProcessScanEvent(&events.ScanEvent{Type: events.ScanStarted}))
	assert.Empty(t, client.messages)
}

func TestPublisherReturnsPublishError(t *testing.T) {
	client := &fakeClient{connected: true, publishErr: errors.New("broker gone")}
	p := NewPublisher(client, DefaultConfig())
	err := p.ProcessScanEvent(&events.ScanEvent{Type: events.ScannerFailed, Scanner: "ble", Error: "adapter busy"})
	require.Error(t, err)
}

func TestPublisherOnEventBus(t *testing.T) {
	bus := events.NewEventBus(&events.Config{BufferSize: 16, Workers: 1, Enabled: true})
	defer func() { _ = bus.Shutdown(time.Second) }()

	client := &fakeClient{connected: true}
	require.NoError(t, bus.RegisterConsumer(NewPublisher(client, DefaultConfig())))

	bus.PublishScan(&events.ScanEvent{Type: events.ScanStarted, SessionID: "s-1"})
	bus.PublishScan(&events.ScanEvent{Type: events.NewEntity, Address: "AA:BB:CC:00:00:01", Kind: "WIFI"})

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.messages) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "rfscan/state", client.messages[0].topic)
	assert.Equal(t, "rfscan/entity", client.messages[1].topic)
}

func TestConfigFromSettings(t *testing.T) {
	cfg := ConfigFromSettings(&conf.MQTTSettings{Broker: "tcp://broker:1883", Username: "scanner"})
	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
	assert.Equal(t, "rfscan", cfg.ClientID)
	assert.Equal(t, "rfscan", cfg.Topic)
	assert.Equal(t, "scanner", cfg.Username)
	assert.Equal(t, 10*time.Second, cfg.PublishTimeout)
}

func TestClientPublishRequiresConnection(t *testing.T) {
	c := NewClient(DefaultConfig(), nil)
	assert.False(t, c.IsConnected())
	require.Error(t, c.Publish(t.Context(), "rfscan/state", []byte("{}")))
	c.Disconnect()
}

func TestClientConnectRejectsUnresolvableHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker = "tcp://broker.invalid:1883"
	c := NewClient(cfg, nil)
	require.Error(t, c.Connect(t.Context()))
	assert.False(t, c.IsConnected())
}
