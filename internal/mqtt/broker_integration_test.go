//go:build integration

package mqtt

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tphakala/rfscan-go/internal/events"
)

// startBroker runs a disposable Mosquitto broker that accepts anonymous
// clients and returns its tcp:// URL.
func startBroker(t *testing.T) string {
	t.Helper()
	ctx := t.Context()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "eclipse-mosquitto:2.0",
			ExposedPorts: []string{"1883/tcp"},
			Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
			WaitingFor:   wait.ForListeningPort("1883/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "1883/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func TestPublisherAgainstBroker(t *testing.T) {
	broker := startBroker(t)

	received := make(chan paho.Message, 1)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("rfscan-test-sub"))
	tok := sub.Connect()
	require.True(t, tok.WaitTimeout(10*time.Second))
	require.NoError(t, tok.Error())
	defer sub.Disconnect(0)

	tok = sub.Subscribe("survey/#", 0, func(_ paho.Client, m paho.Message) {
		select {
		case received <- m:
		default:
		}
	})
	require.True(t, tok.WaitTimeout(10*time.Second))
	require.NoError(t, tok.Error())

	cfg := DefaultConfig()
	cfg.Broker = broker
	cfg.Topic = "survey"
	client := NewClient(cfg, nil)
	require.NoError(t, client.Connect(t.Context()))
	defer client.Disconnect()
	require.True(t, client.IsConnected())

	p := NewPublisher(client, cfg)
	require.NoError(t, p.ProcessScanEvent(&events.ScanEvent{
		Type:      events.NewEntity,
		Timestamp: time.Now(),
		Address:   "AA:BB:CC:DD:EE:01",
		Kind:      "WIFI",
		Name:      "depot",
		Level:     -52,
	}))

	select {
	case m := <-received:
		assert.Equal(t, "survey/entity", m.Topic())
		var dto map[string]any
		require.NoError(t, json.Unmarshal(m.Payload(), &dto))
		assert.Equal(t, "AA:BB:CC:DD:EE:01", dto["address"])
	case <-time.After(10 * time.Second):
		t.Fatal("no message received from broker")
	}
}
