package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/tphakala/rfscan-go/internal/events"
	"github.com/tphakala/rfscan-go/internal/logger"
)

// Topic suffixes under the configured prefix.
const (
	TopicState    = "state"   // scan started and stopped
	TopicEntity   = "entity"  // new networks and devices
	TopicFailure  = "failure" // scanner, position and write failures
	TopicIdentity = "identity"
)

// Publisher forwards scan events to MQTT. It implements
// events.ScanEventConsumer and runs on the event bus workers.
type Publisher struct {
	client  Client
	prefix  string
	timeout time.Duration
	log     logger.Logger
}

// NewPublisher creates a publisher writing under cfg.Topic.
func NewPublisher(client Client, cfg Config) *Publisher {
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().PublishTimeout
	}
	return &Publisher{
		client:  client,
		prefix:  strings.TrimSuffix(cfg.Topic, "/"),
		timeout: timeout,
		log:     GetLogger(),
	}
}

// Name implements events.EventConsumer.
func (p *Publisher) Name() string { return "mqtt" }

// ProcessEvent implements events.EventConsumer. Error events are not
// published.
func (p *Publisher) ProcessEvent(events.ErrorEvent) error { return nil }

// ProcessScanEvent publishes e to its topic.
func (p *Publisher) ProcessScanEvent(e *events.ScanEvent) error {
	if !p.client.IsConnected() {
		p.log.Debug("skipping publish, broker not connected", logger.String("event", string(e.Type)))
		return nil
	}

	payload, err := json.Marshal(NewScanEventDTO(e))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	topic := p.Topic(e.Type)
	if err := p.client.Publish(ctx, topic, payload); err != nil {
		p.log.Warn("publish failed", logger.String("topic", topic), logger.Error(err))
		return err
	}
	return nil
}

// Topic returns the full topic for an event type.
func (p *Publisher) Topic(t events.ScanEventType) string {
	var suffix string
	switch t {
	case events.ScanStarted, events.ScanStopped:
		suffix = TopicState
	case events.NewEntity:
		suffix = TopicEntity
	case events.IRKResolved:
		suffix = TopicIdentity
	default:
		suffix = TopicFailure
	}
	if p.prefix == "" {
		return suffix
	}
	return p.prefix + "/" + suffix
}

var _ events.ScanEventConsumer = (*Publisher)(nil)
