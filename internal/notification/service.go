// Package notification sends push notifications about scan lifecycle
// events through shoutrrr service URLs.
package notification

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/events"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/observability/metrics"
)

const (
	serviceName       = "shoutrrr"
	defaultTimeout    = 10 * time.Second
	defaultQueueSize  = 32
	notificationTitle = "rfscan"
)

// GetLogger returns the notification package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("notification")
}

// Sender delivers one message to every configured service.
// *router.ServiceRouter from shoutrrr satisfies it.
type Sender interface {
	Send(message string, params *stypes.Params) []error
}

type message struct {
	event string
	title string
	body  string
}

// Service is an event bus consumer that turns scan start, stop and failure
// events into push notifications. Delivery happens on a background
// goroutine so a slow service never stalls the bus.
type Service struct {
	sender  Sender
	timeout time.Duration
	breaker *CircuitBreaker
	metrics *metrics.NotificationMetrics
	log     logger.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan message
	wg     sync.WaitGroup
}

// NewService builds a shoutrrr sender for the configured URLs.
func NewService(settings *conf.NotificationSettings, m *metrics.NotificationMetrics) (*Service, error) {
	if len(settings.URLs) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	router, err := shoutrrr.CreateSender(settings.URLs...)
	if err != nil {
		// URLs carry tokens, so only the scrubbed text leaves this package
		return nil, errors.Newf("invalid notification URL: %s", errors.ScrubMessage(err.Error())).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	router.Timeout = timeout
	router.SetLogger(log.New(io.Discard, "", 0))

	return NewServiceWithSender(router, timeout, m), nil
}

// NewServiceWithSender creates a Service around an existing sender and
// starts its delivery goroutine.
func NewServiceWithSender(sender Sender, timeout time.Duration, m *metrics.NotificationMetrics) *Service {
	s := &Service{
		sender:  sender,
		timeout: timeout,
		breaker: NewCircuitBreaker(DefaultCircuitBreakerConfig(), serviceName),
		metrics: m,
		log:     GetLogger(),
		queue:   make(chan message, defaultQueueSize),
	}
	s.wg.Go(s.run)
	return s
}

// Name returns the consumer name.
func (s *Service) Name() string { return "notification" }

// ProcessEvent ignores error events; failures arrive as scan events.
func (s *Service) ProcessEvent(events.ErrorEvent) error { return nil }

// ProcessScanEvent queues a notification for lifecycle and failure events.
func (s *Service) ProcessScanEvent(event *events.ScanEvent) error {
	title, ok := titleFor(event)
	if !ok {
		return nil
	}

	msg := message{event: string(event.Type), title: title, body: event.Message()}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.queue <- msg:
	default:
		s.record(msg.event, metrics.StatusDropped, 0)
		s.log.Warn("notification queue full, dropping message", logger.String("event", msg.event))
	}
	return nil
}

// titleFor selects the events worth a push and their titles.
func titleFor(event *events.ScanEvent) (string, bool) {
	switch event.Type {
	case events.ScanStarted:
		return notificationTitle + ": scanning", true
	case events.ScanStopped:
		return notificationTitle + ": scan finished", true
	case events.ScannerFailed, events.PositionFailed:
		return notificationTitle + ": scanner problem", true
	default:
		return "", false
	}
}

func (s *Service) run() {
	for msg := range s.queue {
		s.deliver(msg)
	}
}

func (s *Service) deliver(msg message) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := s.breaker.Call(ctx, func(context.Context) error {
		params := stypes.Params{}
		params.SetTitle(msg.title)
		for _, e := range s.sender.Send(msg.body, &params) {
			if e != nil {
				return e
			}
		}
		return nil
	})

	if err != nil {
		s.record(msg.event, metrics.StatusError, time.Since(start))
		s.log.Warn("notification delivery failed",
			logger.String("event", msg.event),
			logger.String("error", errors.ScrubMessage(err.Error())))
		return
	}
	s.record(msg.event, metrics.StatusSuccess, time.Since(start))
	s.log.Debug("notification delivered", logger.String("event", msg.event))
}

func (s *Service) record(event, status string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordDelivery(serviceName, event, status, d)
	}
}

// Close stops accepting events and waits for queued deliveries.
func (s *Service) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

var _ events.ScanEventConsumer = (*Service)(nil)
