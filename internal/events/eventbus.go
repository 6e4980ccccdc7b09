package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/rfscan-go/internal/logger"
)

// envelope carries exactly one of its fields through the bus channel.
type envelope struct {
	err  ErrorEvent
	scan *ScanEvent
}

// EventBus provides asynchronous event processing with non-blocking guarantees
type EventBus struct {
	eventChan chan envelope

	bufferSize int
	workers    int

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	initialized atomic.Bool
	running     atomic.Bool
	mu          sync.Mutex

	consumers []EventConsumer
	dedup     *ErrorDeduplicator

	stats EventBusStats

	logger logger.Logger
}

// Global event bus instance (lazily initialized)
var (
	globalEventBus *EventBus
	globalMutex    sync.Mutex
)

// Config holds event bus configuration
type Config struct {
	BufferSize    int
	Workers       int
	Enabled       bool
	Deduplication *DeduplicationConfig
}

// DefaultConfig returns the default event bus configuration.
// A single worker delivers scan events in publish order.
func DefaultConfig() *Config {
	return &Config{
		BufferSize:    1000,
		Workers:       1,
		Enabled:       true,
		Deduplication: DefaultDeduplicationConfig(),
	}
}

// GetLogger returns the events package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("events")
}

// NewEventBus creates a stopped event bus. Workers start with the first consumer.
func NewEventBus(config *Config) *EventBus {
	if config == nil {
		config = DefaultConfig()
	}
	workers := max(config.Workers, 1)
	bufferSize := max(config.BufferSize, 1)

	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		eventChan:  make(chan envelope, bufferSize),
		bufferSize: bufferSize,
		workers:    workers,
		ctx:        ctx,
		cancel:     cancel,
		logger:     GetLogger(),
	}
	if config.Deduplication != nil && config.Deduplication.Enabled {
		eb.dedup = NewErrorDeduplicator(config.Deduplication)
	}
	eb.initialized.Store(true)
	return eb
}

// Initialize creates or returns the global event bus instance
func Initialize(config *Config) (*EventBus, error) {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	if globalEventBus != nil {
		return globalEventBus, nil
	}
	if config == nil {
		config = DefaultConfig()
	}
	if !config.Enabled {
		return nil, nil
	}

	globalEventBus = NewEventBus(config)
	globalEventBus.logger.Info("event bus initialized",
		logger.Int("buffer_size", globalEventBus.bufferSize),
		logger.Int("workers", globalEventBus.workers))
	return globalEventBus, nil
}

// GetEventBus returns the global event bus instance
func GetEventBus() *EventBus {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	return globalEventBus
}

// ResetGlobal shuts down and forgets the global instance.
func ResetGlobal(timeout time.Duration) error {
	globalMutex.Lock()
	eb := globalEventBus
	globalEventBus = nil
	globalMutex.Unlock()
	return eb.Shutdown(timeout)
}

// RegisterConsumer adds a new event consumer
func (eb *EventBus) RegisterConsumer(consumer EventConsumer) error {
	if eb == nil {
		return fmt.Errorf("event bus not initialized")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, existing := range eb.consumers {
		if existing.Name() == consumer.Name() {
			return fmt.Errorf("consumer %s already registered", consumer.Name())
		}
	}

	eb.consumers = append(eb.consumers, consumer)

	_, scans := consumer.(ScanEventConsumer)
	eb.logger.Info("registered event consumer",
		logger.String("consumer", consumer.Name()),
		logger.Bool("scan_events", scans))

	if len(eb.consumers) == 1 && !eb.running.Load() && eb.ctx.Err() == nil {
		eb.start()
	}
	return nil
}

// HasConsumers reports whether anything would receive a published event.
func (eb *EventBus) HasConsumers() bool {
	if eb == nil || !eb.running.Load() {
		return false
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return len(eb.consumers) > 0
}

// TryPublish attempts to publish an error event without blocking.
// Returns true if the event was accepted, false if dropped or suppressed.
func (eb *EventBus) TryPublish(event ErrorEvent) bool {
	if !eb.HasConsumers() {
		return false
	}
	if !eb.dedup.ShouldProcess(event) {
		atomic.AddUint64(&eb.stats.EventsSuppressed, 1)
		return false
	}
	return eb.enqueue(envelope{err: event}, event.GetComponent())
}

// PublishScan attempts to publish a scan event without blocking.
func (eb *EventBus) PublishScan(event *ScanEvent) bool {
	if event == nil || !eb.HasConsumers() {
		return false
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return eb.enqueue(envelope{scan: event}, string(event.Type))
}

func (eb *EventBus) enqueue(env envelope, label string) bool {
	select {
	case eb.eventChan <- env:
		atomic.AddUint64(&eb.stats.EventsReceived, 1)
		return true
	default:
		atomic.AddUint64(&eb.stats.EventsDropped, 1)
		eb.logger.Debug("event dropped due to full buffer", logger.String("event", label))
		return false
	}
}

// start begins the worker goroutines
func (eb *EventBus) start() {
	if eb.running.Swap(true) {
		return
	}
	eb.logger.Debug("starting event bus workers", logger.Int("count", eb.workers))
	for i := range eb.workers {
		eb.wg.Add(1)
		go eb.worker(i)
	}
}

// worker processes events until the bus is shut down, then drains what is
// already queued.
func (eb *EventBus) worker(id int) {
	defer eb.wg.Done()
	log := eb.logger.With(logger.Int("worker_id", id))

	for {
		select {
		case <-eb.ctx.Done():
			for {
				select {
				case env := <-eb.eventChan:
					eb.dispatch(env, log)
				default:
					return
				}
			}
		case env := <-eb.eventChan:
			eb.dispatch(env, log)
		}
	}
}

// dispatch sends the event to all registered consumers
func (eb *EventBus) dispatch(env envelope, log logger.Logger) {
	eb.mu.Lock()
	consumers := make([]EventConsumer, len(eb.consumers))
	copy(consumers, eb.consumers)
	eb.mu.Unlock()

	for _, consumer := range consumers {
		eb.deliver(consumer, env, log)
	}
}

func (eb *EventBus) deliver(consumer EventConsumer, env envelope, log logger.Logger) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
			log.Error("consumer panicked",
				logger.String("consumer", consumer.Name()),
				logger.Any("panic", r))
		}
	}()

	var err error
	switch {
	case env.scan != nil:
		sc, ok := consumer.(ScanEventConsumer)
		if !ok {
			return
		}
		err = sc.ProcessScanEvent(env.scan)
	case env.err != nil:
		err = consumer.ProcessEvent(env.err)
	}

	if err != nil {
		atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
		log.Error("consumer error",
			logger.String("consumer", consumer.Name()),
			logger.Error(err))
		return
	}
	atomic.AddUint64(&eb.stats.EventsProcessed, 1)
}

// Shutdown stops accepting events, lets workers drain the queue and waits
// for them up to timeout.
func (eb *EventBus) Shutdown(timeout time.Duration) error {
	if eb == nil || !eb.initialized.Load() {
		return nil
	}

	eb.running.Store(false)
	eb.cancel()
	eb.dedup.Shutdown()

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		eb.logger.Debug("event bus shutdown complete")
		return nil
	case <-time.After(timeout):
		eb.logger.Warn("event bus shutdown timeout exceeded", logger.Duration("timeout", timeout))
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// GetStats returns current event bus statistics
func (eb *EventBus) GetStats() EventBusStats {
	if eb == nil {
		return EventBusStats{}
	}
	return EventBusStats{
		EventsReceived:   atomic.LoadUint64(&eb.stats.EventsReceived),
		EventsSuppressed: atomic.LoadUint64(&eb.stats.EventsSuppressed),
		EventsProcessed:  atomic.LoadUint64(&eb.stats.EventsProcessed),
		EventsDropped:    atomic.LoadUint64(&eb.stats.EventsDropped),
		ConsumerErrors:   atomic.LoadUint64(&eb.stats.ConsumerErrors),
	}
}
