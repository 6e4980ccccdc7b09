// Package errors - event bus integration
package errors

import (
	"sync/atomic"
)

// EventPublisher is an interface for publishing error events.
// It lets the errors package hand errors to the event bus without importing it.
type EventPublisher interface {
	TryPublish(event any) bool
}

type publisherHolder struct {
	publisher EventPublisher
}

// Global event publisher (set by the events package)
var globalEventPublisher atomic.Pointer[publisherHolder]

// SetEventPublisher sets the global event publisher. Passing nil detaches it.
func SetEventPublisher(publisher EventPublisher) {
	if publisher == nil {
		globalEventPublisher.Store(nil)
	} else {
		globalEventPublisher.Store(&publisherHolder{publisher: publisher})
	}
	updateReportingState()
}

// ClearEventPublisher detaches the event publisher
func ClearEventPublisher() {
	SetEventPublisher(nil)
}

// publishToEventBus publishes an error to the event bus if available.
// It returns false when no bus is attached or the bus rejected the event.
func publishToEventBus(ee *EnhancedError) bool {
	holder := globalEventPublisher.Load()
	if holder == nil || holder.publisher == nil {
		return false
	}
	return holder.publisher.TryPublish(ee)
}
