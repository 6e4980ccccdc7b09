package events

// EventPublisherAdapter adapts the EventBus to the errors.EventPublisher
// interface so the errors package can publish without importing events.
type EventPublisherAdapter struct {
	eventBus *EventBus
}

// NewEventPublisherAdapter creates a new adapter
func NewEventPublisherAdapter(eventBus *EventBus) *EventPublisherAdapter {
	return &EventPublisherAdapter{eventBus: eventBus}
}

// TryPublish accepts any and forwards it when it is an ErrorEvent.
func (a *EventPublisherAdapter) TryPublish(event any) bool {
	if a.eventBus == nil || !a.eventBus.HasConsumers() {
		return false
	}
	errorEvent, ok := event.(ErrorEvent)
	if !ok {
		return false
	}
	return a.eventBus.TryPublish(errorEvent)
}
