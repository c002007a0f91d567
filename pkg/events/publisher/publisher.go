// Package publisher emits domain events to the events topic.
//
// Exactly one Publisher is provided per application: the Kafka publisher when
// events.publishing.enabled is true, a no-op otherwise. Callers never branch
// on the setting.
package publisher

import "context"

// Publisher emits one domain event.
//
// The event is keyed by aggregateID, so all events of an aggregate land on the
// same partition and are consumed in publish order. An error means the event
// was not accepted by the broker; it is never silently dropped.
type Publisher interface {
	Publish(ctx context.Context, eventType, aggregateID string, payload map[string]any) error
}

type noopPublisher struct{}

// NewNoop returns a Publisher that does nothing and never fails.
func NewNoop() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, string, map[string]any) error {
	return nil
}
