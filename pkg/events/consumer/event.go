package consumer

import (
	"context"
	"time"

	"github.com/relaydocs/document-events/pkg/core/logger"
	"go.uber.org/zap"
)

// Event is a decoded, identified domain event handed to an Applier.
type Event struct {
	ID          string
	Type        string
	AggregateID string
	// OccurredAt is nil when the producer did not send a usable timestamp.
	OccurredAt *time.Time
	Payload    map[string]any
}

// Applier performs the business effect of an event. It is invoked at most
// once per event id for a consumer.
type Applier interface {
	Apply(ctx context.Context, event Event) error
}

type ApplierFunc func(ctx context.Context, event Event) error

func (f ApplierFunc) Apply(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Router dispatches events to appliers by event type. Events without a route
// go to the fallback, or are ignored when none is set.
type Router struct {
	routes   map[string]Applier
	fallback Applier
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]Applier)}
}

func (r *Router) Handle(eventType string, a Applier) *Router {
	r.routes[eventType] = a
	return r
}

func (r *Router) HandleFunc(eventType string, f func(ctx context.Context, event Event) error) *Router {
	return r.Handle(eventType, ApplierFunc(f))
}

func (r *Router) Fallback(a Applier) *Router {
	r.fallback = a
	return r
}

func (r *Router) Apply(ctx context.Context, event Event) error {
	if a, ok := r.routes[event.Type]; ok {
		return a.Apply(ctx, event)
	}
	if r.fallback != nil {
		return r.fallback.Apply(ctx, event)
	}
	logger.Get(ctx).Debug("no applier for event type, ignoring", zap.String("event_type", event.Type))
	return nil
}
