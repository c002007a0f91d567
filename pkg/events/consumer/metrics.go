package consumer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/relaydocs/document-events/pkg/events/consumer"

type metrics struct {
	consumed      metric.Int64Counter
	duplicates    metric.Int64Counter
	applyFailures metric.Int64Counter
	deadLettered  metric.Int64Counter
	consumer      attribute.KeyValue
}

func newMetrics(mp metric.MeterProvider, consumerName string) (*metrics, error) {
	meter := mp.Meter(meterName)
	m := &metrics{consumer: attribute.String("consumer", consumerName)}

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.consumed, "events.consumed", "Events claimed and applied"},
		{&m.duplicates, "events.duplicates", "Deliveries skipped because the event was already claimed"},
		{&m.applyFailures, "events.apply_failures", "Claimed events whose applier failed"},
		{&m.deadLettered, "events.dead_lettered", "Messages abandoned and handed to the dead letter queue"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("{event}"))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.target = counter
	}
	return m, nil
}

func (m *metrics) recordConsumed(ctx context.Context, eventType string) {
	m.consumed.Add(ctx, 1, metric.WithAttributes(m.consumer, attribute.String("event_type", eventType)))
}

func (m *metrics) recordDuplicate(ctx context.Context, eventType string) {
	m.duplicates.Add(ctx, 1, metric.WithAttributes(m.consumer, attribute.String("event_type", eventType)))
}

func (m *metrics) recordApplyFailure(ctx context.Context, eventType string) {
	m.applyFailures.Add(ctx, 1, metric.WithAttributes(m.consumer, attribute.String("event_type", eventType)))
}

func (m *metrics) recordDeadLettered(ctx context.Context, reason string) {
	m.deadLettered.Add(ctx, 1, metric.WithAttributes(m.consumer, attribute.String("reason", reason)))
}
