// Package kafkaheaders moves trace context and event metadata in and out of
// Kafka record headers.
package kafkaheaders

import (
	"context"
	"slices"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// EventType carries the envelope's eventType so brokers and tooling can
// filter without parsing the value.
const EventType = "event-type"

// Extract returns ctx enriched with the trace context found in headers.
func Extract(ctx context.Context, headers []kafka.Header) context.Context {
	if len(headers) == 0 {
		return ctx
	}
	carrier := propagation.MapCarrier(lo.Associate(headers, func(h kafka.Header) (string, string) {
		return h.Key, string(h.Value)
	}))
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// Inject returns headers with the trace context of ctx added. Headers that
// the propagator writes are replaced rather than duplicated.
func Inject(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return headers
	}

	out := lo.Filter(headers, func(h kafka.Header, _ int) bool {
		_, replaced := carrier[h.Key]
		return !replaced
	})
	keys := carrier.Keys()
	slices.Sort(keys)
	for _, key := range keys {
		out = append(out, kafka.Header{Key: key, Value: []byte(carrier[key])})
	}
	return out
}

// Value returns the first header named key.
func Value(headers []kafka.Header, key string) (string, bool) {
	h, ok := lo.Find(headers, func(h kafka.Header) bool { return h.Key == key })
	if !ok {
		return "", false
	}
	return string(h.Value), true
}
