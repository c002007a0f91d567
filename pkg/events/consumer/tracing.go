package consumer

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/relaydocs/document-events/pkg/events/internal/kafkaheaders"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/relaydocs/document-events/pkg/events/consumer"

// MessageTracer creates spans for consumed messages and carries trace
// context through Kafka headers.
type MessageTracer interface {
	ExtractContext(ctx context.Context, message *kafka.Message) context.Context
	StartConsumerSpan(ctx context.Context, message *kafka.Message) (context.Context, trace.Span)
	StartDLQSpan(ctx context.Context, message *kafka.Message, dlqTopic string) (context.Context, trace.Span)
	InjectContext(ctx context.Context, message *kafka.Message)
}

type messageTracer struct {
	tracer trace.Tracer
}

func newMessageTracer(tp trace.TracerProvider) MessageTracer {
	return &messageTracer{tracer: tp.Tracer(tracerName)}
}

func (t *messageTracer) ExtractContext(ctx context.Context, message *kafka.Message) context.Context {
	return kafkaheaders.Extract(ctx, message.Headers)
}

func (t *messageTracer) StartConsumerSpan(ctx context.Context, message *kafka.Message) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", topicOf(message)),
		attribute.Int("messaging.partition", int(message.TopicPartition.Partition)),
		attribute.Int64("messaging.offset", int64(message.TopicPartition.Offset)),
		attribute.String("messaging.message.key", string(message.Key)),
	}
	if eventType, ok := kafkaheaders.Value(message.Headers, kafkaheaders.EventType); ok {
		attrs = append(attrs, attribute.String("relaydocs.event_type", eventType))
	}
	return t.tracer.Start(ctx, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attrs...),
	)
}

func (t *messageTracer) StartDLQSpan(ctx context.Context, message *kafka.Message, dlqTopic string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "kafka.send_to_dlq",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", dlqTopic),
			attribute.String("messaging.source.topic", topicOf(message)),
			attribute.Int("messaging.source.partition", int(message.TopicPartition.Partition)),
			attribute.Int64("messaging.source.offset", int64(message.TopicPartition.Offset)),
			attribute.String("messaging.message.key", string(message.Key)),
		),
	)
}

func (t *messageTracer) InjectContext(ctx context.Context, message *kafka.Message) {
	message.Headers = kafkaheaders.Inject(ctx, message.Headers)
}

func topicOf(message *kafka.Message) string {
	if message.TopicPartition.Topic == nil {
		return ""
	}
	return *message.TopicPartition.Topic
}
