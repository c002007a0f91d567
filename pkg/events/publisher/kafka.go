package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/relaydocs/document-events/pkg/events/envelope"
	"github.com/relaydocs/document-events/pkg/events/internal/kafkaheaders"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/relaydocs/document-events/pkg/events/publisher"

// ErrNotDelivered is returned when the broker rejects the event or the
// delivery report does not arrive in time.
var ErrNotDelivered = errors.New("event not delivered")

type kafkaProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

type kafkaPublisher struct {
	producer        kafkaProducer
	topic           string
	deliveryTimeout time.Duration
	tracer          trace.Tracer
	published       metric.Int64Counter
	log             *zap.Logger
	now             func() time.Time
}

func newKafkaPublisher(
	producer kafkaProducer,
	topic string,
	deliveryTimeout time.Duration,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	log *zap.Logger,
) (*kafkaPublisher, error) {
	published, err := mp.Meter(instrumentationName).Int64Counter("events.published",
		metric.WithDescription("Events acknowledged by the broker"),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create events.published counter: %w", err)
	}
	return &kafkaPublisher{
		producer:        producer,
		topic:           topic,
		deliveryTimeout: deliveryTimeout,
		tracer:          tp.Tracer(instrumentationName),
		published:       published,
		log:             log,
		now:             time.Now,
	}, nil
}

// Publish blocks until the broker acknowledges the event, ctx ends or the
// delivery timeout passes.
func (p *kafkaPublisher) Publish(ctx context.Context, eventType, aggregateID string, payload map[string]any) error {
	ctx, span := p.tracer.Start(ctx, "kafka.produce",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", p.topic),
			attribute.String("messaging.message.key", aggregateID),
			attribute.String("relaydocs.event_type", eventType),
		),
	)
	defer span.End()

	err := p.publish(ctx, eventType, aggregateID, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return err
	}
	span.SetStatus(codes.Ok, "event published")
	p.published.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
	return nil
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType, aggregateID string, payload map[string]any) error {
	value, err := envelope.EncodeAt(eventType, aggregateID, payload, p.now())
	if err != nil {
		return err
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(aggregateID),
		Value:          value,
		Headers: kafkaheaders.Inject(ctx, []kafka.Header{
			{Key: kafkaheaders.EventType, Value: []byte(eventType)},
		}),
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := p.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("failed to publish %s for aggregate %s: %w", eventType, aggregateID, err)
	}

	timer := time.NewTimer(p.deliveryTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %s for aggregate %s: %w", ErrNotDelivered, eventType, aggregateID, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: %s for aggregate %s: no delivery report after %v", ErrNotDelivered, eventType, aggregateID, p.deliveryTimeout)
	case e := <-deliveryChan:
		delivered, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("%w: unexpected delivery event %T", ErrNotDelivered, e)
		}
		if delivered.TopicPartition.Error != nil {
			return fmt.Errorf("%w: %s for aggregate %s: %w", ErrNotDelivered, eventType, aggregateID, delivered.TopicPartition.Error)
		}
		p.log.Debug("event published",
			zap.String("event_type", eventType),
			zap.String("aggregate_id", aggregateID),
			zap.Int32("partition", delivered.TopicPartition.Partition),
			zap.Int64("offset", int64(delivered.TopicPartition.Offset)))
		return nil
	}
}
