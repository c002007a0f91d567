package consumer

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const dlqHeaderPrefix = "dlq."

// DLQHandler sends messages that could not be processed to a dead letter topic.
type DLQHandler interface {
	SendToDLQ(ctx context.Context, message *kafka.Message, processingErr error)
}

type kafkaProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

type dlqHandler struct {
	producer        kafkaProducer
	dlqTopic        string
	deliveryTimeout time.Duration
	tracer          MessageTracer
	log             *zap.Logger
	now             func() time.Time
}

func newDLQHandler(producer kafkaProducer, dlqTopic string, deliveryTimeout time.Duration, tracer MessageTracer, log *zap.Logger) DLQHandler {
	return &dlqHandler{
		producer:        producer,
		dlqTopic:        dlqTopic,
		deliveryTimeout: deliveryTimeout,
		tracer:          tracer,
		log:             log,
		now:             time.Now,
	}
}

func (h *dlqHandler) SendToDLQ(ctx context.Context, message *kafka.Message, processingErr error) {
	ctx, span := h.tracer.StartDLQSpan(ctx, message, h.dlqTopic)
	defer span.End()

	fields := []zap.Field{
		zap.String("dlq_topic", h.dlqTopic),
		zap.String("key", string(message.Key)),
		zap.Int32("original_partition", message.TopicPartition.Partition),
		zap.Int64("original_offset", int64(message.TopicPartition.Offset)),
	}

	dlqMessage := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &h.dlqTopic, Partition: kafka.PartitionAny},
		Key:            message.Key,
		Value:          message.Value,
		Headers:        h.headers(message, processingErr),
	}
	h.tracer.InjectContext(ctx, dlqMessage)

	deliveryChan := make(chan kafka.Event, 1)
	if err := h.producer.Produce(dlqMessage, deliveryChan); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send message to DLQ")
		h.log.Error("failed to send message to DLQ", append(fields, zap.Error(err))...)
		return
	}

	timer := time.NewTimer(h.deliveryTimeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		span.SetStatus(codes.Error, "timed out waiting for DLQ delivery")
		h.log.Error("timed out waiting for DLQ delivery report", fields...)
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		switch {
		case !ok:
			h.log.Error("unexpected event type from delivery channel", fields...)
		case m.TopicPartition.Error != nil:
			span.RecordError(m.TopicPartition.Error)
			span.SetStatus(codes.Error, "failed to deliver message to DLQ")
			h.log.Error("failed to deliver message to DLQ", append(fields, zap.Error(m.TopicPartition.Error))...)
		default:
			span.SetStatus(codes.Ok, "message sent to DLQ")
			h.log.Info("message sent to DLQ", fields...)
		}
	}
}

// headers keeps the original headers, drops dlq.* headers from an earlier
// dead-lettering and appends the current failure.
func (h *dlqHandler) headers(message *kafka.Message, processingErr error) []kafka.Header {
	headers := lo.Filter(message.Headers, func(hdr kafka.Header, _ int) bool {
		return !strings.HasPrefix(hdr.Key, dlqHeaderPrefix)
	})
	return append(headers,
		kafka.Header{Key: "dlq.original.topic", Value: []byte(topicOf(message))},
		kafka.Header{Key: "dlq.original.partition", Value: []byte(strconv.Itoa(int(message.TopicPartition.Partition)))},
		kafka.Header{Key: "dlq.original.offset", Value: []byte(strconv.FormatInt(int64(message.TopicPartition.Offset), 10))},
		kafka.Header{Key: "dlq.error", Value: []byte(processingErr.Error())},
		kafka.Header{Key: "dlq.timestamp", Value: []byte(h.now().UTC().Format(time.RFC3339))},
	)
}

// noopDLQHandler is used when the DLQ is disabled. The message is only logged.
type noopDLQHandler struct {
	log *zap.Logger
}

func newNoopDLQHandler(log *zap.Logger) DLQHandler {
	return &noopDLQHandler{log: log}
}

func (h *noopDLQHandler) SendToDLQ(_ context.Context, message *kafka.Message, processingErr error) {
	h.log.Warn("DLQ disabled, abandoning message",
		zap.String("key", string(message.Key)),
		zap.Int32("partition", message.TopicPartition.Partition),
		zap.Int64("offset", int64(message.TopicPartition.Offset)),
		zap.Error(processingErr))
}
