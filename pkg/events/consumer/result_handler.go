package consumer

import (
	"context"
	"errors"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type offsetStorer interface {
	StoreMessage(m *kafka.Message) (storedOffsets []kafka.TopicPartition, err error)
}

// resultHandler acts on the outcome of a message. Offsets are stored only
// here, after the message is fully handled; auto-commit flushes them.
type resultHandler struct {
	log        *zap.Logger
	dlqHandler DLQHandler
	consumer   offsetStorer
	metrics    *metrics
}

func newResultHandler(log *zap.Logger, dlqHandler DLQHandler, consumer offsetStorer, m *metrics) *resultHandler {
	return &resultHandler{
		log:        log,
		dlqHandler: dlqHandler,
		consumer:   consumer,
		metrics:    m,
	}
}

func (h *resultHandler) handle(ctx context.Context, message *kafka.Message, outcome Outcome, err error, span trace.Span) {
	switch {
	case err == nil:
		span.SetAttributes(attribute.String("relaydocs.outcome", outcome.String()))
		if outcome == OutcomeApplyFailed {
			// The claim stays, so the message is not retried.
			span.SetStatus(codes.Error, "apply failed, claim kept")
		} else {
			span.SetStatus(codes.Ok, "message handled")
		}
		h.storeOffset(message)

	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// Stopped mid-message. The offset stays where it was so the message
		// is delivered again after restart or rebalance.
		span.SetStatus(codes.Error, "processing interrupted")
		h.log.Info("message processing interrupted, leaving it for redelivery", h.messageFields(message)...)

	case errors.Is(err, ErrPermanent):
		span.RecordError(err)
		span.SetStatus(codes.Error, "permanent error - sending to DLQ")
		h.log.Error("permanent error - sending message to DLQ", h.messageFieldsWithError(message, err)...)
		h.deadLetter(ctx, message, err, "permanent")

	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "retries exhausted - sending to DLQ")
		h.log.Error("message processing failed after retries - sending to DLQ", h.messageFieldsWithError(message, err)...)
		h.deadLetter(ctx, message, err, "retries_exhausted")
	}
}

func (h *resultHandler) deadLetter(ctx context.Context, message *kafka.Message, err error, reason string) {
	h.dlqHandler.SendToDLQ(ctx, message, err)
	h.metrics.recordDeadLettered(ctx, reason)
	h.storeOffset(message)
}

func (h *resultHandler) storeOffset(message *kafka.Message) {
	if _, err := h.consumer.StoreMessage(message); err != nil {
		h.log.Error("failed to store offset", h.messageFieldsWithError(message, err)...)
	}
}

func (h *resultHandler) messageFields(message *kafka.Message) []zap.Field {
	return []zap.Field{
		zap.String("key", string(message.Key)),
		zap.Int32("partition", message.TopicPartition.Partition),
		zap.Int64("offset", int64(message.TopicPartition.Offset)),
	}
}

func (h *resultHandler) messageFieldsWithError(message *kafka.Message, err error) []zap.Field {
	return append(h.messageFields(message), zap.Error(err))
}
