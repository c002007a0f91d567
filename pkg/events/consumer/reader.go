package consumer

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/relaydocs/document-events/pkg/core/logger"
	"go.uber.org/zap"
)

const defaultPollTimeout = 5 * time.Second

type messageReader interface {
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
}

// reader polls Kafka and forwards messages to the processor.
type reader struct {
	consumer    messageReader
	topic       string
	messages    chan<- *kafka.Message
	log         *zap.Logger
	throttler   *logger.LogThrottler
	pollTimeout time.Duration
}

func newReader(consumer messageReader, topic string, messages chan<- *kafka.Message, log *zap.Logger) *reader {
	return &reader{
		consumer:    consumer,
		topic:       topic,
		messages:    messages,
		log:         log,
		throttler:   logger.NewLogThrottler(log, 5*time.Minute),
		pollTimeout: defaultPollTimeout,
	}
}

// run reads until ctx is done. A message read but not yet handed over when
// ctx ends is dropped; its offset was never stored, so Kafka redelivers it.
func (r *reader) run(ctx context.Context) error {
	r.log.Info("reader started")
	defer r.log.Info("reader stopped")

	for ctx.Err() == nil {
		msg, err := r.consumer.ReadMessage(r.pollTimeout)
		if err != nil {
			rerr := wrapReaderError(err)
			switch {
			case rerr.isTimeout():
				continue
			case rerr.isFatal():
				r.log.Error(rerr.description, zap.String("topic", r.topic), zap.Error(err))
				return rerr
			default:
				r.throttler.Warn(rerr.key, rerr.description, zap.String("topic", r.topic), zap.Error(err))
				sleep(ctx, rerr.pause())
				continue
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case r.messages <- msg:
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
