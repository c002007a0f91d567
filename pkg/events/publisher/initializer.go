package publisher

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

const brokerPollInterval = time.Second

type metadataProvider interface {
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
}

// waitForBrokers blocks until at least one broker answers a metadata request.
// When failOnError is false a timeout is only logged; the producer keeps
// buffering and librdkafka connects once a broker is reachable.
func waitForBrokers(ctx context.Context, p metadataProvider, log *zap.Logger, timeoutSec int, failOnError bool) error {
	log.Info("waiting for kafka brokers", zap.Int("timeout_seconds", timeoutSec))

	if timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
		defer cancel()
	}

	if err := pollBrokers(ctx, p, brokerPollInterval); err != nil {
		if failOnError {
			return err
		}
		log.Warn("brokers not ready, continuing", zap.Error(err))
		return nil
	}

	log.Info("producer ready")
	return nil
}

func pollBrokers(ctx context.Context, p metadataProvider, interval time.Duration) error {
	for {
		if meta, err := p.GetMetadata(nil, false, 5000); err == nil && len(meta.Brokers) > 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
