package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const metadataRetryInterval = 5 * time.Second

type subscriber interface {
	SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
}

// initializer subscribes the consumer and waits until the topic has partitions.
type initializer struct {
	consumer         subscriber
	topic            string
	log              *zap.Logger
	timeoutSeconds   int
	failOnTopicError bool
	retryInterval    time.Duration
}

func newInitializer(consumer subscriber, topic string, log *zap.Logger, timeoutSeconds int, failOnTopicError bool) *initializer {
	return &initializer{
		consumer:         consumer,
		topic:            topic,
		log:              log,
		timeoutSeconds:   timeoutSeconds,
		failOnTopicError: failOnTopicError,
		retryInterval:    metadataRetryInterval,
	}
}

func (i *initializer) initialize(ctx context.Context) error {
	i.log.Info("subscribing to topic")
	if err := i.consumer.SubscribeTopics([]string{i.topic}, i.onRebalance); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", i.topic, err)
	}

	if i.timeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(i.timeoutSeconds)*time.Second)
		defer cancel()
	}
	return i.waitUntilReady(ctx)
}

func (i *initializer) waitUntilReady(ctx context.Context) error {
	i.log.Info("waiting for topic to be ready",
		zap.Int("timeout_seconds", i.timeoutSeconds),
		zap.Bool("fail_on_topic_error", i.failOnTopicError))

	var lastErr error
	for {
		if ctx.Err() != nil {
			if i.failOnTopicError {
				return fmt.Errorf("topic %s not ready: %w", i.topic, errors.Join(ctx.Err(), lastErr))
			}
			i.log.Warn("timeout waiting for topic, continuing anyway", zap.Error(lastErr))
			return nil
		}

		partitions, err := i.checkTopic(ctx)
		if err == nil {
			i.log.Info("topic is ready", zap.Int("partitions", partitions))
			return nil
		}
		lastErr = err
		i.log.Warn("topic not ready, retrying", zap.Error(err))
		sleep(ctx, i.retryInterval)
	}
}

func (i *initializer) checkTopic(ctx context.Context) (int, error) {
	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	metadata, err := i.consumer.GetMetadata(&i.topic, false, int(timeout.Milliseconds()))
	if err != nil {
		return 0, fmt.Errorf("failed to get topic metadata: %w", err)
	}
	topicMeta, ok := metadata.Topics[i.topic]
	if !ok {
		return 0, errors.New("topic not found in metadata")
	}
	if topicMeta.Error.Code() != kafka.ErrNoError {
		return 0, topicMeta.Error
	}
	if len(topicMeta.Partitions) == 0 {
		return 0, errors.New("topic has no partitions")
	}
	return len(topicMeta.Partitions), nil
}

func (i *initializer) onRebalance(_ *kafka.Consumer, event kafka.Event) error {
	switch ev := event.(type) {
	case kafka.AssignedPartitions:
		i.logPartitions("partitions assigned", ev.Partitions)
	case kafka.RevokedPartitions:
		i.logPartitions("partitions revoked", ev.Partitions)
	}
	return nil
}

func (i *initializer) logPartitions(msg string, partitions []kafka.TopicPartition) {
	if len(partitions) == 0 {
		i.log.Warn(msg + ": no partitions, the group may have more consumers than partitions")
		return
	}
	ids := lo.Map(partitions, func(p kafka.TopicPartition, _ int) int32 { return p.Partition })
	i.log.Info(msg, zap.Int32s("partitions", ids))
}
