package consumer

import (
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type kafkaErrorType int

const (
	errorTypeTimeout kafkaErrorType = iota
	errorTypeFatal
	errorTypeTopicNotFound
	errorTypeBrokerConnection
	errorTypeLeaderElection
	errorTypeRetriable
	errorTypeUnknown
)

// readerError classifies an error returned by ReadMessage.
type readerError struct {
	err         error
	errorType   kafkaErrorType
	key         string
	description string
}

func (e *readerError) Error() string {
	if e.description != "" {
		return fmt.Sprintf("%s: %v", e.description, e.err)
	}
	return e.err.Error()
}

func (e *readerError) Unwrap() error {
	return e.err
}

func wrapReaderError(err error) *readerError {
	if err == nil {
		return nil
	}

	var kafkaErr kafka.Error
	if !errors.As(err, &kafkaErr) {
		return &readerError{err: err, errorType: errorTypeUnknown, key: "non_kafka_error", description: "non-kafka error while reading"}
	}

	switch {
	case kafkaErr.IsTimeout():
		return &readerError{err: err, errorType: errorTypeTimeout}
	case kafkaErr.IsFatal():
		return &readerError{err: err, errorType: errorTypeFatal, key: "fatal", description: "fatal kafka error, consumer is no longer operable"}
	}

	switch kafkaErr.Code() {
	case kafka.ErrUnknownTopicOrPart:
		return &readerError{err: err, errorType: errorTypeTopicNotFound, key: "topic_not_found", description: "topic not available, waiting for topic creation"}
	case kafka.ErrTransport, kafka.ErrAllBrokersDown, kafka.ErrNetworkException:
		return &readerError{err: err, errorType: errorTypeBrokerConnection, key: "broker_connection", description: "broker connection issue, retrying"}
	case kafka.ErrLeaderNotAvailable, kafka.ErrNotLeaderForPartition:
		return &readerError{err: err, errorType: errorTypeLeaderElection, key: "leader_election", description: "partition leader changing, retrying"}
	}

	if kafkaErr.IsRetriable() {
		return &readerError{err: err, errorType: errorTypeRetriable, key: "retriable_error", description: "retriable kafka error, retrying"}
	}
	return &readerError{err: err, errorType: errorTypeUnknown, key: "unknown_error", description: "unknown kafka error"}
}

func (e *readerError) isFatal() bool {
	return e.errorType == errorTypeFatal
}

func (e *readerError) isTimeout() bool {
	return e.errorType == errorTypeTimeout
}

// pause is how long the reader waits before polling again.
func (e *readerError) pause() time.Duration {
	switch e.errorType {
	case errorTypeTopicNotFound:
		return 10 * time.Second
	case errorTypeBrokerConnection:
		return 5 * time.Second
	case errorTypeLeaderElection:
		return 2 * time.Second
	case errorTypeRetriable, errorTypeUnknown:
		return time.Second
	default:
		return 0
	}
}
