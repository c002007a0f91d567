package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type readResult struct {
	msg *kafka.Message
	err error
}

// scriptedReader returns the scripted results in order, then timeouts.
type scriptedReader struct {
	mu      sync.Mutex
	results []readResult
	reads   int
}

func (r *scriptedReader) ReadMessage(time.Duration) (*kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if len(r.results) == 0 {
		time.Sleep(time.Millisecond)
		return nil, kafka.NewError(kafka.ErrTimedOut, "timed out", false)
	}
	next := r.results[0]
	r.results = r.results[1:]
	return next.msg, next.err
}

func TestReader_ForwardsMessages(t *testing.T) {
	first := createTestMessage(`{"n":1}`)
	second := createTestMessage(`{"n":2}`)
	src := &scriptedReader{results: []readResult{
		{err: kafka.NewError(kafka.ErrTimedOut, "timed out", false)},
		{msg: first},
		{msg: second},
	}}
	messages := make(chan *kafka.Message, 10)
	r := newReader(src, "relaydocs.domain-events", messages, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.run(ctx) }()

	assert.Same(t, first, <-messages)
	assert.Same(t, second, <-messages)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reader did not stop")
	}
}

func TestReader_FatalErrorStops(t *testing.T) {
	src := &scriptedReader{results: []readResult{
		{err: kafka.NewError(kafka.ErrFatal, "fenced", true)},
	}}
	r := newReader(src, "relaydocs.domain-events", make(chan *kafka.Message, 1), zap.NewNop())

	err := r.run(context.Background())

	require.Error(t, err)
	var rerr *readerError
	require.ErrorAs(t, err, &rerr)
	assert.True(t, rerr.isFatal())
}

func TestReader_PausesOnTemporaryErrors(t *testing.T) {
	src := &scriptedReader{results: []readResult{
		{err: kafka.NewError(kafka.ErrAllBrokersDown, "all brokers down", false)},
	}}
	r := newReader(src, "relaydocs.domain-events", make(chan *kafka.Message, 1), zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := r.run(ctx)

	require.NoError(t, err)
	src.mu.Lock()
	defer src.mu.Unlock()
	// The 5s broker pause is interrupted by the context, so only one read happened.
	assert.Equal(t, 1, src.reads)
}

func TestReader_StopsWhileBlockedOnFullChannel(t *testing.T) {
	src := &scriptedReader{results: []readResult{{msg: createTestMessage(`{}`)}}}
	r := newReader(src, "relaydocs.domain-events", make(chan *kafka.Message), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reader did not stop")
	}
}

func TestWrapReaderError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		errorType kafkaErrorType
		pause     time.Duration
	}{
		{"timeout", kafka.NewError(kafka.ErrTimedOut, "", false), errorTypeTimeout, 0},
		{"fatal", kafka.NewError(kafka.ErrFatal, "", true), errorTypeFatal, 0},
		{"unknown topic", kafka.NewError(kafka.ErrUnknownTopicOrPart, "", false), errorTypeTopicNotFound, 10 * time.Second},
		{"transport", kafka.NewError(kafka.ErrTransport, "", false), errorTypeBrokerConnection, 5 * time.Second},
		{"all brokers down", kafka.NewError(kafka.ErrAllBrokersDown, "", false), errorTypeBrokerConnection, 5 * time.Second},
		{"leader", kafka.NewError(kafka.ErrLeaderNotAvailable, "", false), errorTypeLeaderElection, 2 * time.Second},
		{"other kafka", kafka.NewError(kafka.ErrBadMsg, "", false), errorTypeUnknown, time.Second},
		{"non kafka", errors.New("boom"), errorTypeUnknown, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rerr := wrapReaderError(tt.err)

			require.NotNil(t, rerr)
			assert.Equal(t, tt.errorType, rerr.errorType)
			assert.Equal(t, tt.pause, rerr.pause())
			assert.ErrorIs(t, rerr, tt.err)
		})
	}

	assert.Nil(t, wrapReaderError(nil))
}
