package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/relaydocs/document-events/pkg/events/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type processorFixture struct {
	messages chan *kafka.Message
	applier  *recordingApplier
	ledger   *ledger.Memory
	storer   *mockOffsetStorer
	dlq      *mockDLQHandler
	proc     *processor
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	m, _ := newTestMetrics(t)
	f := &processorFixture{
		messages: make(chan *kafka.Message, 10),
		applier:  &recordingApplier{},
		ledger:   ledger.NewMemory(),
		storer:   &mockOffsetStorer{},
		dlq:      &mockDLQHandler{},
	}
	log := zap.NewNop()
	f.proc = newProcessor(
		f.messages,
		newPipeline("document-service", f.ledger, f.applier, log, m),
		NewRetryExecutor(fastPolicy(2), log),
		newResultHandler(log, f.dlq, f.storer, m),
		newMessageTracer(noop.NewTracerProvider()),
		log,
	)
	return f
}

func TestProcessor_ProcessMessage(t *testing.T) {
	t.Run("applies new event and stores offset", func(t *testing.T) {
		f := newProcessorFixture(t)

		f.proc.processMessage(context.Background(), createTestMessage(scenarioC))

		assert.Len(t, f.applier.applied(), 1)
		assert.Equal(t, 1, f.storer.storedCount())
		assert.Zero(t, f.dlq.sentCount())
	})

	t.Run("skips redelivered message and stores offset", func(t *testing.T) {
		f := newProcessorFixture(t)

		f.proc.processMessage(context.Background(), createTestMessage(scenarioC))
		f.proc.processMessage(context.Background(), createTestMessage(scenarioC))

		assert.Len(t, f.applier.applied(), 1)
		assert.Equal(t, 2, f.storer.storedCount())
		assert.Equal(t, 1, f.ledger.Len())
	})

	t.Run("dead-letters malformed message without claiming", func(t *testing.T) {
		f := newProcessorFixture(t)

		f.proc.processMessage(context.Background(), createTestMessage(`{"aggregateId":"1"}`))

		assert.Empty(t, f.applier.applied())
		assert.Zero(t, f.ledger.Len())
		assert.Equal(t, 1, f.dlq.sentCount())
		assert.ErrorIs(t, f.dlq.errs[0], ErrPermanent)
		assert.Equal(t, 1, f.storer.storedCount())
	})

	t.Run("cancelled before claim leaves message for redelivery", func(t *testing.T) {
		f := newProcessorFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f.proc.processMessage(ctx, createTestMessage(scenarioC))

		assert.Empty(t, f.applier.applied())
		assert.Zero(t, f.ledger.Len())
		assert.Zero(t, f.storer.storedCount())
		assert.Zero(t, f.dlq.sentCount())
	})
}

func TestProcessor_Run(t *testing.T) {
	f := newProcessorFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.proc.run(ctx) }()

	f.messages <- createTestMessage(scenarioC)
	f.messages <- createTestMessage(`{"eventType":"document.updated","aggregateId":"42","payload":{}}`)

	require.Eventually(t, func() bool { return f.storer.storedCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Len(t, f.applier.applied(), 2)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
}

func TestRunner_DisabledReturnsImmediately(t *testing.T) {
	assert.NoError(t, (&Runner{}).Run(context.Background()))
}

func TestRunner_StopsWithContext(t *testing.T) {
	f := newProcessorFixture(t)
	r := &Runner{
		reader:    newReader(&scriptedReader{}, "relaydocs.domain-events", f.messages, zap.NewNop()),
		processor: f.proc,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, r.Run(ctx))
}
