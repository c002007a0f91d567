package consumer

import (
	"context"
	"sync"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/relaydocs/document-events/pkg/events/ledger"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Claim(ctx context.Context, c ledger.Claim) (bool, error) {
	args := m.Called(ctx, c)
	return args.Bool(0), args.Error(1)
}

func (m *mockLedger) Count(ctx context.Context, consumerName, eventID string) (int64, error) {
	args := m.Called(ctx, consumerName, eventID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLedger) Lookup(ctx context.Context, consumerName, eventID string) (*ledger.Record, error) {
	args := m.Called(ctx, consumerName, eventID)
	r, _ := args.Get(0).(*ledger.Record)
	return r, args.Error(1)
}

// recordingApplier remembers every event it was asked to apply.
type recordingApplier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (a *recordingApplier) Apply(_ context.Context, event Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return a.err
}

func (a *recordingApplier) applied() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Event(nil), a.events...)
}

type mockSpan struct {
	trace.Span
	statusCode    codes.Code
	statusMessage string
	recordedError error
}

func newMockSpan() *mockSpan {
	_, span := noop.NewTracerProvider().Tracer("test").Start(context.Background(), "test")
	return &mockSpan{Span: span}
}

func (m *mockSpan) SetStatus(code codes.Code, description string) {
	m.statusCode = code
	m.statusMessage = description
}

func (m *mockSpan) RecordError(err error, _ ...trace.EventOption) {
	m.recordedError = err
}

func (m *mockSpan) End(...trace.SpanEndOption) {}

type mockOffsetStorer struct {
	mu     sync.Mutex
	stored []*kafka.Message
	err    error
}

func (m *mockOffsetStorer) StoreMessage(msg *kafka.Message) ([]kafka.TopicPartition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = append(m.stored, msg)
	return []kafka.TopicPartition{msg.TopicPartition}, m.err
}

func (m *mockOffsetStorer) storedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stored)
}

type mockDLQHandler struct {
	mu       sync.Mutex
	messages []*kafka.Message
	errs     []error
}

func (m *mockDLQHandler) SendToDLQ(_ context.Context, message *kafka.Message, processingErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	m.errs = append(m.errs, processingErr)
}

func (m *mockDLQHandler) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func newTestMetrics(t *testing.T) (*metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := newMetrics(mp, "document-service")
	require.NoError(t, err)
	return m, reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func createTestMessage(value string) *kafka.Message {
	topic := "relaydocs.domain-events"
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 3, Offset: 100},
		Key:            []byte("42"),
		Value:          []byte(value),
	}
}
