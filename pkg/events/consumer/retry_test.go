package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	eventsconfig "github.com/relaydocs/document-events/pkg/events/config"
	"github.com/relaydocs/document-events/pkg/events/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolicy(maxRetries int) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxRetries = maxRetries
	p.BackoffDelay = time.Millisecond
	return p
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 2, p.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, p.BackoffDelay)
	assert.False(t, p.Retryable(&envelope.DecodeError{Kind: envelope.KindInvalidPayload}))
	assert.False(t, p.Retryable(&envelope.DecodeError{Kind: envelope.KindMissingField, Field: "aggregateId"}))
	assert.False(t, p.Retryable(ErrPermanent))
	assert.True(t, p.Retryable(errors.New("i/o timeout")))
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(eventsconfig.ConsumerConfig{MaxRetries: 5, BackoffDelay: time.Second})

	assert.Equal(t, 5, p.MaxRetries)
	assert.Equal(t, time.Second, p.BackoffDelay)
	assert.Len(t, p.NonRetryable, 2)
}

func TestRetryPolicy_CustomNonRetryable(t *testing.T) {
	errQuota := errors.New("quota exceeded")
	p := RetryPolicy{NonRetryable: []error{errQuota}}

	assert.False(t, p.Retryable(errQuota))
	assert.True(t, p.Retryable(envelope.ErrMissingField))
}

func TestRetryExecutor_SucceedsFirstTime(t *testing.T) {
	calls := 0
	err := NewRetryExecutor(fastPolicy(2), zap.NewNop()).Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryExecutor_RecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	err := NewRetryExecutor(fastPolicy(2), zap.NewNop()).Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("ledger unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExecutor_ExhaustsAfterMaxRetries(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 2, 4} {
		storeDown := errors.New("ledger unavailable")
		calls := 0

		err := NewRetryExecutor(fastPolicy(maxRetries), zap.NewNop()).Execute(context.Background(), func(context.Context) error {
			calls++
			return storeDown
		})

		assert.Equal(t, maxRetries+1, calls)
		assert.ErrorIs(t, err, ErrRetriesExhausted)
		assert.ErrorIs(t, err, storeDown)
		assert.NotErrorIs(t, err, ErrPermanent)
	}
}

func TestRetryExecutor_WaitsBetweenAttempts(t *testing.T) {
	p := fastPolicy(2)
	p.BackoffDelay = 20 * time.Millisecond

	start := time.Now()
	_ = NewRetryExecutor(p, zap.NewNop()).Execute(context.Background(), func(context.Context) error {
		return errors.New("transient")
	})

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRetryExecutor_NonRetryableStopsImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"missing field", &envelope.DecodeError{Kind: envelope.KindMissingField, Field: "aggregateId"}},
		{"invalid payload", &envelope.DecodeError{Kind: envelope.KindInvalidPayload}},
		{"permanent", ErrPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := NewRetryExecutor(fastPolicy(5), zap.NewNop()).Execute(context.Background(), func(context.Context) error {
				calls++
				return tt.err
			})

			assert.Equal(t, 1, calls)
			assert.ErrorIs(t, err, ErrPermanent)
			assert.ErrorIs(t, err, tt.err)
			assert.NotErrorIs(t, err, ErrRetriesExhausted)
		})
	}
}

func TestRetryExecutor_PanicIsPermanent(t *testing.T) {
	calls := 0
	err := NewRetryExecutor(fastPolicy(3), zap.NewNop()).Execute(context.Background(), func(context.Context) error {
		calls++
		panic("nil map write")
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, ErrPermanent)
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "nil map write", panicErr.Panic)
	assert.NotEmpty(t, panicErr.Stack)
}

func TestRetryExecutor_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(10)
	p.BackoffDelay = time.Hour

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- NewRetryExecutor(p, zap.NewNop()).Execute(ctx, func(context.Context) error {
			calls++
			return errors.New("transient")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrRetriesExhausted)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("executor did not stop after cancellation")
	}
}
