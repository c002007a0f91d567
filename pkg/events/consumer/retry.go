package consumer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cenkalti/backoff/v4"
	eventsconfig "github.com/relaydocs/document-events/pkg/events/config"
	"github.com/relaydocs/document-events/pkg/events/envelope"
	"go.uber.org/zap"
)

// RetryPolicy decides how often a failing message is retried. Errors matching
// ErrPermanent or any of NonRetryable (via errors.Is) are never retried.
type RetryPolicy struct {
	MaxRetries   int
	BackoffDelay time.Duration
	NonRetryable []error
}

// DefaultRetryPolicy retries twice, 500ms apart, and never retries malformed
// messages.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   2,
		BackoffDelay: 500 * time.Millisecond,
		NonRetryable: []error{envelope.ErrInvalidPayload, envelope.ErrMissingField},
	}
}

// PolicyFromConfig applies the configured retry count and delay to the
// default classification.
func PolicyFromConfig(conf eventsconfig.ConsumerConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxRetries = conf.MaxRetries
	p.BackoffDelay = conf.BackoffDelay
	return p
}

func (p RetryPolicy) Retryable(err error) bool {
	if errors.Is(err, ErrPermanent) {
		return false
	}
	for _, target := range p.NonRetryable {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}

// RetryExecutor runs an operation under a RetryPolicy with panic recovery.
//
// The returned error wraps ErrPermanent for non-retryable failures and
// ErrRetriesExhausted when the policy gave up. A context error is returned
// unchanged when ctx ends before the operation succeeds.
type RetryExecutor interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

type retryExecutor struct {
	policy RetryPolicy
	log    *zap.Logger
}

func NewRetryExecutor(policy RetryPolicy, log *zap.Logger) RetryExecutor {
	return &retryExecutor{policy: policy, log: log}
}

func (r *retryExecutor) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := 0
	operation := func() error {
		attempts++
		err := r.callWithRecovery(ctx, fn)
		if err == nil {
			return nil
		}
		if !r.policy.Retryable(err) {
			return backoff.Permanent(err)
		}
		r.logAttempt(err, attempts)
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.policy.BackoffDelay), uint64(max(r.policy.MaxRetries, 0))),
		ctx,
	)

	err := backoff.Retry(operation, b)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return err
	case !r.policy.Retryable(err):
		if errors.Is(err, ErrPermanent) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPermanent, err)
	default:
		return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
	}
}

func (r *retryExecutor) callWithRecovery(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %w", ErrPermanent, &PanicError{Panic: rec, Stack: debug.Stack()})
		}
	}()
	return fn(ctx)
}

func (r *retryExecutor) logAttempt(err error, attempt int) {
	r.log.Warn("failed to process message",
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", r.policy.MaxRetries+1),
		zap.Error(err))
}
