package consumer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/relaydocs/document-events/pkg/core/logger"
	"github.com/relaydocs/document-events/pkg/events/envelope"
	"github.com/relaydocs/document-events/pkg/events/ledger"
	"github.com/relaydocs/document-events/pkg/observability"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Pipeline turns one raw message into at most one applied event for a
// consumer. It holds no per-message state and is safe for concurrent use;
// the ledger is the only point where concurrent deliveries meet.
type Pipeline struct {
	consumerName string
	ledger       ledger.Ledger
	applier      Applier
	metrics      *metrics
	log          *zap.Logger
}

func NewPipeline(consumerName string, l ledger.Ledger, applier Applier, log *zap.Logger, mp metric.MeterProvider) (*Pipeline, error) {
	m, err := newMetrics(mp, consumerName)
	if err != nil {
		return nil, err
	}
	return newPipeline(consumerName, l, applier, log, m), nil
}

func newPipeline(consumerName string, l ledger.Ledger, applier Applier, log *zap.Logger, m *metrics) *Pipeline {
	return &Pipeline{
		consumerName: consumerName,
		ledger:       l,
		applier:      applier,
		metrics:      m,
		log:          log,
	}
}

// Handle decodes raw, claims its event id and applies it when the claim is new.
//
// Malformed messages return an error wrapping ErrPermanent together with the
// envelope sentinel, before the ledger is touched. Ledger failures are returned
// as is and may be retried: nothing has been applied at that point. Applier
// failures are logged and reported as OutcomeApplyFailed with a nil error; the
// claim stays in place so the event is never applied twice.
func (p *Pipeline) Handle(ctx context.Context, raw []byte) (Outcome, error) {
	env, err := envelope.Decode(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPermanent, err)
	}

	event := Event{
		ID:          envelope.ResolveEventID(env, raw),
		Type:        env.EventType,
		AggregateID: env.AggregateID,
		OccurredAt:  env.OccurredAt,
		Payload:     env.Payload,
	}
	log := p.log.With(append(observability.TraceFields(ctx),
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("aggregate_id", event.AggregateID),
	)...)
	ctx = logger.With(ctx, log)

	claimed, err := p.ledger.Claim(ctx, ledger.Claim{
		ConsumerName: p.consumerName,
		EventID:      event.ID,
		EventType:    event.Type,
		AggregateID:  event.AggregateID,
		OccurredAt:   event.OccurredAt,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidClaim) {
			return 0, fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		return 0, fmt.Errorf("failed to claim event %s: %w", event.ID, err)
	}
	if !claimed {
		log.Info("duplicate event skipped")
		p.metrics.recordDuplicate(ctx, event.Type)
		return OutcomeDuplicate, nil
	}

	// The claim is durable from here on. Finish the effect even if the worker
	// is being stopped, otherwise the event would be claimed but never applied.
	if err := p.apply(context.WithoutCancel(ctx), event); err != nil {
		log.Error("failed to apply event, claim is kept and the event will not be retried", zap.Error(err))
		p.metrics.recordApplyFailure(ctx, event.Type)
		return OutcomeApplyFailed, nil
	}

	log.Debug("event applied")
	p.metrics.recordConsumed(ctx, event.Type)
	return OutcomeProcessed, nil
}

func (p *Pipeline) apply(ctx context.Context, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Panic: rec, Stack: debug.Stack()}
		}
	}()
	return p.applier.Apply(ctx, event)
}
