package consumer

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

type messageHandler interface {
	Handle(ctx context.Context, raw []byte) (Outcome, error)
}

// processor handles messages one at a time, in partition order.
type processor struct {
	messages      <-chan *kafka.Message
	handler       messageHandler
	retryExecutor RetryExecutor
	resultHandler *resultHandler
	tracer        MessageTracer
	log           *zap.Logger
}

func newProcessor(
	messages <-chan *kafka.Message,
	handler messageHandler,
	retryExecutor RetryExecutor,
	resultHandler *resultHandler,
	tracer MessageTracer,
	log *zap.Logger,
) *processor {
	return &processor{
		messages:      messages,
		handler:       handler,
		retryExecutor: retryExecutor,
		resultHandler: resultHandler,
		tracer:        tracer,
		log:           log,
	}
}

func (p *processor) run(ctx context.Context) error {
	p.log.Info("processor started")
	defer p.log.Info("processor stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-p.messages:
			if ctx.Err() != nil {
				return nil
			}
			p.processMessage(ctx, msg)
		}
	}
}

func (p *processor) processMessage(ctx context.Context, message *kafka.Message) {
	ctx = p.tracer.ExtractContext(ctx, message)
	ctx, span := p.tracer.StartConsumerSpan(ctx, message)
	defer span.End()

	var outcome Outcome
	err := p.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		var handleErr error
		outcome, handleErr = p.handler.Handle(ctx, message.Value)
		return handleErr
	})

	p.resultHandler.handle(ctx, message, outcome, err, span)
}
