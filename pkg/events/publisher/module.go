package publisher

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/relaydocs/document-events/pkg/core/config"
	"github.com/relaydocs/document-events/pkg/core/health"
	eventsconfig "github.com/relaydocs/document-events/pkg/events/config"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const flushTimeoutMs = 10000

func NewModule() fx.Option {
	return fx.Module("publisher",
		fx.Decorate(func(log *zap.Logger) *zap.Logger {
			return log.With(zap.String("component", "publisher"))
		}),
		fx.Provide(providePublisher),
	)
}

type publisherParams struct {
	fx.In
	Lc        fx.Lifecycle
	Log       *zap.Logger
	App       config.AppConfig
	Conf      eventsconfig.Config
	Tracing   trace.TracerProvider
	Metrics   metric.MeterProvider
	Readiness health.ComponentManager
}

func providePublisher(p publisherParams) (Publisher, error) {
	if !p.Conf.Publishing.Enabled {
		p.Log.Info("event publishing disabled, using no-op publisher")
		return NewNoop(), nil
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  p.Conf.Brokers,
		"client.id":          p.App.ServiceName + "-publisher",
		"enable.idempotence": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	pub, err := newKafkaPublisher(producer, p.Conf.Topic, p.Conf.Publishing.DeliveryTimeout, p.Tracing, p.Metrics, p.Log)
	if err != nil {
		producer.Close()
		return nil, err
	}

	markReady := p.Readiness.AddComponent("kafka-producer")
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := waitForBrokers(ctx, producer, p.Log, p.Conf.Publishing.ReadinessTimeoutSeconds, p.Conf.Publishing.FailOnBrokerError); err != nil {
				return fmt.Errorf("kafka brokers unavailable: %w", err)
			}
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if remaining := producer.Flush(flushTimeoutMs); remaining > 0 {
				p.Log.Warn("producer closed with undelivered messages", zap.Int("remaining", remaining))
			}
			producer.Close()
			return nil
		},
	})

	p.Log.Info("kafka publisher ready", zap.String("topic", p.Conf.Topic))
	return pub, nil
}
