package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/relaydocs/document-events/pkg/core/health"
	"github.com/relaydocs/document-events/pkg/core/worker"
	eventsconfig "github.com/relaydocs/document-events/pkg/events/config"
	"github.com/relaydocs/document-events/pkg/events/ledger"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const dlqFlushTimeoutMs = 5000

// NewModule runs the consumer configured under events.consumer. applier is an
// fx constructor for the business effect; its result must implement Applier.
//
//	consumer.NewModule(func(repo *Repo) *consumer.Router {
//		return consumer.NewRouter().HandleFunc("document.shared", repo.onShared)
//	})
func NewModule(applier any) fx.Option {
	return fx.Module("consumer",
		fx.Decorate(func(log *zap.Logger, conf eventsconfig.Config) *zap.Logger {
			return log.With(
				zap.String("component", "consumer"),
				zap.String("consumer_name", conf.Consumer.Name),
				zap.String("topic", conf.Consumer.Topic),
				zap.String("group_id", conf.Consumer.GroupID),
			)
		}),
		fx.Provide(
			fx.Annotate(applier, fx.As(new(Applier))),
			provideMetrics,
			providePipeline,
			provideRunner,
			fx.Private,
		),
		fx.Invoke(worker.Register[*Runner]("kafka-consumer", worker.WithReady(), worker.WithShutdown())),
	)
}

func provideMetrics(mp metric.MeterProvider, conf eventsconfig.Config) (*metrics, error) {
	return newMetrics(mp, conf.Consumer.Name)
}

func providePipeline(conf eventsconfig.Config, l ledger.Ledger, applier Applier, log *zap.Logger, m *metrics) *Pipeline {
	return newPipeline(conf.Consumer.Name, l, applier, log, m)
}

type runnerParams struct {
	fx.In
	Lc        fx.Lifecycle
	Log       *zap.Logger
	Conf      eventsconfig.Config
	Pipeline  *Pipeline
	Metrics   *metrics
	Tracing   trace.TracerProvider
	Readiness health.ComponentManager
}

func provideRunner(p runnerParams) (*Runner, error) {
	conf := p.Conf.Consumer
	if !conf.Enabled {
		p.Log.Info("consumer disabled")
		return &Runner{}, nil
	}

	kafkaConsumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":        p.Conf.Brokers,
		"group.id":                 conf.GroupID,
		"client.id":                conf.Name + "-" + uuid.NewString(),
		"enable.auto.commit":       true,
		"enable.auto.offset.store": false,
		"auto.commit.interval.ms":  3000,
		"auto.offset.reset":        conf.AutoOffsetReset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer %s: %w", conf.Name, err)
	}

	tracer := newMessageTracer(p.Tracing)
	dlq, err := provideDLQHandler(p.Lc, p.Conf, tracer, p.Log)
	if err != nil {
		kafkaConsumer.Close()
		return nil, err
	}

	topicInit := newInitializer(kafkaConsumer, conf.Topic, p.Log, conf.ReadinessTimeoutSeconds, conf.FailOnTopicError)
	markReady := p.Readiness.AddComponent("kafka-consumer-" + conf.Name)
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := topicInit.initialize(ctx); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			commitOffsets(kafkaConsumer, p.Log)
			p.Log.Info("closing kafka consumer")
			return kafkaConsumer.Close()
		},
	})

	messages := make(chan *kafka.Message, conf.ChannelBufferSize)
	return &Runner{
		reader: newReader(kafkaConsumer, conf.Topic, messages, p.Log),
		processor: newProcessor(
			messages,
			p.Pipeline,
			NewRetryExecutor(PolicyFromConfig(conf), p.Log),
			newResultHandler(p.Log, dlq, kafkaConsumer, p.Metrics),
			tracer,
			p.Log,
		),
	}, nil
}

func provideDLQHandler(lc fx.Lifecycle, conf eventsconfig.Config, tracer MessageTracer, log *zap.Logger) (DLQHandler, error) {
	if !conf.Consumer.EnableDLQ {
		return newNoopDLQHandler(log), nil
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  conf.Brokers,
		"client.id":          conf.Consumer.Name + "-dlq",
		"enable.idempotence": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DLQ producer: %w", err)
	}
	lc.Append(fx.StopHook(func() {
		if remaining := producer.Flush(dlqFlushTimeoutMs); remaining > 0 {
			log.Warn("DLQ producer closed with undelivered messages", zap.Int("remaining", remaining))
		}
		producer.Close()
	}))

	log.Info("DLQ enabled", zap.String("dlq_topic", conf.Consumer.DLQTopic))
	return newDLQHandler(producer, conf.Consumer.DLQTopic, conf.Publishing.DeliveryTimeout, tracer, log), nil
}

// commitOffsets flushes stored offsets before the consumer leaves the group.
func commitOffsets(c *kafka.Consumer, log *zap.Logger) {
	if _, err := c.Commit(); err != nil {
		var kafkaErr kafka.Error
		if !errors.As(err, &kafkaErr) || kafkaErr.Code() != kafka.ErrNoOffset {
			log.Warn("failed to commit offsets on shutdown", zap.Error(err))
		}
		return
	}
	log.Debug("final commit successful")
}
