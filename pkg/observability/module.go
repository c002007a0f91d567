// Package observability provides the OpenTelemetry tracer and meter
// providers used for Kafka spans and event counters.
//
//	observability.NewModule()
//
//	// tests
//	observability.NewModule(observability.WithConfig(observability.Config{}))
//
// Disabled signals get no-op providers, so components can always depend on
// trace.TracerProvider and metric.MeterProvider.
package observability

import (
	"go.uber.org/fx"
)

type moduleOptions struct {
	config *Config
}

type Option func(*moduleOptions)

// WithConfig uses cfg instead of the "observability" viper section.
func WithConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

func NewModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.config != nil {
		cfg := *o.config
		applyDefaults(&cfg)
		configProvider = fx.Supply(cfg)
	}

	return fx.Module("observability",
		configProvider,
		fx.Provide(
			provideTracerProvider,
			provideMeterProvider,
		),
		fx.Invoke(setPropagator),
	)
}
