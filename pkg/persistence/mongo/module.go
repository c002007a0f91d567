package mongo

import (
	"context"

	"github.com/relaydocs/document-events/pkg/core/config"
	"github.com/relaydocs/document-events/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	static *Config
}

type Option func(*moduleOptions)

// WithMongoConfig uses cfg instead of the "mongo" viper section.
func WithMongoConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.static = &cfg
	}
}

// NewMongoModule provides Mongo. The client pings the server on start and
// registers itself as a readiness component.
func NewMongoModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.static != nil {
		static := *o.static
		configProvider = fx.Provide(func() (Config, error) {
			applyDefaults(&static)
			return static, validateConfig(static)
		})
	}

	return fx.Module("mongo",
		configProvider,
		fx.Provide(provideMongo),
	)
}

func provideMongo(lc fx.Lifecycle, log *zap.Logger, appConf config.AppConfig, conf Config, readiness health.ComponentManager) (Mongo, error) {
	m, err := newMongo(log.Named("mongo"), conf, appConf.ServiceName)
	if err != nil {
		return nil, err
	}

	markReady := readiness.AddComponent("mongo")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := m.connect(ctx); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: m.disconnect,
	})
	return m, nil
}
