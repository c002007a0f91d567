package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relaydocs/document-events/pkg/core/config"
	"github.com/relaydocs/document-events/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	static *Config
}

type Option func(*moduleOptions)

// WithPostgresConfig uses cfg instead of the "postgres" viper section.
func WithPostgresConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.static = &cfg
	}
}

// NewPostgresModule provides a *pgxpool.Pool and its Config.
func NewPostgresModule(opts ...Option) fx.Option {
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

	return fx.Module("postgres",
		configProvider,
		fx.Provide(providePool),
	)
}

func providePool(lc fx.Lifecycle, log *zap.Logger, appConf config.AppConfig, conf Config, readiness health.ComponentManager) (*pgxpool.Pool, error) {
	log = log.Named("postgres")
	pool, err := newPool(context.Background(), conf, appConf.ServiceName)
	if err != nil {
		return nil, err
	}

	markReady := readiness.AddComponent("postgres")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := ping(ctx, log, pool, conf); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: func(context.Context) error {
			pool.Close()
			log.Info("postgres pool closed")
			return nil
		},
	})
	return pool, nil
}
