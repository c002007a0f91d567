package logger

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type moduleOptions struct {
	static *Config
}

// Option configures NewZapLoggingModule.
type Option func(*moduleOptions)

// WithLoggerConfig uses cfg instead of the "logger" viper section.
func WithLoggerConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.static = &cfg
	}
}

// NewZapLoggingModule provides the application *zap.Logger and routes fx's
// own events through it.
func NewZapLoggingModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.static != nil {
		configProvider = fx.Supply(*o.static)
	}

	return fx.Options(
		configProvider,
		fx.Provide(provideLogger),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
}

func provideLogger(lc fx.Lifecycle, conf Config) (*zap.Logger, error) {
	logger, err := newLogger(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return syncLogger(logger)
		},
	})
	return logger, nil
}

// syncLogger ignores the EINVAL returned when stderr is a terminal.
func syncLogger(logger *zap.Logger) error {
	if err := logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
		return err
	}
	return nil
}
