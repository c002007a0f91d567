package config

import (
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	envAppEnv            = "APP_ENV"
	envAppServiceName    = "APP_SERVICE_NAME"
	envAppServiceVersion = "APP_SERVICE_VERSION"
)

const defaultServiceName = "relaydocs-document-service"

// AppConfig identifies the running service instance.
// It is read from the environment so that every deployment of the same binary
// reports a stable service name in logs, spans and Kafka client ids.
type AppConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

type appConfigOptions struct {
	static *AppConfig
}

// AppConfigOption configures NewAppConfigModule.
type AppConfigOption func(*appConfigOptions)

// WithAppConfig supplies a fixed AppConfig instead of reading the environment.
func WithAppConfig(cfg AppConfig) AppConfigOption {
	return func(o *appConfigOptions) {
		o.static = &cfg
	}
}

// NewAppConfigModule provides AppConfig.
//
// Environment variables:
//   - APP_ENV: deployment environment (required)
//   - APP_SERVICE_NAME: service name (defaults to relaydocs-document-service)
//   - APP_SERVICE_VERSION: service version (defaults to "dev")
func NewAppConfigModule(opts ...AppConfigOption) fx.Option {
	o := &appConfigOptions{}
	for _, opt := range opts {
		opt(o)
	}

	provide := fx.Provide(newAppConfig)
	if o.static != nil {
		provide = fx.Supply(*o.static)
	}

	return fx.Module("appconfig",
		provide,
		fx.Invoke(func(logger *zap.Logger, conf AppConfig) {
			logger.Info("loaded application configuration",
				zap.String("service", conf.ServiceName),
				zap.String("version", conf.ServiceVersion),
				zap.String("environment", conf.Environment),
			)
		}),
	)
}

func newAppConfig() (AppConfig, error) {
	env := os.Getenv(envAppEnv)
	if env == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppEnv)
	}

	serviceName := os.Getenv(envAppServiceName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	serviceVersion := os.Getenv(envAppServiceVersion)
	if serviceVersion == "" {
		serviceVersion = "dev"
	}

	return AppConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    env,
	}, nil
}
