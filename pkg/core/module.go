package core

import (
	"time"

	"github.com/relaydocs/document-events/pkg/core/config"
	"github.com/relaydocs/document-events/pkg/core/health"
	"github.com/relaydocs/document-events/pkg/core/logger"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

type coreOptions struct {
	appConfig    *config.AppConfig
	loggerConfig *logger.Config
	configPath   string
	viper        *viper.Viper
	noDotEnv     bool
	noConfigFile bool
}

// Option configures NewCoreModule.
type Option func(*coreOptions)

// WithAppConfig supplies a fixed AppConfig instead of reading APP_* variables.
func WithAppConfig(cfg config.AppConfig) Option {
	return func(o *coreOptions) {
		o.appConfig = &cfg
	}
}

// WithLoggerConfig supplies a fixed logger configuration.
func WithLoggerConfig(cfg logger.Config) Option {
	return func(o *coreOptions) {
		o.loggerConfig = &cfg
	}
}

// WithConfigFile reads configuration from path instead of CONFIG_FILE.
func WithConfigFile(path string) Option {
	return func(o *coreOptions) {
		o.configPath = path
	}
}

// WithViper shares a configuration the caller has already read.
func WithViper(v *viper.Viper) Option {
	return func(o *coreOptions) {
		o.viper = v
	}
}

func WithoutEnvFile() Option {
	return func(o *coreOptions) {
		o.noDotEnv = true
	}
}

func WithoutConfigFile() Option {
	return func(o *coreOptions) {
		o.noConfigFile = true
	}
}

// NewCoreModule wires configuration, logging and readiness.
//
//	core.NewCoreModule()
//
//	core.NewCoreModule(
//	    core.WithAppConfig(config.AppConfig{ServiceName: "document-service", Environment: "test"}),
//	    core.WithoutEnvFile(),
//	    core.WithoutConfigFile(),
//	)
func NewCoreModule(opts ...Option) fx.Option {
	o := &coreOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Options(
		fx.StartTimeout(2*time.Minute),
		fx.StopTimeout(time.Minute),

		dotEnvModule(o),
		viperModule(o),
		appConfigModule(o),
		loggerModule(o),
		health.NewReadinessModule(),
	)
}

func dotEnvModule(o *coreOptions) fx.Option {
	if o.noDotEnv {
		return fx.Options()
	}
	return config.NewDotEnvModule("")
}

func viperModule(o *coreOptions) fx.Option {
	switch {
	case o.viper != nil:
		return config.NewViperModule(config.WithViper(o.viper))
	case o.noConfigFile:
		return config.NewViperModule(config.WithoutConfigFile())
	case o.configPath != "":
		return config.NewViperModule(config.WithConfigPath(o.configPath))
	default:
		return config.NewViperModule()
	}
}

func appConfigModule(o *coreOptions) fx.Option {
	if o.appConfig != nil {
		return config.NewAppConfigModule(config.WithAppConfig(*o.appConfig))
	}
	return config.NewAppConfigModule()
}

func loggerModule(o *coreOptions) fx.Option {
	if o.loggerConfig != nil {
		return logger.NewZapLoggingModule(logger.WithLoggerConfig(*o.loggerConfig))
	}
	return logger.NewZapLoggingModule()
}
