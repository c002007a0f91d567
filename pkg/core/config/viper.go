package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const envConfigFile = "CONFIG_FILE"

// FilePath is the resolved configuration file. Empty means environment only.
type FilePath string

type viperOptions struct {
	static       *viper.Viper
	configPath   *string
	noConfigFile bool
}

// ViperOption configures NewViperModule.
type ViperOption func(*viperOptions)

// WithConfigPath loads the given file instead of resolving CONFIG_FILE.
func WithConfigPath(path string) ViperOption {
	return func(o *viperOptions) {
		o.configPath = &path
	}
}

// WithoutConfigFile keeps viper environment-only.
func WithoutConfigFile() ViperOption {
	return func(o *viperOptions) {
		o.noConfigFile = true
	}
}

// WithViper shares an instance the caller has already read, typically one
// consulted before the application graph is built.
func WithViper(v *viper.Viper) ViperOption {
	return func(o *viperOptions) {
		o.static = v
	}
}

// NewViperModule provides a *viper.Viper shared by every component config.
// Keys can always be overridden from the environment: "events.consumer.group-id"
// is read from EVENTS_CONSUMER_GROUP_ID.
func NewViperModule(opts ...ViperOption) fx.Option {
	o := &viperOptions{}
	for _, opt := range opts {
		opt(o)
	}

	provide := fx.Options(
		fx.Supply(resolveConfigPath(o)),
		fx.Provide(newViper),
	)
	if o.static != nil {
		provide = fx.Supply(o.static)
	}

	return fx.Module("viper",
		provide,
		fx.Invoke(func(logger *zap.Logger, v *viper.Viper) {
			logger.Info("configuration loaded",
				zap.String("configFile", v.ConfigFileUsed()),
				zap.Int("settingsCount", len(v.AllKeys())),
			)
		}),
	)
}

// ReadViper reads path, or CONFIG_FILE when path is empty, the same way
// NewViperModule does.
func ReadViper(path string) (*viper.Viper, error) {
	if path != "" {
		return newViper(FilePath(path))
	}
	return newViper(resolveConfigPath(&viperOptions{}))
}

func resolveConfigPath(o *viperOptions) FilePath {
	if o.noConfigFile {
		return ""
	}
	if o.configPath != nil {
		return FilePath(*o.configPath)
	}
	return FilePath(os.Getenv(envConfigFile))
}

func newViper(configFile FilePath) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile == "" {
		return v, nil
	}

	v.SetConfigFile(string(configFile))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file [%s]: %w", configFile, err)
	}
	return v, nil
}

// Sub returns the sub-tree for key, or an empty instance that still honours
// environment overrides when the key is absent from the file.
func Sub(v *viper.Viper, key string) *viper.Viper {
	if sub := v.Sub(key); sub != nil {
		sub.AutomaticEnv()
		sub.SetEnvPrefix(strings.ReplaceAll(key, ".", "_"))
		sub.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		return sub
	}
	sub := viper.New()
	sub.AutomaticEnv()
	sub.SetEnvPrefix(strings.ReplaceAll(key, ".", "_"))
	sub.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	return sub
}
