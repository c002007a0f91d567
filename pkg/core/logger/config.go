package logger

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config controls the process-wide zap logger.
type Config struct {
	Level           zapcore.Level
	Development     bool
	Encoding        string
	OutputPaths     []string
	StacktraceLevel zapcore.Level
}

type rawConfig struct {
	Level           string   `mapstructure:"level"`
	Development     bool     `mapstructure:"development"`
	Encoding        string   `mapstructure:"encoding"`
	OutputPaths     []string `mapstructure:"output-paths"`
	StacktraceLevel string   `mapstructure:"stacktrace-level"`
}

func defaultConfig() Config {
	return Config{
		Level:           zapcore.InfoLevel,
		StacktraceLevel: zapcore.ErrorLevel,
	}
}

func newConfig(v *viper.Viper) (Config, error) {
	cfg := defaultConfig()

	sub := v.Sub("logger")
	if sub == nil {
		return cfg, nil
	}

	var raw rawConfig
	if err := sub.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("failed to load logger config: %w", err)
	}

	if raw.Level != "" {
		level, err := zapcore.ParseLevel(raw.Level)
		if err != nil {
			return Config{}, fmt.Errorf("invalid log level '%s': %w", raw.Level, err)
		}
		cfg.Level = level
	}
	if raw.StacktraceLevel != "" {
		level, err := zapcore.ParseLevel(raw.StacktraceLevel)
		if err != nil {
			return Config{}, fmt.Errorf("invalid stacktrace level '%s': %w", raw.StacktraceLevel, err)
		}
		cfg.StacktraceLevel = level
	}

	cfg.Development = raw.Development
	cfg.Encoding = raw.Encoding
	cfg.OutputPaths = raw.OutputPaths

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("logger encoding must be 'json' or 'console', got: %s", c.Encoding)
	}
	for i, path := range c.OutputPaths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("output-paths[%d] cannot be empty", i)
		}
	}
	return nil
}
