package observability

import (
	"fmt"
	"time"

	"github.com/relaydocs/document-events/pkg/core/config"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DefaultMetricsInterval = 10 * time.Second

	defaultShutdownTimeout      = 5 * time.Second
	defaultRuntimeStatsInterval = time.Second
)

// Config is the "observability" section.
type Config struct {
	OtelCollectorEndpoint string        `mapstructure:"otel-collector-endpoint"`
	Tracing               TracingConfig `mapstructure:"tracing"`
	Metrics               MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

func newConfig(v *viper.Viper, log *zap.Logger) (Config, error) {
	var cfg Config
	if err := config.Sub(v, "observability").Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load observability config: %w", err)
	}
	applyDefaults(&cfg)

	log.Info("loaded observability config",
		zap.String("endpoint", cfg.OtelCollectorEndpoint),
		zap.Bool("tracing", cfg.Tracing.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Metrics.Interval <= 0 {
		cfg.Metrics.Interval = DefaultMetricsInterval
	}
}
