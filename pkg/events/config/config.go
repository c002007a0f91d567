package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewConfigModule() fx.Option {
	return fx.Provide(newConfig)
}

func newConfig(v *viper.Viper, log *zap.Logger) (Config, error) {
	cfg, err := Load(v)
	if err != nil {
		return cfg, err
	}
	log.Info("loaded events config",
		zap.String("topic", cfg.Topic),
		zap.Bool("publishing_enabled", cfg.Publishing.Enabled),
		zap.Bool("consumer_enabled", cfg.Consumer.Enabled),
		zap.String("consumer_name", cfg.Consumer.Name),
		zap.String("group_id", cfg.Consumer.GroupID),
		zap.Int("max_retries", cfg.Consumer.MaxRetries),
		zap.Duration("backoff_delay", cfg.Consumer.BackoffDelay),
		zap.String("ledger_backend", cfg.Ledger.Backend),
	)
	return cfg, nil
}

// Load reads, defaults and validates the events configuration.
func Load(v *viper.Viper) (Config, error) {
	registerDefaults(v)

	var root struct {
		Kafka struct {
			Brokers string `mapstructure:"brokers"`
		} `mapstructure:"kafka"`
		Events Config `mapstructure:"events"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return Config{}, fmt.Errorf("failed to load events config: %w", err)
	}

	cfg := root.Events
	cfg.Brokers = root.Kafka.Brokers
	applyDerivedDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid events config: %w", err)
	}
	return cfg, nil
}

// LedgerBackend reports the configured ledger backend without validating the
// rest of the configuration. Used to pick a persistence module before the
// application graph is built.
func LedgerBackend(v *viper.Viper) string {
	registerDefaults(v)
	return v.GetString("events.ledger.backend")
}
