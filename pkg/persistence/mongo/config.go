package mongo

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ConnectionString string `mapstructure:"connection-string"`
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	ReplicaSet       string `mapstructure:"replica-set"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	Database         string `mapstructure:"database"`
	DirectConnection bool   `mapstructure:"direct-connection"`

	MaxPoolSize         uint64        `mapstructure:"max-pool-size"`
	MinPoolSize         uint64        `mapstructure:"min-pool-size"`
	MaxConnIdleTime     time.Duration `mapstructure:"max-conn-idle-time"`
	ConnectTimeout      time.Duration `mapstructure:"connect-timeout"`
	ServerSelectTimeout time.Duration `mapstructure:"server-select-timeout"`
	QueryTimeout        time.Duration `mapstructure:"query-timeout"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("mongo"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load mongo config: %w", err)
		}
	}
	applyDefaults(&cfg)
	return cfg, validateConfig(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Database == "" {
		cfg.Database = "relaydocs"
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 50
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ServerSelectTimeout == 0 {
		cfg.ServerSelectTimeout = 30 * time.Second
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 5 * time.Second
	}
}

func validateConfig(cfg Config) error {
	if cfg.ConnectionString != "" {
		return nil
	}
	if cfg.Host == "" || cfg.Port == 0 {
		return fmt.Errorf("mongo host and port are required when connection-string is empty")
	}
	if cfg.MaxPoolSize > 0 && cfg.MinPoolSize > cfg.MaxPoolSize {
		return fmt.Errorf("mongo min-pool-size (%d) cannot exceed max-pool-size (%d)", cfg.MinPoolSize, cfg.MaxPoolSize)
	}
	return nil
}
