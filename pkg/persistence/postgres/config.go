package postgres

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl-mode"`

	MaxConns        int32         `mapstructure:"max-conns"`
	MinConns        int32         `mapstructure:"min-conns"`
	MaxConnIdleTime time.Duration `mapstructure:"max-conn-idle-time"`
	ConnectTimeout  time.Duration `mapstructure:"connect-timeout"`
	QueryTimeout    time.Duration `mapstructure:"query-timeout"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if sub := v.Sub("postgres"); sub != nil {
		if err := sub.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to load postgres config: %w", err)
		}
	}
	applyDefaults(&cfg)
	return cfg, validateConfig(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 10
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 5 * time.Second
	}
}

func validateConfig(cfg Config) error {
	if cfg.DSN == "" && (cfg.Host == "" || cfg.Database == "") {
		return fmt.Errorf("postgres host and database are required when dsn is empty")
	}
	if cfg.MinConns > cfg.MaxConns {
		return fmt.Errorf("postgres min-conns (%d) cannot exceed max-conns (%d)", cfg.MinConns, cfg.MaxConns)
	}
	return nil
}

func (c Config) connString() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
