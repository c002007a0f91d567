package config

import "time"

// Config is the "events" section plus the shared kafka.brokers setting.
type Config struct {
	Brokers    string           `mapstructure:"-"`
	Topic      string           `mapstructure:"topic"`
	Publishing PublishingConfig `mapstructure:"publishing"`
	Consumer   ConsumerConfig   `mapstructure:"consumer"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
}

type PublishingConfig struct {
	// Enabled selects the Kafka publisher; when false a no-op publisher is used.
	Enabled         bool          `mapstructure:"enabled"`
	DeliveryTimeout time.Duration `mapstructure:"delivery-timeout"`
	// ReadinessTimeoutSeconds bounds the broker check on start (0 = no wait).
	ReadinessTimeoutSeconds int  `mapstructure:"readiness-timeout-seconds"`
	FailOnBrokerError       bool `mapstructure:"fail-on-broker-error"`
}

type ConsumerConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Name              string        `mapstructure:"name"`
	Topic             string        `mapstructure:"topic"`
	GroupID           string        `mapstructure:"group-id"`
	AutoOffsetReset   string        `mapstructure:"auto-offset-reset"`
	MaxRetries        int           `mapstructure:"max-retries"`
	BackoffDelay      time.Duration `mapstructure:"backoff-delay"`
	ChannelBufferSize int           `mapstructure:"channel-buffer-size"`
	EnableDLQ         bool          `mapstructure:"enable-dlq"`
	DLQTopic          string        `mapstructure:"dlq-topic"`
	// ReadinessTimeoutSeconds bounds the wait for topic metadata on start.
	ReadinessTimeoutSeconds int  `mapstructure:"readiness-timeout-seconds"`
	FailOnTopicError        bool `mapstructure:"fail-on-topic-error"`
}

type LedgerConfig struct {
	Backend    string `mapstructure:"backend"`
	Collection string `mapstructure:"collection"`
	Table      string `mapstructure:"table"`
}
