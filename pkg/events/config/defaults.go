package config

import "github.com/spf13/viper"

// registerDefaults makes every key known to viper, so values supplied only
// through the environment are picked up by Unmarshal.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("events.topic", DefaultTopic)

	v.SetDefault("events.publishing.enabled", true)
	v.SetDefault("events.publishing.delivery-timeout", defaultDeliveryTimeout)
	v.SetDefault("events.publishing.readiness-timeout-seconds", defaultReadinessTimeoutSeconds)
	v.SetDefault("events.publishing.fail-on-broker-error", false)

	v.SetDefault("events.consumer.enabled", true)
	v.SetDefault("events.consumer.name", DefaultConsumerName)
	v.SetDefault("events.consumer.topic", "")
	v.SetDefault("events.consumer.group-id", DefaultGroupID)
	v.SetDefault("events.consumer.auto-offset-reset", defaultAutoOffsetReset)
	v.SetDefault("events.consumer.max-retries", defaultMaxRetries)
	v.SetDefault("events.consumer.backoff-delay", defaultBackoffDelay)
	v.SetDefault("events.consumer.channel-buffer-size", defaultChannelBufferSize)
	v.SetDefault("events.consumer.enable-dlq", false)
	v.SetDefault("events.consumer.dlq-topic", "")
	v.SetDefault("events.consumer.readiness-timeout-seconds", defaultReadinessTimeoutSeconds)
	v.SetDefault("events.consumer.fail-on-topic-error", false)

	v.SetDefault("events.ledger.backend", BackendMongo)
	v.SetDefault("events.ledger.collection", defaultLedgerCollection)
	v.SetDefault("events.ledger.table", defaultLedgerTable)
}

// applyDerivedDefaults fills values that depend on other settings.
func applyDerivedDefaults(cfg *Config) {
	if cfg.Consumer.Topic == "" {
		cfg.Consumer.Topic = cfg.Topic
	}
	if cfg.Consumer.EnableDLQ && cfg.Consumer.DLQTopic == "" {
		cfg.Consumer.DLQTopic = cfg.Consumer.Topic + ".dlq"
	}
}
