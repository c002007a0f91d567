package config

import (
	"fmt"
	"strings"
)

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Topic) == "" {
		return fmt.Errorf("events topic cannot be empty")
	}
	if (cfg.Publishing.Enabled || cfg.Consumer.Enabled) && strings.TrimSpace(cfg.Brokers) == "" {
		return fmt.Errorf("kafka brokers cannot be empty when publishing or consuming is enabled")
	}
	if err := validatePublishing(&cfg.Publishing); err != nil {
		return err
	}
	if err := validateConsumer(&cfg.Consumer); err != nil {
		return err
	}
	return validateLedger(&cfg.Ledger)
}

func validatePublishing(cfg *PublishingConfig) error {
	if cfg.DeliveryTimeout <= 0 || cfg.DeliveryTimeout > maxDeliveryTimeout {
		return fmt.Errorf("publishing delivery timeout must be between 0 and %v, got: %v", maxDeliveryTimeout, cfg.DeliveryTimeout)
	}
	if cfg.ReadinessTimeoutSeconds < 0 || cfg.ReadinessTimeoutSeconds > maxReadinessTimeout {
		return fmt.Errorf("publishing readiness timeout must be between 0 and %d seconds, got: %d", maxReadinessTimeout, cfg.ReadinessTimeoutSeconds)
	}
	return nil
}

func validateConsumer(cfg *ConsumerConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("consumer name cannot be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return fmt.Errorf("consumer (%s): group id cannot be empty", cfg.Name)
	}
	if cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return fmt.Errorf("consumer (%s): auto offset reset must be 'earliest' or 'latest', got: %s", cfg.Name, cfg.AutoOffsetReset)
	}
	if cfg.MaxRetries < 0 || cfg.MaxRetries > maxMaxRetries {
		return fmt.Errorf("consumer (%s): max retries must be between 0 and %d, got: %d", cfg.Name, maxMaxRetries, cfg.MaxRetries)
	}
	if cfg.BackoffDelay < 0 || cfg.BackoffDelay > maxBackoffDelay {
		return fmt.Errorf("consumer (%s): backoff delay must be between 0 and %v, got: %v", cfg.Name, maxBackoffDelay, cfg.BackoffDelay)
	}
	if cfg.ChannelBufferSize < minChannelBufferSize || cfg.ChannelBufferSize > maxChannelBufferSize {
		return fmt.Errorf("consumer (%s): channel buffer size must be between %d and %d, got: %d",
			cfg.Name, minChannelBufferSize, maxChannelBufferSize, cfg.ChannelBufferSize)
	}
	if cfg.ReadinessTimeoutSeconds < 0 || cfg.ReadinessTimeoutSeconds > maxReadinessTimeout {
		return fmt.Errorf("consumer (%s): readiness timeout must be between 0 and %d seconds, got: %d",
			cfg.Name, maxReadinessTimeout, cfg.ReadinessTimeoutSeconds)
	}
	if cfg.EnableDLQ && cfg.DLQTopic == cfg.Topic {
		return fmt.Errorf("consumer (%s): DLQ topic cannot be the same as main topic", cfg.Name)
	}
	return nil
}

func validateLedger(cfg *LedgerConfig) error {
	switch cfg.Backend {
	case BackendMongo:
		if strings.TrimSpace(cfg.Collection) == "" {
			return fmt.Errorf("ledger collection cannot be empty")
		}
	case BackendPostgres:
		if strings.TrimSpace(cfg.Table) == "" {
			return fmt.Errorf("ledger table cannot be empty")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("ledger backend must be one of '%s', '%s', '%s', got: %s",
			BackendMongo, BackendPostgres, BackendMemory, cfg.Backend)
	}
	return nil
}
