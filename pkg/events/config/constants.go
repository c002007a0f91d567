package config

import "time"

const (
	DefaultTopic        = "relaydocs.domain-events"
	DefaultConsumerName = "document-service"
	DefaultGroupID      = "relaydocs-document-service"

	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	// BackendMemory keeps claims in process memory. Local development only.
	BackendMemory = "memory"

	defaultAutoOffsetReset         = "earliest"
	defaultMaxRetries              = 2
	defaultBackoffDelay            = 500 * time.Millisecond
	defaultChannelBufferSize       = 100
	defaultDeliveryTimeout         = 10 * time.Second
	defaultReadinessTimeoutSeconds = 60
	defaultLedgerCollection        = "consumed_events"
	defaultLedgerTable             = "consumed_events"

	maxMaxRetries        = 100
	maxBackoffDelay      = 5 * time.Minute
	minChannelBufferSize = 1
	maxChannelBufferSize = 10000
	maxReadinessTimeout  = 600
	maxDeliveryTimeout   = 5 * time.Minute
)
