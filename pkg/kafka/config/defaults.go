package kafka_config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"

	DefaultTicketTopic            = "geobus.ticket.confirmed"
	DefaultDLQTopic               = "geobus.ticket.confirmed.dlq"
	DefaultConsumerGroup          = "geobus-notifier"
	DefaultAllowAutoTopicCreation = true

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // all in-sync replicas
	DefaultProducerCompression  = "snappy"

	DefaultConsumerStartOffset       = -2 // oldest, so nothing confirmed before the first deploy is skipped
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 10 * 1024 * 1024 // 10MB
	DefaultConsumerMaxWait           = 500 * time.Millisecond
	DefaultConsumerCommitInterval    = 0 // synchronous commits
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 10 * time.Second
	DefaultConsumerRebalanceTimeout  = 60 * time.Second
	DefaultConsumerMaxRetries        = 3
	DefaultConsumerRetryBackoff      = 2 * time.Second

	DefaultEnableMiddleware = true
)
