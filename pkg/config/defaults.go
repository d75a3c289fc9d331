package config

import "time"

const (
	DefaultEnvFile = ".env"

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "geobus"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultStoreTimeout      = 5 * time.Second

	DefaultPort = "5000"

	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultJWTTTL = 7 * 24 * time.Hour

	DefaultReferenceUTCOffset = "+00:00"
	DefaultSearchMaxDaysAhead = 90
	DefaultRefundRate         = 0.8
	DefaultSeatCount          = 40

	DefaultReconcileInterval  = 10 * time.Minute
	DefaultReconcileHoldGrace = 5 * time.Minute
	DefaultReconcileLookback  = 24 * time.Hour

	DefaultNotificationMode       = NotificationModeLog
	DefaultNotificationQueueSize  = 256
	DefaultNotificationWorkers    = 4
	DefaultNotificationJobTimeout = 30 * time.Second

	DefaultSMTPPort = 587
)

const (
	NotificationModeLog   = "log"
	NotificationModeSMTP  = "smtp"
	NotificationModeKafka = "kafka"
)
