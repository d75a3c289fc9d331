package config

const (
	EnvFile = "ENV_FILE"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvStoreTimeout      = "STORE_TIMEOUT"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvRedisURL = "REDIS_URL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvJWTSecret = "JWT_SECRET"
	EnvJWTTTL    = "JWT_TTL"

	EnvReferenceUTCOffset = "REFERENCE_UTC_OFFSET"
	EnvSearchMaxDaysAhead = "SEARCH_MAX_DAYS_AHEAD"
	EnvRefundRate         = "REFUND_RATE"
	EnvDefaultSeatCount   = "DEFAULT_SEAT_COUNT"

	EnvReconcileInterval  = "RECONCILE_INTERVAL"
	EnvReconcileHoldGrace = "RECONCILE_HOLD_GRACE"
	EnvReconcileLookback  = "RECONCILE_LOOKBACK"

	EnvNotificationMode       = "NOTIFICATION_MODE"
	EnvNotificationQueueSize  = "NOTIFICATION_QUEUE_SIZE"
	EnvNotificationWorkers    = "NOTIFICATION_WORKERS"
	EnvNotificationJobTimeout = "NOTIFICATION_JOB_TIMEOUT"

	EnvSMTPHost     = "SMTP_HOST"
	EnvSMTPPort     = "SMTP_PORT"
	EnvSMTPUser     = "SMTP_USER"
	EnvSMTPPassword = "SMTP_PASSWORD"
	EnvSMTPFrom     = "SMTP_FROM"
)
