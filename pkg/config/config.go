package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"geobus/pkg/client"
	"geobus/pkg/journeytime"
	"geobus/pkg/logger"

	"github.com/joho/godotenv"
)

const minJWTSecretLength = 16

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration
	StoreTimeout      time.Duration

	Port string

	RedisURL string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	ReferenceUTCOffset string
	SearchMaxDaysAhead int
	RefundRate         float64
	DefaultSeatCount   int

	ReconcileInterval  time.Duration
	ReconcileHoldGrace time.Duration
	ReconcileLookback  time.Duration

	NotificationMode       string
	NotificationQueueSize  int
	NotificationWorkers    int
	NotificationJobTimeout time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the optional .env file and the environment, then validates.
// Invalid configuration is fatal.
func Load(serviceName string) *Config {
	envErr := loadEnvFile()

	cfg := FromEnv()
	cfg.Log = logger.New(logger.Config{
		Level:     getEnvStr(EnvLogLevel, logger.INFO),
		Format:    getEnvStr(EnvLogFormat, logger.JSON),
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	if envErr != nil {
		cfg.Log.Warn("Failed to read env file", "error", envErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from environment variables without validating it.
func FromEnv() *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		StoreTimeout:      getEnvDuration(EnvStoreTimeout, DefaultStoreTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RedisURL: getEnvStr(EnvRedisURL, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),
		JWTTTL:    getEnvDuration(EnvJWTTTL, DefaultJWTTTL),

		ReferenceUTCOffset: getEnvStr(EnvReferenceUTCOffset, DefaultReferenceUTCOffset),
		SearchMaxDaysAhead: getEnvNum(EnvSearchMaxDaysAhead, DefaultSearchMaxDaysAhead),
		RefundRate:         getEnvFloat(EnvRefundRate, DefaultRefundRate),
		DefaultSeatCount:   getEnvNum(EnvDefaultSeatCount, DefaultSeatCount),

		ReconcileInterval:  getEnvDuration(EnvReconcileInterval, DefaultReconcileInterval),
		ReconcileHoldGrace: getEnvDuration(EnvReconcileHoldGrace, DefaultReconcileHoldGrace),
		ReconcileLookback:  getEnvDuration(EnvReconcileLookback, DefaultReconcileLookback),

		NotificationMode:       strings.ToLower(getEnvStr(EnvNotificationMode, DefaultNotificationMode)),
		NotificationQueueSize:  getEnvNum(EnvNotificationQueueSize, DefaultNotificationQueueSize),
		NotificationWorkers:    getEnvNum(EnvNotificationWorkers, DefaultNotificationWorkers),
		NotificationJobTimeout: getEnvDuration(EnvNotificationJobTimeout, DefaultNotificationJobTimeout),

		SMTPHost:     getEnvStr(EnvSMTPHost, ""),
		SMTPPort:     getEnvNum(EnvSMTPPort, DefaultSMTPPort),
		SMTPUser:     getEnvStr(EnvSMTPUser, ""),
		SMTPPassword: getEnvStr(EnvSMTPPassword, ""),
		SMTPFrom:     getEnvStr(EnvSMTPFrom, ""),
	}
}

func loadEnvFile() error {
	path := getEnvStr(EnvFile, DefaultEnvFile)
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	if cfg.RedisURL == "" {
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisURL, cfg.MongoConnTimeout)
}

// ReferenceLocation is the fixed zone used to decide which calendar day is "today".
func (cfg *Config) ReferenceLocation() *time.Location {
	loc, err := journeytime.ParseOffset(cfg.ReferenceUTCOffset)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.RedisURL != "" && !regexp.MustCompile(`^rediss?://`).MatchString(cfg.RedisURL) {
		errors = append(errors, "RedisURL must start with 'redis://' or 'rediss://'")
	}

	positiveDurations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"StoreTimeout", cfg.StoreTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"JWTTTL", cfg.JWTTTL},
		{"ReconcileHoldGrace", cfg.ReconcileHoldGrace},
		{"NotificationJobTimeout", cfg.NotificationJobTimeout},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}
	if cfg.ReconcileInterval < 0 {
		errors = append(errors, fmt.Sprintf("ReconcileInterval cannot be negative, got: %s", cfg.ReconcileInterval))
	}
	if cfg.ReconcileLookback < 0 {
		errors = append(errors, fmt.Sprintf("ReconcileLookback cannot be negative, got: %s", cfg.ReconcileLookback))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(cfg.JWTSecret) < minJWTSecretLength {
		errors = append(errors, fmt.Sprintf("JWTSecret must be at least %d characters", minJWTSecretLength))
	}

	if _, err := journeytime.ParseOffset(cfg.ReferenceUTCOffset); err != nil {
		errors = append(errors, fmt.Sprintf("ReferenceUTCOffset must look like +05:30, got: %s", cfg.ReferenceUTCOffset))
	}
	if cfg.SearchMaxDaysAhead < 1 {
		errors = append(errors, fmt.Sprintf("SearchMaxDaysAhead must be at least 1, got: %d", cfg.SearchMaxDaysAhead))
	}
	if cfg.RefundRate < 0 || cfg.RefundRate > 1 {
		errors = append(errors, fmt.Sprintf("RefundRate must be between 0 and 1, got: %g", cfg.RefundRate))
	}
	if cfg.DefaultSeatCount < 1 || cfg.DefaultSeatCount > 99 {
		errors = append(errors, fmt.Sprintf("DefaultSeatCount must be between 1 and 99, got: %d", cfg.DefaultSeatCount))
	}

	switch cfg.NotificationMode {
	case NotificationModeLog, NotificationModeKafka:
	case NotificationModeSMTP:
		if cfg.SMTPHost == "" {
			errors = append(errors, "SMTPHost is required when NotificationMode is smtp")
		}
		if cfg.SMTPFrom == "" && cfg.SMTPUser == "" {
			errors = append(errors, "SMTPFrom or SMTPUser is required when NotificationMode is smtp")
		}
	default:
		errors = append(errors, fmt.Sprintf("NotificationMode must be one of [log, smtp, kafka], got: %s", cfg.NotificationMode))
	}
	if cfg.NotificationQueueSize <= 0 {
		errors = append(errors, fmt.Sprintf("NotificationQueueSize must be positive, got: %d", cfg.NotificationQueueSize))
	}
	if cfg.NotificationWorkers <= 0 {
		errors = append(errors, fmt.Sprintf("NotificationWorkers must be positive, got: %d", cfg.NotificationWorkers))
	}
	if cfg.SMTPPort < 1 || cfg.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("SMTPPort must be between 1 and 65535, got: %d", cfg.SMTPPort))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"store_timeout", cfg.StoreTimeout,
		"port", cfg.Port,
		"redis_url", redactURI(cfg.RedisURL),
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"jwt_secret_set", cfg.JWTSecret != "",
		"jwt_ttl", cfg.JWTTTL,
		"reference_utc_offset", cfg.ReferenceUTCOffset,
		"search_max_days_ahead", cfg.SearchMaxDaysAhead,
		"refund_rate", cfg.RefundRate,
		"default_seat_count", cfg.DefaultSeatCount,
		"reconcile_interval", cfg.ReconcileInterval,
		"reconcile_hold_grace", cfg.ReconcileHoldGrace,
		"reconcile_lookback", cfg.ReconcileLookback,
		"notification_mode", cfg.NotificationMode,
		"notification_queue_size", cfg.NotificationQueueSize,
		"notification_workers", cfg.NotificationWorkers,
		"notification_job_timeout", cfg.NotificationJobTimeout,
		"smtp_host", cfg.SMTPHost,
		"smtp_port", cfg.SMTPPort,
		"smtp_user", cfg.SMTPUser,
		"smtp_password_set", cfg.SMTPPassword != "",
	)
}

// redactURI masks user:password in mongodb:// and redis:// style URIs.
func redactURI(uri string) string {
	credentialRegex := regexp.MustCompile(`^([a-z+]+://)[^:/@]*:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
