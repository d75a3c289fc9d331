package kafka_config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, DefaultTicketTopic, cfg.TicketTopic)
	assert.Equal(t, DefaultDLQTopic, cfg.DLQTopic)
	assert.Equal(t, DefaultConsumerGroup, cfg.ConsumerGroup)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " k1:9092, ,k2:9092 ")
	t.Setenv(EnvKafkaTicketTopic, "tickets")
	t.Setenv(EnvKafkaConsumerMaxRetries, "7")
	t.Setenv(EnvKafkaProducerCompression, "zstd")

	cfg := FromEnv()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, "tickets", cfg.TicketTopic)
	assert.Equal(t, 7, cfg.ConsumerMaxRetries)
	assert.Equal(t, "zstd", cfg.ProducerCompression)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := FromEnv()
	cfg.Brokers = nil
	cfg.ProducerCompression = "brotli"
	cfg.DLQTopic = cfg.TicketTopic

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1. At least one Kafka broker is required")
	assert.Contains(t, err.Error(), "DLQTopic must differ")
	assert.Contains(t, err.Error(), "brotli")
}

func TestLoad_InvalidReturnsError(t *testing.T) {
	t.Setenv(EnvKafkaProducerRequireAcks, "5")

	cfg, err := Load()
	assert.Nil(t, cfg)
	assert.Error(t, err)
}
