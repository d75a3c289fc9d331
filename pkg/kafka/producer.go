package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	kafka_config "geobus/pkg/kafka/config"
	"geobus/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer     messageWriter
	dlqWriter  messageWriter
	topic      string
	dlqTopic   string
	log        *logger.Logger
	middleware []ProducerMiddleware
	closed     bool
	mu         sync.RWMutex
}

type ProducerMiddleware func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error

func NewProducer(cfg *kafka_config.Config, topic, dlqTopic string, log *logger.Logger) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	p := &Producer{
		writer:   newWriter(cfg, topic, requiredAcks(cfg.ProducerRequireAcks), cfg.ProducerMaxAttempts, log),
		topic:    topic,
		dlqTopic: dlqTopic,
		log:      log,
	}
	if dlqTopic != "" {
		p.dlqWriter = newWriter(cfg, dlqTopic, kafka.RequireAll, 3, log)
	}
	return p, nil
}

func newWriter(cfg *kafka_config.Config, topic string, acks kafka.RequiredAcks, attempts int, log *logger.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           acks,
		Compression:            compression(cfg.ProducerCompression),
		MaxAttempts:            attempts,
		BatchTimeout:           cfg.ProducerBatchTimeout,
		AllowAutoTopicCreation: cfg.AllowAutoTopicCreation,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("kafka writer error", "topic", topic, "detail", fmt.Sprintf(msg, args...))
		}),
	}
}

func compression(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Gzip
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	case "none":
		return 0
	default:
		return compress.Snappy
	}
}

func requiredAcks(acks int) kafka.RequiredAcks {
	switch acks {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

func (p *Producer) Topic() string {
	return p.topic
}

// Publish writes msg to the topic. When the write fails and a DLQ is
// configured the message is parked there; the original error is still returned.
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	closed := p.closed
	chain := p.middleware
	p.mu.RUnlock()

	if closed {
		return ErrProducerClosed
	}
	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}
	msg.Topic = p.topic

	handler := p.publish
	for i := len(chain) - 1; i >= 0; i-- {
		mw := chain[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}

	return handler(ctx, msg)
}

func (p *Producer) publish(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, msg.toKafka())
	if err == nil {
		return nil
	}

	if p.dlqWriter != nil {
		if dlqErr := p.dlqWriter.WriteMessages(ctx, dlqCopy(msg, p.topic, err).toKafka()); dlqErr != nil {
			return errors.Join(err, fmt.Errorf("dlq write: %w", dlqErr))
		}
		p.log.Warn("Message parked on DLQ", "topic", p.topic, "dlq_topic", p.dlqTopic, "key", msg.Key, "error", err)
	}
	return err
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.writer != nil {
		errs = append(errs, p.writer.Close())
	}
	if p.dlqWriter != nil {
		errs = append(errs, p.dlqWriter.Close())
	}
	return errors.Join(errs...)
}
