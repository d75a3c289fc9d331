package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kafka_config "geobus/pkg/kafka/config"
	"geobus/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// messageReader is the subset of *kafka.Reader the consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader     messageReader
	dlqWriter  messageWriter
	topic      string
	groupID    string
	maxRetries int
	backoff    time.Duration
	handler    MessageHandler
	middleware []ConsumerMiddleware
	log        *logger.Logger
	closed     bool
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewConsumer(cfg *kafka_config.Config, topic, groupID, dlqTopic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           groupID,
		MinBytes:          cfg.ConsumerMinBytes,
		MaxBytes:          cfg.ConsumerMaxBytes,
		MaxWait:           cfg.ConsumerMaxWait,
		CommitInterval:    cfg.ConsumerCommitInterval,
		HeartbeatInterval: cfg.ConsumerHeartbeatInterval,
		SessionTimeout:    cfg.ConsumerSessionTimeout,
		RebalanceTimeout:  cfg.ConsumerRebalanceTimeout,
		StartOffset:       cfg.ConsumerStartOffset,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("kafka reader error", "topic", topic, "detail", fmt.Sprintf(msg, args...))
		}),
	})

	c := &Consumer{
		reader:     reader,
		topic:      topic,
		groupID:    groupID,
		maxRetries: cfg.ConsumerMaxRetries,
		backoff:    cfg.ConsumerRetryBackoff,
		handler:    handler,
		log:        log,
	}
	if dlqTopic != "" {
		c.dlqWriter = newWriter(cfg, dlqTopic, kafka.RequireAll, 3, log)
	}
	return c, nil
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start consumes until ctx is cancelled. Every fetched message is committed
// once it has been handled or parked on the DLQ.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	for {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("Failed to fetch message", "topic", c.topic, "error", err)
			if !sleepCtx(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		msg := fromKafka(km)
		if err := c.process(ctx, msg); err != nil {
			c.log.Error("Message processing failed",
				"topic", c.topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"event_id", msg.GetEventID(),
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, km); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("Failed to commit offset", "topic", c.topic, "offset", km.Offset, "error", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg Message) error {
	c.mu.RLock()
	chain := c.middleware
	c.mu.RUnlock()

	handler := c.handler
	for i := len(chain) - 1; i >= 0; i-- {
		mw := chain[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}

	for {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}

		retries := msg.GetRetryCount()
		if ShouldRetry(err, retries, c.maxRetries) {
			msg.IncrementRetryCount()
			c.log.Warn("Retrying message", "event_id", msg.GetEventID(), "attempt", retries+1, "max_retries", c.maxRetries, "error", err)
			if !sleepCtx(ctx, c.backoff*time.Duration(retries+1)) {
				return ctx.Err()
			}
			continue
		}

		if c.dlqWriter != nil {
			if dlqErr := c.dlqWriter.WriteMessages(ctx, dlqCopy(msg, c.topic, err).toKafka()); dlqErr != nil {
				return errors.Join(err, fmt.Errorf("dlq write: %w", dlqErr))
			}
			c.log.Warn("Message sent to DLQ", "event_id", msg.GetEventID(), "retries", retries, "error", err)
		}
		return err
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Close waits for Start to return. Cancel its context first.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()

	var errs []error
	errs = append(errs, c.reader.Close())
	if c.dlqWriter != nil {
		errs = append(errs, c.dlqWriter.Close())
	}
	return errors.Join(errs...)
}
