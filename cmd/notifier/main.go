package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"geobus/internal/notifications"
	"geobus/pkg/config"
	"geobus/pkg/kafka"
	kafka_config "geobus/pkg/kafka/config"
	kafka_middleware "geobus/pkg/kafka/middleware"
)

const ServiceName = "geobus-notifier"

// The notifier consumes ticket.confirmed events and mails the ticket PDF.
func main() {
	cfg := config.Load(ServiceName)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	mailer := notifications.NewSMTPMailer(notifications.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	delivery := notifications.NewMailDelivery(notifications.NewTicketRenderer(""), mailer, cfg.SMTPFrom, cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		kafkaCfg.TicketTopic,
		kafkaCfg.ConsumerGroup,
		kafkaCfg.DLQTopic,
		notifications.NewTicketEventHandler(delivery, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting ticket notifier",
		"topic", kafkaCfg.TicketTopic,
		"group", kafkaCfg.ConsumerGroup,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Ticket notifier stopped")
}
