package notifications

import (
	"context"
	"errors"
	"fmt"

	"geobus/pkg/kafka"
	"geobus/pkg/logger"
	"geobus/pkg/model"
)

const (
	EventTicketConfirmed = "ticket.confirmed"
	eventSchemaVersion   = "1"
)

// TicketEvent is the payload published for every confirmed booking.
type TicketEvent struct {
	Booking *model.Booking `json:"booking"`
	Bus     *model.Bus     `json:"bus,omitempty"`
	User    *model.User    `json:"user,omitempty"`
}

func (e TicketEvent) Bundle() model.TicketBundle {
	return model.TicketBundle{Booking: e.Booking, Bus: e.Bus, User: e.User}
}

// Delivery sends one ticket somewhere. Implementations may block.
type Delivery interface {
	Deliver(ctx context.Context, ticket model.TicketBundle) error
	Name() string
}

type Renderer interface {
	RenderTicket(ticket model.TicketBundle) ([]byte, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type logDelivery struct {
	log *logger.Logger
}

// NewLogDelivery records the ticket and sends nothing.
func NewLogDelivery(log *logger.Logger) Delivery {
	return &logDelivery{log: log}
}

func (d *logDelivery) Name() string { return "log" }

func (d *logDelivery) Deliver(_ context.Context, ticket model.TicketBundle) error {
	d.log.Info("Email disabled, ticket notification skipped",
		"ticket_id", ticket.Booking.TicketID,
		"to", ticket.Booking.ContactEmail(ticket.User),
	)
	return nil
}

type mailDelivery struct {
	renderer Renderer
	mailer   Mailer
	support  string
	log      *logger.Logger
}

// NewMailDelivery renders the ticket PDF and mails it. A rendering failure
// still sends the mail, without the attachment.
func NewMailDelivery(renderer Renderer, mailer Mailer, support string, log *logger.Logger) Delivery {
	return &mailDelivery{renderer: renderer, mailer: mailer, support: support, log: log}
}

func (d *mailDelivery) Name() string { return "smtp" }

func (d *mailDelivery) Deliver(ctx context.Context, ticket model.TicketBundle) error {
	pdf, err := d.renderer.RenderTicket(ticket)
	if err != nil {
		d.log.Warn("Ticket PDF rendering failed, mailing without attachment",
			"ticket_id", ticket.Booking.TicketID,
			"error", err,
		)
		pdf = nil
	}

	email, err := ComposeTicketEmail(ticket, pdf, d.support)
	if err != nil {
		return err
	}
	if err := d.mailer.Send(ctx, email); err != nil {
		return fmt.Errorf("send ticket %s to %s: %w", ticket.Booking.TicketID, email.To, err)
	}

	d.log.Info("Ticket email sent", "ticket_id", ticket.Booking.TicketID, "to", email.To)
	return nil
}

type kafkaDelivery struct {
	publisher EventPublisher
	source    string
}

// NewKafkaDelivery publishes a ticket.confirmed event keyed by ticket id.
func NewKafkaDelivery(publisher EventPublisher, source string) Delivery {
	return &kafkaDelivery{publisher: publisher, source: source}
}

func (d *kafkaDelivery) Name() string { return "kafka" }

func (d *kafkaDelivery) Deliver(ctx context.Context, ticket model.TicketBundle) error {
	msg, err := kafka.NewMessage().
		WithKey(ticket.Booking.TicketID).
		WithJSON(TicketEvent{Booking: ticket.Booking, Bus: ticket.Bus, User: ticket.User}).
		WithEventType(EventTicketConfirmed).
		WithCorrelationID(ticket.Booking.TicketID).
		WithSchemaVersion(eventSchemaVersion).
		WithSource(d.source).
		Build()
	if err != nil {
		return err
	}
	return d.publisher.Publish(ctx, msg)
}

// NewTicketEventHandler consumes ticket.confirmed events and hands them to
// delivery. Undecodable events are permanent failures; delivery errors are
// retried.
func NewTicketEventHandler(delivery Delivery, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if eventType := msg.GetEventType(); eventType != "" && eventType != EventTicketConfirmed {
			log.Debug("Ignoring event", "event_type", eventType, "key", msg.Key)
			return nil
		}

		var event TicketEvent
		if err := msg.DecodeValue(&event); err != nil {
			return err
		}
		if event.Booking == nil || event.Booking.TicketID == "" {
			return kafka.NewPermanentError("ticket event without booking", nil)
		}

		if err := delivery.Deliver(ctx, event.Bundle()); err != nil {
			if errors.Is(err, ErrNoRecipient) {
				return kafka.NewPermanentError("ticket delivery failed", err)
			}
			return kafka.NewTransientError("ticket delivery failed", err)
		}
		return nil
	}
}
