package notifications

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"sync"
	"testing"
	"time"

	"geobus/pkg/kafka"
	"geobus/pkg/logger"
	"geobus/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTicket() model.TicketBundle {
	journey := time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)
	return model.TicketBundle{
		Booking: &model.Booking{
			TicketID: "TICKET1767225600000ABCDEF",
			Seats: []model.BookedSeat{
				{SeatNumber: "S01", PassengerName: "Asha", PassengerAge: 30, PassengerGender: "female"},
				{SeatNumber: "S02", PassengerName: "<b>Ravi</b>", PassengerAge: 8, PassengerGender: "male"},
			},
			TotalAmount:           1000,
			BookingDate:           time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
			Status:                model.BookingStatusConfirmed,
			PassengerDetails:      model.PassengerDetails{Mobile: "9876543210", Email: "asha@example.com"},
			PaymentMethod:         model.PaymentMethodUPI,
			PaymentStatus:         model.PaymentStatusCompleted,
			JourneyDate:           &journey,
			JourneyDateISO:        "2026-04-03",
			DepartureTimeSnapshot: "10:00 PM",
			ArrivalTimeSnapshot:   "02:00 AM",
		},
		Bus:  &model.Bus{BusName: "Night Rider", BusNumber: "GB-101", From: "Mumbai", To: "Pune"},
		User: &model.User{Name: "Asha Rao", Email: "account@example.com"},
	}
}

func TestRenderTicket(t *testing.T) {
	r := NewTicketRenderer("")

	pdf, err := r.RenderTicket(sampleTicket())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	cancelled := sampleTicket()
	at := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	cancelled.Booking.IsCancelled = true
	cancelled.Booking.Status = model.BookingStatusCancelled
	cancelled.Booking.RefundAmount = 800
	cancelled.Booking.CancellationDate = &at
	cancelled.Bus = nil
	cancelled.User = nil

	pdf, err = r.RenderTicket(cancelled)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, err = r.RenderTicket(model.TicketBundle{})
	assert.Error(t, err)
}

func TestComposeTicketEmail(t *testing.T) {
	ticket := sampleTicket()

	email, err := ComposeTicketEmail(ticket, []byte("%PDF-1.3"), "help@geobus.test")
	require.NoError(t, err)

	assert.Equal(t, "asha@example.com", email.To)
	assert.Equal(t, "Bus Ticket Confirmed - TICKET1767225600000ABCDEF", email.Subject)
	assert.Contains(t, email.HTML, "Night Rider (GB-101)")
	assert.Contains(t, email.HTML, "Friday, 3 April 2026")
	assert.Contains(t, email.HTML, "&lt;b&gt;Ravi&lt;/b&gt;")
	assert.Contains(t, email.HTML, "help@geobus.test")
	assert.Contains(t, email.Text, "Route: Mumbai to Pune")
	assert.Contains(t, email.Text, "Total Amount: Rs. 1000.00")
	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "ticket-TICKET1767225600000ABCDEF.pdf", email.Attachments[0].Name)

	ticket.Booking.PassengerDetails.Email = ""
	email, err = ComposeTicketEmail(ticket, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "account@example.com", email.To)
	assert.Empty(t, email.Attachments)

	ticket.User = nil
	_, err = ComposeTicketEmail(ticket, nil, "")
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestBuildMessage(t *testing.T) {
	email := Email{
		To:      "asha@example.com",
		Subject: "Bus Ticket Confirmed - T1",
		HTML:    "<p>hello</p>",
		Text:    "hello",
		Attachments: []Attachment{{
			Name:        "ticket-T1.pdf",
			ContentType: "application/pdf",
			Data:        bytes.Repeat([]byte("%PDF"), 100),
		}},
	}

	raw, err := buildMessage("noreply@geobus.test", email, time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Bus Ticket Confirmed - T1", subject)
	assert.Equal(t, "asha@example.com", msg.Header.Get("To"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(msg.Body, params["boundary"])
	var types []string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ct, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		types = append(types, ct)
		if ct == "application/pdf" {
			assert.Equal(t, "ticket-T1.pdf", part.FileName())
		}
	}
	assert.Equal(t, []string{"multipart/alternative", "application/pdf"}, types)
}

type recordingDelivery struct {
	mu        sync.Mutex
	delivered []string
	started   chan string
	release   chan struct{}
	err       error
	panicMsg  string
}

func (d *recordingDelivery) Name() string { return "recording" }

func (d *recordingDelivery) Deliver(ctx context.Context, ticket model.TicketBundle) error {
	if d.started != nil {
		d.started <- ticket.Booking.TicketID
	}
	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if d.panicMsg != "" {
		panic(d.panicMsg)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, ticket.Booking.TicketID)
	return d.err
}

func (d *recordingDelivery) tickets() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.delivered...)
}

func ticketWithID(id string) model.TicketBundle {
	return model.TicketBundle{Booking: &model.Booking{TicketID: id}}
}

func TestDispatcher_DeliversQueuedTickets(t *testing.T) {
	delivery := &recordingDelivery{}
	d := NewDispatcher(delivery, DispatcherConfig{QueueSize: 10, Workers: 3, JobTimeout: time.Second}, logger.NewNop())
	d.Start()

	for _, id := range []string{"T1", "T2", "T3", "T4"} {
		d.Notify(ticketWithID(id))
	}
	require.NoError(t, d.Stop(context.Background()))

	assert.ElementsMatch(t, []string{"T1", "T2", "T3", "T4"}, delivery.tickets())
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	delivery := &recordingDelivery{started: make(chan string, 4), release: make(chan struct{})}
	d := NewDispatcher(delivery, DispatcherConfig{QueueSize: 1, Workers: 1, JobTimeout: 5 * time.Second}, logger.NewNop())
	d.Start()

	d.Notify(ticketWithID("T1"))
	assert.Equal(t, "T1", <-delivery.started)

	done := make(chan struct{})
	go func() {
		d.Notify(ticketWithID("T2"))
		d.Notify(ticketWithID("T3"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	close(delivery.release)
	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, []string{"T1", "T2"}, delivery.tickets())
}

func TestDispatcher_JobTimeoutAndPanicDoNotKillWorker(t *testing.T) {
	slow := &recordingDelivery{release: make(chan struct{})}
	d := NewDispatcher(slow, DispatcherConfig{QueueSize: 2, Workers: 1, JobTimeout: 20 * time.Millisecond}, logger.NewNop())
	d.Start()
	d.Notify(ticketWithID("T1"))
	require.NoError(t, d.Stop(context.Background()))
	assert.Empty(t, slow.tickets())

	panicky := &recordingDelivery{panicMsg: "boom"}
	d = NewDispatcher(panicky, DispatcherConfig{QueueSize: 2, Workers: 1}, logger.NewNop())
	d.Start()
	d.Notify(ticketWithID("T1"))
	d.Notify(ticketWithID("T2"))
	require.NoError(t, d.Stop(context.Background()))
}

func TestDispatcher_NotifyAfterStop(t *testing.T) {
	delivery := &recordingDelivery{}
	d := NewDispatcher(delivery, DispatcherConfig{}, logger.NewNop())
	d.Start()
	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Stop(context.Background()))

	assert.NotPanics(t, func() { d.Notify(ticketWithID("T1")) })
	assert.Empty(t, delivery.tickets())
}

type fakePublisher struct {
	msgs []kafka.Message
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, msg kafka.Message) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestKafkaDelivery(t *testing.T) {
	pub := &fakePublisher{}
	delivery := NewKafkaDelivery(pub, "geobus-server")

	require.NoError(t, delivery.Deliver(context.Background(), sampleTicket()))
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, "TICKET1767225600000ABCDEF", msg.Key)
	assert.Equal(t, EventTicketConfirmed, msg.GetEventType())
	assert.Equal(t, "TICKET1767225600000ABCDEF", msg.GetCorrelationID())
	assert.Equal(t, "geobus-server", msg.Headers[kafka.HeaderSource])
	assert.NotContains(t, string(msg.Value), "password")

	var event TicketEvent
	require.NoError(t, msg.DecodeValue(&event))
	assert.Equal(t, "Night Rider", event.Bus.BusName)
	assert.Equal(t, "asha@example.com", event.Booking.PassengerDetails.Email)
}

type mockMailer struct {
	sendFunc func(ctx context.Context, email Email) error
}

func (m *mockMailer) Send(ctx context.Context, email Email) error { return m.sendFunc(ctx, email) }

type failingRenderer struct{}

func (failingRenderer) RenderTicket(model.TicketBundle) ([]byte, error) {
	return nil, errors.New("no fonts")
}

func TestMailDelivery(t *testing.T) {
	var sent []Email
	mailer := &mockMailer{sendFunc: func(_ context.Context, e Email) error {
		sent = append(sent, e)
		return nil
	}}

	delivery := NewMailDelivery(NewTicketRenderer(""), mailer, "", logger.NewNop())
	require.NoError(t, delivery.Deliver(context.Background(), sampleTicket()))
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Attachments, 1)
	assert.True(t, bytes.HasPrefix(sent[0].Attachments[0].Data, []byte("%PDF")))

	delivery = NewMailDelivery(failingRenderer{}, mailer, "", logger.NewNop())
	require.NoError(t, delivery.Deliver(context.Background(), sampleTicket()))
	require.Len(t, sent, 2)
	assert.Empty(t, sent[1].Attachments)
}

func TestTicketEventHandler(t *testing.T) {
	build := func(eventType string, value any) kafka.Message {
		msg, err := kafka.NewMessage().WithKey("k").WithJSON(value).WithEventType(eventType).Build()
		require.NoError(t, err)
		return msg
	}
	event := TicketEvent{Booking: sampleTicket().Booking}

	delivery := &recordingDelivery{}
	handler := NewTicketEventHandler(delivery, logger.NewNop())

	require.NoError(t, handler(context.Background(), build(EventTicketConfirmed, event)))
	assert.Equal(t, []string{"TICKET1767225600000ABCDEF"}, delivery.tickets())

	require.NoError(t, handler(context.Background(), build("ticket.cancelled", event)))
	assert.Len(t, delivery.tickets(), 1)

	bad := build(EventTicketConfirmed, event)
	bad.Value = []byte("{not json")
	err := handler(context.Background(), bad)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))

	err = handler(context.Background(), build(EventTicketConfirmed, TicketEvent{}))
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))

	failing := &recordingDelivery{err: errors.New("smtp 421")}
	err = NewTicketEventHandler(failing, logger.NewNop())(context.Background(), build(EventTicketConfirmed, event))
	assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(err))

	noRecipient := &recordingDelivery{err: ErrNoRecipient}
	err = NewTicketEventHandler(noRecipient, logger.NewNop())(context.Background(), build(EventTicketConfirmed, event))
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
	assert.True(t, strings.Contains(err.Error(), "contact email"))
}
