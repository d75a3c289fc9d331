package notifications

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"geobus/pkg/model"
)

var ticketHTML = htmltemplate.Must(htmltemplate.New("ticket").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto;">
    <div style="background: #2f855a; color: #fff; padding: 24px; text-align: center;">
      <h1>Bus Ticket Confirmed</h1>
      <p>Your booking has been successfully confirmed!</p>
    </div>
    <div style="padding: 24px; background: #f7fafc;">
      <h2>Ticket ID: {{.TicketID}}</h2>
      <p><strong>Bus Details:</strong> {{.BusName}} ({{.BusNumber}})</p>
      <p><strong>Route:</strong> {{.From}} &rarr; {{.To}}</p>
      <p><strong>Journey Date:</strong> {{.JourneyDate}}</p>
      <p><strong>Departure Time:</strong> {{.Departure}}</p>
      <p><strong>Arrival Time:</strong> {{.Arrival}}</p>
      <p><strong>Total Amount:</strong> &#8377;{{.Total}}</p>
      <p><strong>Payment Method:</strong> {{.PaymentMethod}}</p>
      <h3 style="color: #2f855a;">Passenger Details</h3>
      <table style="width: 100%; border-collapse: collapse;">
        <thead><tr><th>Seat</th><th>Name</th><th>Age</th><th>Gender</th></tr></thead>
        <tbody>
        {{range .Seats}}<tr><td>{{.SeatNumber}}</td><td>{{.PassengerName}}</td><td>{{.PassengerAge}}</td><td>{{.PassengerGender}}</td></tr>
        {{end}}</tbody>
      </table>
      <div style="margin-top: 24px; padding: 12px; border-left: 4px solid #f56565; background: #fff5f5;">
        <strong>Important Instructions:</strong>
        <ul>
          <li>Please arrive at the bus station 30 minutes before departure time</li>
          <li>Carry a valid ID proof for verification</li>
          <li>This ticket is non-transferable</li>
          <li>For cancellations, you can cancel through "My Bookings" section</li>
        </ul>
      </div>
      <p style="text-align: center; font-size: 12px; color: #666;">Thank you for choosing our bus booking service!<br>For support, please contact us at {{.Support}}</p>
    </div>
  </div>
</body>
</html>`))

var ticketText = texttemplate.Must(texttemplate.New("ticket").Parse(`Your bus ticket has been confirmed!

Ticket ID: {{.TicketID}}
Bus: {{.BusName}} ({{.BusNumber}})
Route: {{.From}} to {{.To}}
Journey Date: {{.JourneyDate}}
Departure: {{.Departure}}
Total Amount: Rs. {{.Total}}

Thank you for your booking!
`))

var ErrNoRecipient = errors.New("ticket has no contact email")

type ticketView struct {
	TicketID      string
	BusName       string
	BusNumber     string
	From          string
	To            string
	JourneyDate   string
	Departure     string
	Arrival       string
	Total         string
	PaymentMethod string
	Seats         []model.BookedSeat
	Support       string
}

// ComposeTicketEmail builds the confirmation mail with the ticket PDF attached.
// It fails when the booking has no contact address.
func ComposeTicketEmail(ticket model.TicketBundle, pdf []byte, support string) (Email, error) {
	b := ticket.Booking
	to := b.ContactEmail(ticket.User)
	if to == "" {
		return Email{}, fmt.Errorf("%w: %s", ErrNoRecipient, b.TicketID)
	}

	view := ticketView{
		TicketID:      b.TicketID,
		Departure:     orDefault(b.DepartureTimeSnapshot, "N/A"),
		Arrival:       orDefault(b.ArrivalTimeSnapshot, "N/A"),
		JourneyDate:   longDate(journeyDay(ticket)),
		Total:         fmt.Sprintf("%.2f", b.TotalAmount),
		PaymentMethod: strings.ToUpper(b.PaymentMethod),
		Seats:         b.Seats,
		Support:       orDefault(support, "support@busbooking.com"),
	}
	if bus := ticket.Bus; bus != nil {
		view.BusName, view.BusNumber = bus.BusName, bus.BusNumber
		view.From, view.To = bus.From, bus.To
		if view.Departure == "N/A" {
			view.Departure = orDefault(bus.DepartureTime, "N/A")
		}
		if view.Arrival == "N/A" {
			view.Arrival = orDefault(bus.ArrivalTime, "N/A")
		}
	}

	var html, text bytes.Buffer
	if err := ticketHTML.Execute(&html, view); err != nil {
		return Email{}, fmt.Errorf("render ticket email: %w", err)
	}
	if err := ticketText.Execute(&text, view); err != nil {
		return Email{}, fmt.Errorf("render ticket email: %w", err)
	}

	email := Email{
		To:      to,
		Subject: "Bus Ticket Confirmed - " + b.TicketID,
		HTML:    html.String(),
		Text:    text.String(),
	}
	if len(pdf) > 0 {
		email.Attachments = []Attachment{{
			Name:        "ticket-" + b.TicketID + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}}
	}
	return email, nil
}

func longDate(day string) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return "N/A"
	}
	return t.Format("Monday, 2 January 2006")
}
