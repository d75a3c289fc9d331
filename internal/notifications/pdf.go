package notifications

import (
	"bytes"
	"fmt"
	"strings"

	"geobus/pkg/journeytime"
	"geobus/pkg/model"

	"github.com/phpdave11/gofpdf"
)

var ticketInstructions = []string{
	"Arrive at boarding point 30 minutes before departure time",
	"Carry any government ID card (Aadhar/Driving License/Passport)",
	"This ticket is non-transferable",
	"Contact support for any changes or cancellations",
	"Keep this ticket safe for your journey",
	"Boarding point details will be sent via SMS/Email",
}

// TicketRenderer draws tickets as A4 PDFs.
type TicketRenderer struct {
	brand string
}

func NewTicketRenderer(brand string) *TicketRenderer {
	if brand == "" {
		brand = "Geobus booking"
	}
	return &TicketRenderer{brand: brand}
}

func (r *TicketRenderer) RenderTicket(ticket model.TicketBundle) ([]byte, error) {
	b := ticket.Booking
	if b == nil {
		return nil, fmt.Errorf("render ticket: booking is required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Ticket "+b.TicketID, false)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentWidth := pageWidth - left - right

	pdf.SetFillColor(40, 167, 69)
	pdf.Rect(left, 15, contentWidth, 22, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(left+4, 18)
	pdf.Cell(0, 8, r.brand)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(left+4, 28)
	pdf.Cell(0, 6, "Booking ID: "+b.TicketID)

	colWidth := (contentWidth - 8) / 2
	top := 45.0

	busLines := []string{
		"Bus Name: " + orDash(busField(ticket.Bus, func(bus *model.Bus) string { return bus.BusName })),
		"Bus Number: " + orDash(busField(ticket.Bus, func(bus *model.Bus) string { return bus.BusNumber })),
		"Route: " + orDash(route(ticket.Bus)),
		"Journey Date: " + orDash(journeyDay(ticket)),
		"Departure: " + orDash(b.DepartureTimeSnapshot),
		"Arrival: " + orDash(b.ArrivalTimeSnapshot),
		"Booking Date: " + journeytime.FormatDay(b.BookingDate),
		"Payment Status: " + strings.ToUpper(orDefault(b.PaymentStatus, model.PaymentStatusCompleted)),
	}
	leftBottom := column(pdf, left, top, colWidth, "Bus Information", busLines)

	passengerLines := []string{
		"Name: " + orDash(passengerName(ticket)),
		"Seat Number: " + orDash(strings.Join(b.SeatNumbers(), ", ")),
		"Mobile: " + orDash(b.PassengerDetails.Mobile),
		"Email: " + orDash(b.ContactEmail(ticket.User)),
	}
	for _, s := range b.Seats {
		passengerLines = append(passengerLines, fmt.Sprintf("%s: %s, %d, %s", s.SeatNumber, s.PassengerName, s.PassengerAge, s.PassengerGender))
	}
	rightBottom := column(pdf, left+colWidth+8, top, colWidth, "Passenger Information", passengerLines)

	y := max(leftBottom, rightBottom) + 4
	divider(pdf, left, y, contentWidth)
	y += 4

	pdf.SetDrawColor(40, 167, 69)
	pdf.Rect(left, y, 80, 24, "D")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(left+3, y+2)
	pdf.Cell(0, 6, "Payment Details")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(68, 68, 68)
	pdf.SetXY(left+3, y+9)
	pdf.Cell(0, 6, fmt.Sprintf("Total: Rs. %.2f", b.TotalAmount))
	pdf.SetXY(left+3, y+16)
	pdf.Cell(38, 6, "Method: "+strings.ToUpper(b.PaymentMethod))
	pdf.Cell(0, 6, "Status: "+strings.ToUpper(b.Status))

	if b.IsCancelled {
		pdf.SetTextColor(220, 38, 38)
		pdf.SetXY(left+88, y+9)
		pdf.Cell(0, 6, fmt.Sprintf("Refund: Rs. %.2f", b.RefundAmount))
		if b.CancellationDate != nil {
			pdf.SetTextColor(68, 68, 68)
			pdf.SetXY(left+88, y+16)
			pdf.Cell(0, 6, "Cancelled on: "+journeytime.FormatDay(*b.CancellationDate))
		}
	}

	y += 30
	divider(pdf, left, y, contentWidth)
	pdf.SetXY(left, y+4)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Important Instructions")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(68, 68, 68)
	for _, line := range ticketInstructions {
		pdf.MultiCell(contentWidth, 5, "- "+line, "", "L", false)
		pdf.Ln(1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket %s: %w", b.TicketID, err)
	}
	return buf.Bytes(), nil
}

func column(pdf *gofpdf.Fpdf, x, y, width float64, title string, lines []string) float64 {
	pdf.SetXY(x, y)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(width, 7, title, "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(68, 68, 68)
	for _, line := range lines {
		pdf.SetX(x)
		pdf.MultiCell(width, 5.5, line, "", "L", false)
	}
	return pdf.GetY()
}

func divider(pdf *gofpdf.Fpdf, x, y, width float64) {
	pdf.SetDrawColor(224, 224, 224)
	pdf.Line(x, y, x+width, y)
}

func busField(bus *model.Bus, get func(*model.Bus) string) string {
	if bus == nil {
		return ""
	}
	return get(bus)
}

func route(bus *model.Bus) string {
	if bus == nil {
		return ""
	}
	return bus.From + " to " + bus.To
}

func journeyDay(ticket model.TicketBundle) string {
	if ticket.Booking.JourneyDateISO != "" {
		return ticket.Booking.JourneyDateISO
	}
	if ticket.Bus != nil && ticket.Bus.DepartureDate != nil {
		return journeytime.FormatDay(*ticket.Bus.DepartureDate)
	}
	return ""
}

func passengerName(ticket model.TicketBundle) string {
	if ticket.User != nil && ticket.User.Name != "" {
		return ticket.User.Name
	}
	if len(ticket.Booking.Seats) > 0 {
		return ticket.Booking.Seats[0].PassengerName
	}
	return ""
}

func orDash(s string) string {
	return orDefault(s, "-")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
