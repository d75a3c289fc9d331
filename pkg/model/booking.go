package model

import "time"

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	// BookingStatusRefunded only appears on legacy documents. It is never written.
	BookingStatusRefunded = "refunded"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusRefunded  = "refunded"

	PaymentMethodUPI = "upi"
	PaymentMethodQR  = "qr"
)

type BookedSeat struct {
	SeatNumber      string `json:"seat_number" bson:"seat_number" validate:"required"`
	PassengerName   string `json:"passenger_name" bson:"passenger_name" validate:"required"`
	PassengerAge    int    `json:"passenger_age" bson:"passenger_age" validate:"required,min=1,max=120"`
	PassengerGender string `json:"passenger_gender" bson:"passenger_gender" validate:"required"`
}

type PassengerDetails struct {
	Mobile string `json:"mobile" bson:"mobile" validate:"required,mobile_in"`
	Email  string `json:"email" bson:"email" validate:"required,email_strict"`
}

type Booking struct {
	ID                    string           `json:"id,omitempty" bson:"_id,omitempty"`
	TicketID              string           `json:"ticket_id" bson:"ticket_id"`
	UserID                string           `json:"user" bson:"user"`
	BusID                 string           `json:"bus" bson:"bus"`
	Bus                   *BusSummary      `json:"bus_details,omitempty" bson:"-"`
	Seats                 []BookedSeat     `json:"seats" bson:"seats"`
	TotalAmount           float64          `json:"total_amount" bson:"total_amount"`
	RefundAmount          float64          `json:"refund_amount" bson:"refund_amount"`
	BookingDate           time.Time        `json:"booking_date" bson:"booking_date"`
	Status                string           `json:"status" bson:"status"`
	IsCancelled           bool             `json:"is_cancelled" bson:"is_cancelled"`
	CancellationDate      *time.Time       `json:"cancellation_date,omitempty" bson:"cancellation_date,omitempty"`
	PassengerDetails      PassengerDetails `json:"passenger_details" bson:"passenger_details"`
	PaymentMethod         string           `json:"payment_method" bson:"payment_method"`
	UPIID                 string           `json:"upi_id,omitempty" bson:"upi_id,omitempty"`
	PaymentStatus         string           `json:"payment_status" bson:"payment_status"`
	JourneyDate           *time.Time       `json:"journey_date,omitempty" bson:"journey_date,omitempty"`
	JourneyDateISO        string           `json:"journey_date_iso,omitempty" bson:"journey_date_iso,omitempty"`
	DepartureTimeSnapshot string           `json:"departure_time_snapshot" bson:"departure_time_snapshot"`
	ArrivalTimeSnapshot   string           `json:"arrival_time_snapshot" bson:"arrival_time_snapshot"`
}

func (b *Booking) SeatNumbers() []string {
	numbers := make([]string, len(b.Seats))
	for i, s := range b.Seats {
		numbers[i] = s.SeatNumber
	}
	return numbers
}

// ContactEmail prefers the passenger contact address over the account address.
func (b *Booking) ContactEmail(user *User) string {
	if b.PassengerDetails.Email != "" {
		return b.PassengerDetails.Email
	}
	if user != nil {
		return user.Email
	}
	return ""
}

type BookSeatsRequest struct {
	BusID            string           `json:"bus_id" validate:"required,mongodb"`
	Seats            []BookedSeat     `json:"seats" validate:"required,min=1"`
	PassengerDetails PassengerDetails `json:"passenger_details"`
	PaymentMethod    string           `json:"payment_method" validate:"required,oneof=upi qr"`
	JourneyDate      string           `json:"journey_date,omitempty"`
	UPIID            string           `json:"upi_id,omitempty"`
}

type BookSeatsResponse struct {
	TicketID string   `json:"ticket_id"`
	Booking  *Booking `json:"booking"`
}

type CancelTicketRequest struct {
	TicketID string `json:"ticket_id" validate:"required"`
}

type CancelResult struct {
	TicketID         string    `json:"ticket_id"`
	RefundAmount     float64   `json:"refund_amount"`
	CancellationDate time.Time `json:"cancellation_date"`
}

// TicketBundle carries everything needed to render or mail a ticket.
type TicketBundle struct {
	Booking *Booking
	Bus     *Bus
	User    *User
}
