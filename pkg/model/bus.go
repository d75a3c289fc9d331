package model

import (
	"fmt"
	"time"
)

// Seat is one entry of a bus seat map. TicketID and HeldAt tag an active hold
// so orphaned holds can be traced back to their booking.
type Seat struct {
	SeatNumber string     `json:"seat_number" bson:"seat_number"`
	IsBooked   bool       `json:"is_booked" bson:"is_booked"`
	BookedBy   string     `json:"booked_by,omitempty" bson:"booked_by,omitempty"`
	TicketID   string     `json:"-" bson:"ticket_id,omitempty"`
	HeldAt     *time.Time `json:"-" bson:"held_at,omitempty"`
}

type Bus struct {
	ID               string     `json:"id,omitempty" bson:"_id,omitempty"`
	BusNumber        string     `json:"bus_number" bson:"bus_number" validate:"required,max=32"`
	BusName          string     `json:"bus_name" bson:"bus_name" validate:"required,max=100"`
	Image            string     `json:"image,omitempty" bson:"image,omitempty"`
	From             string     `json:"from" bson:"from" validate:"required"`
	To               string     `json:"to" bson:"to" validate:"required,nefield=From"`
	DepartureTime    string     `json:"departure_time" bson:"departure_time" validate:"required"`
	ArrivalTime      string     `json:"arrival_time" bson:"arrival_time" validate:"required"`
	DepartureDate    *time.Time `json:"departure_date,omitempty" bson:"departure_date,omitempty"`
	DepartureDateISO string     `json:"departure_date_iso,omitempty" bson:"-"`
	Price            float64    `json:"price" bson:"price" validate:"gt=0"`
	TotalSeats       int        `json:"total_seats" bson:"total_seats" validate:"min=1,max=99"`
	AvailableSeats   int        `json:"available_seats" bson:"available_seats"`
	IsActive         bool       `json:"is_active" bson:"is_active"`
	Seats            []Seat     `json:"seats,omitempty" bson:"seats"`
	CreatedAt        time.Time  `json:"created_at" bson:"created_at"`
}

// BusSummary is the bus view attached to a user's booking list.
type BusSummary struct {
	ID            string     `json:"id"`
	BusName       string     `json:"bus_name"`
	BusNumber     string     `json:"bus_number"`
	From          string     `json:"from"`
	To            string     `json:"to"`
	DepartureTime string     `json:"departure_time"`
	ArrivalTime   string     `json:"arrival_time"`
	DepartureDate *time.Time `json:"departure_date,omitempty"`
	Image         string     `json:"image,omitempty"`
}

func (b *Bus) Summary() *BusSummary {
	return &BusSummary{
		ID:            b.ID,
		BusName:       b.BusName,
		BusNumber:     b.BusNumber,
		From:          b.From,
		To:            b.To,
		DepartureTime: b.DepartureTime,
		ArrivalTime:   b.ArrivalTime,
		DepartureDate: b.DepartureDate,
		Image:         b.Image,
	}
}

// SeatByNumber returns the seat entry with the given number, or nil.
func (b *Bus) SeatByNumber(number string) *Seat {
	for i := range b.Seats {
		if b.Seats[i].SeatNumber == number {
			return &b.Seats[i]
		}
	}
	return nil
}

// CountFreeSeats is the value available_seats must always equal.
func (b *Bus) CountFreeSeats() int {
	free := 0
	for _, s := range b.Seats {
		if !s.IsBooked {
			free++
		}
	}
	return free
}

// RouteSet is the autocomplete payload of distinct route endpoints.
type RouteSet struct {
	From []string `json:"from"`
	To   []string `json:"to"`
}

// SeatHold is a booked seat group sharing one ticket id on one bus.
type SeatHold struct {
	BusID    string
	TicketID string
	Seats    []string
	HeldAt   time.Time
}

// NewSeatMap lays out n free seats numbered S01, S02, ...
func NewSeatMap(n int) []Seat {
	seats := make([]Seat, n)
	for i := range seats {
		seats[i] = Seat{SeatNumber: fmt.Sprintf("S%02d", i+1)}
	}
	return seats
}
