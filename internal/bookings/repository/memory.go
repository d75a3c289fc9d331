package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	bookingserrors "geobus/internal/bookings/errors"
	"geobus/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryBookingRepository is an in-process ledger with the same uniqueness
// and conditional-cancel rules as the Mongo repository. Used by tests.
type MemoryBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking

	// CreateErr, when set, fails every Create.
	CreateErr error
}

var _ BookingRepository = (*MemoryBookingRepository)(nil)

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{bookings: make(map[string]*model.Booking)}
}

func cloneBooking(b *model.Booking) *model.Booking {
	c := *b
	c.Seats = append([]model.BookedSeat(nil), b.Seats...)
	c.Bus = nil
	return &c
}

func (m *MemoryBookingRepository) Create(_ context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, exists := m.bookings[booking.TicketID]; exists {
		return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateTicket, booking.TicketID)
	}
	if booking.ID == "" {
		booking.ID = primitive.NewObjectID().Hex()
	}
	m.bookings[booking.TicketID] = cloneBooking(booking)
	return nil
}

// Put stores booking directly, replacing any booking with the same ticket id.
func (m *MemoryBookingRepository) Put(booking *model.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[booking.TicketID] = cloneBooking(booking)
}

func (m *MemoryBookingRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *MemoryBookingRepository) FindByTicketID(_ context.Context, ticketID string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[ticketID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, ticketID)
	}
	return cloneBooking(b), nil
}

func (m *MemoryBookingRepository) FindByTicketIDs(_ context.Context, ticketIDs []string) (map[string]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*model.Booking)
	for _, id := range ticketIDs {
		if b, ok := m.bookings[id]; ok {
			out[id] = cloneBooking(b)
		}
	}
	return out, nil
}

func (m *MemoryBookingRepository) FindByUser(_ context.Context, userID string) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*model.Booking{}
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BookingDate.After(out[j].BookingDate)
	})
	return out, nil
}

func (m *MemoryBookingRepository) FindLiveSince(_ context.Context, since time.Time) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*model.Booking{}
	for _, b := range m.bookings {
		if !b.IsCancelled && !b.BookingDate.Before(since) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BookingDate.Before(out[j].BookingDate)
	})
	return out, nil
}

func (m *MemoryBookingRepository) MarkCancelled(_ context.Context, ticketID, userID string, refund float64, at time.Time) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[ticketID]
	if !ok || b.UserID != userID || b.IsCancelled {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrAlreadyCancelled, ticketID)
	}

	b.Status = model.BookingStatusCancelled
	b.IsCancelled = true
	b.PaymentStatus = model.PaymentStatusRefunded
	b.RefundAmount = refund
	b.CancellationDate = &at
	return cloneBooking(b), nil
}
