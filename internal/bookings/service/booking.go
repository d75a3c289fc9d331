package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingserrors "geobus/internal/bookings/errors"
	"geobus/internal/bookings/repository"
	"geobus/internal/bookings/validator"
	buserrors "geobus/internal/buses/errors"
	busrepository "geobus/internal/buses/repository"
	"geobus/pkg/config"
	apperrors "geobus/pkg/errors"
	"geobus/pkg/journeytime"
	"geobus/pkg/model"
	"geobus/pkg/sanitizer"
	"geobus/pkg/validation"

	"github.com/google/uuid"
)

// Notifier receives confirmed tickets. Implementations must not block.
type Notifier interface {
	Notify(ticket model.TicketBundle)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type BookingService interface {
	Reserve(ctx context.Context, userID string, req *model.BookSeatsRequest) (*model.Booking, error)
	Cancel(ctx context.Context, userID, ticketID string) (*model.CancelResult, error)
	ListForUser(ctx context.Context, userID string) ([]*model.Booking, error)
	Ticket(ctx context.Context, userID, ticketID string) (*model.TicketBundle, error)
}

type bookingService struct {
	bookings    repository.BookingRepository
	buses       busrepository.BusRepository
	users       UserFinder
	notifier    Notifier
	validator   *validator.BookingValidator
	cfg         *config.Config
	now         func() time.Time
	newTicketID func(time.Time) string
}

func NewBookingService(
	bookings repository.BookingRepository,
	buses busrepository.BusRepository,
	users UserFinder,
	notifier Notifier,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		bookings:    bookings,
		buses:       buses,
		users:       users,
		notifier:    notifier,
		validator:   validator,
		cfg:         cfg,
		now:         time.Now,
		newTicketID: GenerateTicketID,
	}
}

// GenerateTicketID returns "TICKET" + unix millis + a short random suffix.
func GenerateTicketID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("TICKET%d%s", now.UnixMilli(), suffix)
}

// Reserve holds the requested seats on the bus and then records the booking.
// The hold is a single conditional update, so of two concurrent requests for
// the same seat exactly one succeeds. If the booking cannot be recorded the
// hold is released again.
func (s *bookingService) Reserve(ctx context.Context, userID string, req *model.BookSeatsRequest) (*model.Booking, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("request body is required")
	}

	s.validator.Normalize(req)
	journeyDay, err := s.validator.ValidateReserve(req)
	if err != nil {
		s.cfg.Log.Warn("Booking validation failed",
			"user_id", userID,
			"bus_id", req.BusID,
			"error", err,
		)
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, verrs.ToAppError()
		}
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	bus, err := s.findBus(ctx, req.BusID)
	if err != nil {
		return nil, err
	}

	seatNumbers := make([]string, len(req.Seats))
	for i, seat := range req.Seats {
		if busSeat := bus.SeatByNumber(seat.SeatNumber); busSeat == nil || busSeat.IsBooked {
			return nil, apperrors.SeatUnavailable(seat.SeatNumber)
		}
		seatNumbers[i] = seat.SeatNumber
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	booking := &model.Booking{
		TicketID:              s.newTicketID(now),
		UserID:                userID,
		BusID:                 bus.ID,
		Seats:                 req.Seats,
		TotalAmount:           sanitizer.RoundToPaise(float64(len(req.Seats)) * bus.Price),
		BookingDate:           now,
		Status:                model.BookingStatusConfirmed,
		PassengerDetails:      req.PassengerDetails,
		PaymentMethod:         req.PaymentMethod,
		UPIID:                 req.UPIID,
		PaymentStatus:         model.PaymentStatusCompleted,
		DepartureTimeSnapshot: bus.DepartureTime,
		ArrivalTimeSnapshot:   bus.ArrivalTime,
	}
	switch {
	case journeyDay != nil:
		booking.JourneyDate = journeyDay
	case bus.DepartureDate != nil:
		day := journeytime.StartOfDay(*bus.DepartureDate)
		booking.JourneyDate = &day
	}
	if booking.JourneyDate != nil {
		booking.JourneyDateISO = journeytime.FormatDay(*booking.JourneyDate)
	}

	hold := model.SeatHold{
		BusID:    bus.ID,
		TicketID: booking.TicketID,
		Seats:    seatNumbers,
		HeldAt:   now,
	}
	if err := s.buses.HoldSeats(ctx, hold, userID); err != nil {
		if errors.Is(err, buserrors.ErrSeatsUnavailable) {
			seat := s.conflictingSeat(ctx, bus.ID, seatNumbers)
			s.cfg.Log.Warn("Seat hold lost to a concurrent booking",
				"bus_id", bus.ID,
				"seat_number", seat,
				"user_id", userID,
			)
			return nil, apperrors.SeatUnavailable(seat)
		}
		s.cfg.Log.Error("Failed to hold seats",
			"bus_id", bus.ID,
			"ticket_id", booking.TicketID,
			"seats", seatNumbers,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to book seats", err)
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		recorded, lookupErr := s.recordedDespite(ctx, booking, err)
		switch {
		case recorded:
			s.cfg.Log.Warn("Booking insert reported an error but the booking was written, keeping seat hold",
				"bus_id", bus.ID,
				"ticket_id", booking.TicketID,
				"error", err,
			)
		case lookupErr != nil:
			s.cfg.Log.Error("Booking insert outcome unknown, seat hold left for reconciler",
				"bus_id", bus.ID,
				"ticket_id", booking.TicketID,
				"seats", seatNumbers,
				"error", err,
				"lookup_error", lookupErr,
			)
			return nil, apperrors.Internal("Failed to book seats", err)
		default:
			s.cfg.Log.Error("Failed to record booking, releasing seat hold",
				"bus_id", bus.ID,
				"ticket_id", booking.TicketID,
				"seats", seatNumbers,
				"duplicate_ticket", errors.Is(err, bookingserrors.ErrDuplicateTicket),
				"error", err,
			)
			s.releaseHold(ctx, hold, "", "booking insert failed")
			return nil, apperrors.Internal("Failed to book seats", err)
		}
	}

	s.cfg.Log.Info("Booking confirmed",
		"ticket_id", booking.TicketID,
		"user_id", userID,
		"bus_id", bus.ID,
		"seats", seatNumbers,
		"total_amount", booking.TotalAmount,
	)

	booking.Bus = bus.Summary()
	s.notify(ctx, booking, bus, userID)
	return booking, nil
}

// conflictingSeat re-reads the bus and names the first requested seat that is
// no longer free.
func (s *bookingService) conflictingSeat(ctx context.Context, busID string, seats []string) string {
	bus, err := s.buses.FindByID(ctx, busID)
	if err != nil {
		return seats[0]
	}
	for _, n := range seats {
		if seat := bus.SeatByNumber(n); seat == nil || seat.IsBooked {
			return n
		}
	}
	return seats[0]
}

// recordedDespite reports whether a booking whose insert failed was written
// anyway, as happens when a timeout fires after the server committed. It reads
// on a context that outlives the request. A duplicate ticket id never is ours.
func (s *bookingService) recordedDespite(ctx context.Context, booking *model.Booking, insertErr error) (bool, error) {
	if errors.Is(insertErr, bookingserrors.ErrDuplicateTicket) {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()

	stored, err := s.bookings.FindByTicketID(ctx, booking.TicketID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if stored.UserID != booking.UserID || stored.BusID != booking.BusID {
		return false, nil
	}
	booking.ID = stored.ID
	return true, nil
}

// releaseHold frees a hold on a context that outlives the request. When owner
// is set, seats booked by owner without a ticket tag are released instead if
// the tagged release matches nothing. A failure leaves the hold for the
// reconciler.
func (s *bookingService) releaseHold(ctx context.Context, hold model.SeatHold, owner, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()

	err := s.buses.ReleaseSeats(ctx, hold)
	if errors.Is(err, buserrors.ErrHoldNotFound) && owner != "" {
		if untaggedErr := s.buses.ReleaseUntaggedSeats(ctx, hold.BusID, owner, hold.Seats); untaggedErr == nil {
			s.cfg.Log.Info("Untagged seats released",
				"reason", reason,
				"bus_id", hold.BusID,
				"ticket_id", hold.TicketID,
				"booked_by", owner,
				"seats", hold.Seats,
			)
			return
		}
	}
	if err != nil {
		s.cfg.Log.Error("Seat hold inconsistency, left for reconciler",
			"reason", reason,
			"bus_id", hold.BusID,
			"ticket_id", hold.TicketID,
			"seats", hold.Seats,
			"error", err,
		)
		return
	}
	s.cfg.Log.Info("Seat hold released",
		"reason", reason,
		"bus_id", hold.BusID,
		"ticket_id", hold.TicketID,
		"seats", hold.Seats,
	)
}

func (s *bookingService) notify(ctx context.Context, booking *model.Booking, bus *model.Bus, userID string) {
	if s.notifier == nil {
		return
	}

	var user *model.User
	if s.users != nil {
		u, err := s.users.FindByID(ctx, userID)
		if err != nil {
			s.cfg.Log.Warn("Could not load user for ticket notification", "user_id", userID, "error", err)
		} else {
			user = u
		}
	}

	s.notifier.Notify(model.TicketBundle{Booking: booking, Bus: bus, User: user})
}

// Cancel marks the booking cancelled with a partial refund and frees its seats.
// The booking update is conditional on it still being live, so a second
// cancel reports ALREADY_CANCELLED and never releases seats twice.
func (s *bookingService) Cancel(ctx context.Context, userID, ticketID string) (*model.CancelResult, error) {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return nil, apperrors.InvalidInput("ticket_id is required")
	}

	booking, err := s.findOwnBooking(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}
	if booking.IsCancelled {
		return nil, apperrors.AlreadyCancelled(ticketID)
	}

	refund := sanitizer.RoundToPaise(booking.TotalAmount * s.cfg.RefundRate)
	now := s.now().UTC().Truncate(time.Millisecond)

	cancelled, err := s.bookings.MarkCancelled(ctx, ticketID, userID, refund, now)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrAlreadyCancelled) {
			return nil, apperrors.AlreadyCancelled(ticketID)
		}
		s.cfg.Log.Error("Failed to cancel booking",
			"ticket_id", ticketID,
			"user_id", userID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to cancel ticket", err)
	}

	s.releaseHold(ctx, model.SeatHold{
		BusID:    cancelled.BusID,
		TicketID: cancelled.TicketID,
		Seats:    cancelled.SeatNumbers(),
	}, cancelled.UserID, "ticket cancelled")

	s.cfg.Log.Info("Booking cancelled",
		"ticket_id", ticketID,
		"user_id", userID,
		"refund_amount", refund,
	)

	return &model.CancelResult{
		TicketID:         ticketID,
		RefundAmount:     refund,
		CancellationDate: now,
	}, nil
}

// ListForUser returns the user's bookings, newest first, with bus summaries.
func (s *bookingService) ListForUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	bookings, err := s.bookings.FindByUser(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	if len(bookings) == 0 {
		return []*model.Booking{}, nil
	}

	seen := make(map[string]bool)
	var busIDs []string
	for _, b := range bookings {
		if !seen[b.BusID] {
			seen[b.BusID] = true
			busIDs = append(busIDs, b.BusID)
		}
	}

	buses, err := s.buses.FindByIDs(ctx, busIDs)
	if err != nil {
		s.cfg.Log.Error("Failed to load buses for bookings", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	for _, b := range bookings {
		if bus, ok := buses[b.BusID]; ok {
			b.Bus = bus.Summary()
		}
	}
	return bookings, nil
}

// Ticket gathers what the PDF renderer needs. A bus or user that has since
// disappeared is left nil rather than failing the download.
func (s *bookingService) Ticket(ctx context.Context, userID, ticketID string) (*model.TicketBundle, error) {
	booking, err := s.findOwnBooking(ctx, userID, strings.TrimSpace(ticketID))
	if err != nil {
		return nil, err
	}

	bundle := &model.TicketBundle{Booking: booking}

	bus, err := s.buses.FindByID(ctx, booking.BusID)
	switch {
	case err == nil:
		bundle.Bus = bus
		booking.Bus = bus.Summary()
	case errors.Is(err, buserrors.ErrNotFound), errors.Is(err, buserrors.ErrInvalidID):
		s.cfg.Log.Warn("Bus for ticket no longer exists", "ticket_id", booking.TicketID, "bus_id", booking.BusID)
	default:
		s.cfg.Log.Error("Failed to load bus for ticket", "ticket_id", booking.TicketID, "error", err)
		return nil, apperrors.Internal("Failed to load ticket", err)
	}

	if s.users != nil {
		if user, err := s.users.FindByID(ctx, userID); err == nil {
			bundle.User = user
		} else {
			s.cfg.Log.Warn("Could not load user for ticket", "user_id", userID, "error", err)
		}
	}

	return bundle, nil
}

func (s *bookingService) findBus(ctx context.Context, id string) (*model.Bus, error) {
	bus, err := s.buses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, buserrors.ErrNotFound) || errors.Is(err, buserrors.ErrInvalidID) {
			return nil, apperrors.NotFound("Bus")
		}
		s.cfg.Log.Error("Failed to load bus", "bus_id", id, "error", err)
		return nil, apperrors.Internal("Failed to load bus", err)
	}
	return bus, nil
}

// findOwnBooking hides other users' tickets behind NOT_FOUND.
func (s *bookingService) findOwnBooking(ctx context.Context, userID, ticketID string) (*model.Booking, error) {
	booking, err := s.bookings.FindByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Booking")
		}
		s.cfg.Log.Error("Failed to load booking", "ticket_id", ticketID, "error", err)
		return nil, apperrors.Internal("Failed to load booking", err)
	}
	if booking.UserID != userID {
		s.cfg.Log.Warn("Ticket requested by another user", "ticket_id", ticketID, "user_id", userID)
		return nil, apperrors.NotFound("Booking")
	}
	return booking, nil
}
