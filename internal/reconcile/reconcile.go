package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	buserrors "geobus/internal/buses/errors"
	"geobus/pkg/logger"
	"geobus/pkg/model"
)

type HoldStore interface {
	FindByID(ctx context.Context, id string) (*model.Bus, error)
	HoldSeats(ctx context.Context, hold model.SeatHold, userID string) error
	FindStaleHolds(ctx context.Context, heldBefore time.Time) ([]model.SeatHold, error)
	ReleaseSeats(ctx context.Context, hold model.SeatHold) error
	RecountAvailable(ctx context.Context) (int64, error)
}

type BookingLookup interface {
	FindByTicketIDs(ctx context.Context, ticketIDs []string) (map[string]*model.Booking, error)
	FindLiveSince(ctx context.Context, since time.Time) ([]*model.Booking, error)
}

type Report struct {
	StaleHolds     int           `json:"stale_holds"`
	Released       int           `json:"released"`
	ReleaseFailed  int           `json:"release_failed"`
	UnheldBookings int           `json:"unheld_bookings"`
	Reheld         int           `json:"reheld"`
	DoubleSold     int           `json:"double_sold"`
	BusesRecounted int64         `json:"buses_recounted"`
	Duration       time.Duration `json:"duration"`
}

// Reconciler repairs the seat map and the booking ledger after a partial
// write. It releases seats held for a ticket that was never recorded or has
// been cancelled, re-holds free seats of confirmed bookings, reports seats
// sold to two tickets, and fixes available_seats counters that drifted.
type Reconciler struct {
	holds    HoldStore
	bookings BookingLookup
	grace    time.Duration
	lookback time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// NewReconciler builds a reconciler. Holds younger than grace are left alone;
// confirmed bookings older than lookback are not re-checked.
func NewReconciler(holds HoldStore, bookings BookingLookup, grace, lookback time.Duration, log *logger.Logger) *Reconciler {
	return &Reconciler{
		holds:    holds,
		bookings: bookings,
		grace:    grace,
		lookback: lookback,
		log:      log.With("component", "reconcile"),
		now:      time.Now,
	}
}

// Run makes one pass. Holds younger than the grace period are skipped so an
// in-flight reservation is never released under it.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	start := r.now()
	report := &Report{}

	holds, err := r.holds.FindStaleHolds(ctx, start.Add(-r.grace))
	if err != nil {
		return nil, fmt.Errorf("find stale holds: %w", err)
	}

	if len(holds) > 0 {
		ticketIDs := make([]string, len(holds))
		for i, h := range holds {
			ticketIDs[i] = h.TicketID
		}
		bookings, err := r.bookings.FindByTicketIDs(ctx, ticketIDs)
		if err != nil {
			return nil, fmt.Errorf("load bookings for holds: %w", err)
		}

		for _, hold := range holds {
			booking, ok := bookings[hold.TicketID]
			if ok && !booking.IsCancelled && booking.BusID == hold.BusID {
				continue
			}
			report.StaleHolds++

			if err := r.holds.ReleaseSeats(ctx, hold); err != nil {
				if errors.Is(err, buserrors.ErrHoldNotFound) {
					continue
				}
				report.ReleaseFailed++
				r.log.Error("Failed to release orphaned seat hold",
					"bus_id", hold.BusID,
					"ticket_id", hold.TicketID,
					"seats", hold.Seats,
					"error", err,
				)
				continue
			}
			report.Released++
			r.log.Info("Released orphaned seat hold",
				"bus_id", hold.BusID,
				"ticket_id", hold.TicketID,
				"seats", hold.Seats,
				"booking_found", ok,
			)
		}
	}

	if err := r.verifyBookings(ctx, start, report); err != nil {
		return report, err
	}

	recounted, err := r.holds.RecountAvailable(ctx)
	if err != nil {
		return report, fmt.Errorf("recount available seats: %w", err)
	}
	report.BusesRecounted = recounted
	report.Duration = r.now().Sub(start)

	r.log.Info("Reconciliation pass finished",
		"stale_holds", report.StaleHolds,
		"released", report.Released,
		"release_failed", report.ReleaseFailed,
		"unheld_bookings", report.UnheldBookings,
		"reheld", report.Reheld,
		"double_sold", report.DoubleSold,
		"buses_recounted", report.BusesRecounted,
		"duration", report.Duration,
	)
	return report, nil
}

// verifyBookings checks every confirmed booking made within the lookback
// window against its bus. Seats that are free again are held for the booking;
// seats held by another ticket are reported and left as they are.
func (r *Reconciler) verifyBookings(ctx context.Context, start time.Time, report *Report) error {
	if r.lookback <= 0 {
		return nil
	}

	live, err := r.bookings.FindLiveSince(ctx, start.Add(-r.lookback))
	if err != nil {
		return fmt.Errorf("load live bookings: %w", err)
	}

	byBus := make(map[string][]*model.Booking)
	var busIDs []string
	for _, b := range live {
		if _, ok := byBus[b.BusID]; !ok {
			busIDs = append(busIDs, b.BusID)
		}
		byBus[b.BusID] = append(byBus[b.BusID], b)
	}

	for _, busID := range busIDs {
		bus, err := r.holds.FindByID(ctx, busID)
		if err != nil {
			r.log.Warn("Could not load bus to verify bookings", "bus_id", busID, "error", err)
			continue
		}
		for _, booking := range byBus[busID] {
			r.verifyBooking(ctx, bus, booking, start, report)
		}
	}
	return nil
}

func (r *Reconciler) verifyBooking(ctx context.Context, bus *model.Bus, booking *model.Booking, at time.Time, report *Report) {
	var free []string
	for _, n := range booking.SeatNumbers() {
		seat := bus.SeatByNumber(n)
		switch {
		case seat == nil:
			r.log.Error("Booked seat missing from seat map",
				"bus_id", bus.ID,
				"ticket_id", booking.TicketID,
				"seat_number", n,
			)
		case !seat.IsBooked:
			free = append(free, n)
		case seat.TicketID == booking.TicketID:
		case seat.TicketID == "" && seat.BookedBy == booking.UserID:
		default:
			report.DoubleSold++
			r.log.Error("Seat sold to two tickets",
				"bus_id", bus.ID,
				"seat_number", n,
				"ticket_id", booking.TicketID,
				"held_by_ticket", seat.TicketID,
			)
		}
	}
	if len(free) == 0 {
		return
	}
	report.UnheldBookings++

	hold := model.SeatHold{BusID: bus.ID, TicketID: booking.TicketID, Seats: free, HeldAt: at}
	if err := r.holds.HoldSeats(ctx, hold, booking.UserID); err != nil {
		if errors.Is(err, buserrors.ErrSeatsUnavailable) {
			report.DoubleSold++
		}
		r.log.Error("Failed to re-hold seats of confirmed booking",
			"bus_id", bus.ID,
			"ticket_id", booking.TicketID,
			"seats", free,
			"error", err,
		)
		return
	}
	report.Reheld++
	r.log.Warn("Re-held seats of confirmed booking",
		"bus_id", bus.ID,
		"ticket_id", booking.TicketID,
		"seats", free,
	)
}

// RunEvery runs a pass every interval until ctx is done. Failed passes are
// logged and retried on the next tick.
func (r *Reconciler) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		r.log.Info("Periodic reconciliation disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("Reconciliation pass failed", "error", err)
			}
		}
	}
}
