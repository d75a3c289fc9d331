package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	buserrors "geobus/internal/buses/errors"
	"geobus/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryBusRepository keeps buses in process with the same conditional-update
// semantics as the Mongo repository. Used by tests across packages.
type MemoryBusRepository struct {
	mu    sync.Mutex
	buses map[string]*model.Bus
	order []string
}

var _ BusRepository = (*MemoryBusRepository)(nil)

func NewMemoryBusRepository() *MemoryBusRepository {
	return &MemoryBusRepository{buses: make(map[string]*model.Bus)}
}

func cloneBus(b *model.Bus) *model.Bus {
	c := *b
	c.Seats = make([]model.Seat, len(b.Seats))
	for i, s := range b.Seats {
		c.Seats[i] = s
		if s.HeldAt != nil {
			t := *s.HeldAt
			c.Seats[i].HeldAt = &t
		}
	}
	if b.DepartureDate != nil {
		d := *b.DepartureDate
		c.DepartureDate = &d
	}
	return &c
}

// Put stores bus as-is, assigning an id when it has none.
func (m *MemoryBusRepository) Put(bus *model.Bus) *model.Bus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bus.ID == "" {
		bus.ID = primitive.NewObjectID().Hex()
	}
	if _, ok := m.buses[bus.ID]; !ok {
		m.order = append(m.order, bus.ID)
	}
	m.buses[bus.ID] = cloneBus(bus)
	return bus
}

// Snapshot returns a copy of the stored bus, or nil.
func (m *MemoryBusRepository) Snapshot(id string) *model.Bus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.buses[id]; ok {
		return cloneBus(b)
	}
	return nil
}

// Mutate edits the stored bus in place, bypassing every precondition.
func (m *MemoryBusRepository) Mutate(id string, fn func(*model.Bus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.buses[id]; ok {
		fn(b)
	}
}

func (m *MemoryBusRepository) Create(_ context.Context, bus *model.Bus) error {
	bus.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	m.Put(bus)
	return nil
}

func (m *MemoryBusRepository) FindByID(_ context.Context, id string) (*model.Bus, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", buserrors.ErrInvalidID, id)
	}
	if b := m.Snapshot(id); b != nil {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", buserrors.ErrNotFound, id)
}

func (m *MemoryBusRepository) FindByIDs(_ context.Context, ids []string) (map[string]*model.Bus, error) {
	out := make(map[string]*model.Bus)
	for _, id := range ids {
		if b := m.Snapshot(id); b != nil {
			b.Seats = nil
			out[id] = b
		}
	}
	return out, nil
}

func sameDay(d *time.Time, day time.Time) bool {
	return d != nil && !d.Before(day) && d.Before(day.AddDate(0, 0, 1))
}

func (m *MemoryBusRepository) Search(_ context.Context, from, to string, day time.Time) ([]*model.Bus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*model.Bus{}
	for _, id := range m.order {
		b := m.buses[id]
		if !b.IsActive {
			continue
		}
		if !strings.Contains(strings.ToLower(b.From), strings.ToLower(from)) ||
			!strings.Contains(strings.ToLower(b.To), strings.ToLower(to)) {
			continue
		}
		if b.DepartureDate != nil && !sameDay(b.DepartureDate, day) {
			continue
		}
		c := cloneBus(b)
		c.Seats = nil
		out = append(out, c)
	}
	return out, nil
}

func (m *MemoryBusRepository) DistinctRoutes(_ context.Context) (*model.RouteSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, to := map[string]bool{}, map[string]bool{}
	for _, b := range m.buses {
		if b.IsActive {
			from[b.From] = true
			to[b.To] = true
		}
	}
	keys := func(set map[string]bool) []string {
		out := make([]string, 0, len(set))
		for k := range set {
			out = append(out, k)
		}
		sort.Strings(out)
		return out
	}
	return &model.RouteSet{From: keys(from), To: keys(to)}, nil
}

func (m *MemoryBusRepository) ExistsForRouteAndDate(_ context.Context, from, to string, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.buses {
		if b.From == from && b.To == to && sameDay(b.DepartureDate, day) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryBusRepository) InitializeSeats(_ context.Context, id string, seats []model.Seat) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buses[id]
	if !ok || len(b.Seats) > 0 {
		return false, nil
	}
	b.Seats = append([]model.Seat(nil), seats...)
	b.TotalSeats = len(seats)
	b.AvailableSeats = len(seats)
	return true, nil
}

func (m *MemoryBusRepository) HoldSeats(_ context.Context, hold model.SeatHold, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buses[hold.BusID]
	if !ok || b.AvailableSeats < len(hold.Seats) {
		return buserrors.ErrSeatsUnavailable
	}
	for _, n := range hold.Seats {
		s := b.SeatByNumber(n)
		if s == nil || s.IsBooked {
			return buserrors.ErrSeatsUnavailable
		}
	}

	heldAt := hold.HeldAt
	for _, n := range hold.Seats {
		s := b.SeatByNumber(n)
		s.IsBooked = true
		s.BookedBy = userID
		s.TicketID = hold.TicketID
		s.HeldAt = &heldAt
	}
	b.AvailableSeats -= len(hold.Seats)
	return nil
}

func (m *MemoryBusRepository) ReleaseSeats(_ context.Context, hold model.SeatHold) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buses[hold.BusID]
	if !ok {
		return fmt.Errorf("%w: bus %s ticket %s", buserrors.ErrHoldNotFound, hold.BusID, hold.TicketID)
	}
	for _, n := range hold.Seats {
		s := b.SeatByNumber(n)
		if s == nil || !s.IsBooked || s.TicketID != hold.TicketID {
			return fmt.Errorf("%w: bus %s ticket %s", buserrors.ErrHoldNotFound, hold.BusID, hold.TicketID)
		}
	}

	for _, n := range hold.Seats {
		s := b.SeatByNumber(n)
		s.IsBooked = false
		s.BookedBy = ""
		s.TicketID = ""
		s.HeldAt = nil
	}
	b.AvailableSeats += len(hold.Seats)
	return nil
}

func (m *MemoryBusRepository) ReleaseUntaggedSeats(_ context.Context, busID, userID string, seats []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buses[busID]
	if !ok {
		return fmt.Errorf("%w: bus %s user %s", buserrors.ErrHoldNotFound, busID, userID)
	}
	for _, n := range seats {
		s := b.SeatByNumber(n)
		if s == nil || !s.IsBooked || s.TicketID != "" || s.BookedBy != userID {
			return fmt.Errorf("%w: bus %s user %s", buserrors.ErrHoldNotFound, busID, userID)
		}
	}

	for _, n := range seats {
		s := b.SeatByNumber(n)
		s.IsBooked = false
		s.BookedBy = ""
		s.HeldAt = nil
	}
	b.AvailableSeats += len(seats)
	return nil
}

func (m *MemoryBusRepository) FindStaleHolds(_ context.Context, heldBefore time.Time) ([]model.SeatHold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var holds []model.SeatHold
	for _, id := range m.order {
		b := m.buses[id]
		byTicket := map[string]int{}
		for _, s := range b.Seats {
			if !s.IsBooked || s.TicketID == "" || s.HeldAt == nil || !s.HeldAt.Before(heldBefore) {
				continue
			}
			idx, ok := byTicket[s.TicketID]
			if !ok {
				holds = append(holds, model.SeatHold{BusID: id, TicketID: s.TicketID, HeldAt: *s.HeldAt})
				idx = len(holds) - 1
				byTicket[s.TicketID] = idx
			}
			holds[idx].Seats = append(holds[idx].Seats, s.SeatNumber)
			if s.HeldAt.Before(holds[idx].HeldAt) {
				holds[idx].HeldAt = *s.HeldAt
			}
		}
	}
	return holds, nil
}

func (m *MemoryBusRepository) RecountAvailable(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fixed int64
	for _, b := range m.buses {
		if len(b.Seats) == 0 {
			continue
		}
		if free := b.CountFreeSeats(); free != b.AvailableSeats {
			b.AvailableSeats = free
			fixed++
		}
	}
	return fixed, nil
}
