package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	buserrors "geobus/internal/buses/errors"
	"geobus/internal/buses/repository"
	"geobus/internal/buses/validator"
	"geobus/pkg/config"
	apperrors "geobus/pkg/errors"
	"geobus/pkg/journeytime"
	"geobus/pkg/model"
	"geobus/pkg/sanitizer"
	"geobus/pkg/validation"
)

type BusService interface {
	Search(ctx context.Context, from, to, date string) ([]*model.Bus, error)
	AvailableRoutes(ctx context.Context) (*model.RouteSet, error)
	GetByID(ctx context.Context, id, date string) (*model.Bus, error)
	InitializeSeats(ctx context.Context, id string) (*model.Bus, error)
	Create(ctx context.Context, bus *model.Bus) error
}

type busService struct {
	repo      repository.BusRepository
	validator *validator.BusValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewBusService(repo repository.BusRepository, validator *validator.BusValidator, cfg *config.Config) BusService {
	return &busService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *busService) Search(ctx context.Context, from, to, date string) ([]*model.Bus, error) {
	from = sanitizer.NormalizePlace(from)
	to = sanitizer.NormalizePlace(to)
	if from == "" || to == "" || strings.TrimSpace(date) == "" {
		return nil, apperrors.InvalidInput("Missing query parameters. Please provide from, to and date.")
	}

	day, err := journeytime.ParseDay(date)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid date format. Use YYYY-MM-DD or ISO date.")
	}

	today := journeytime.Today(s.now(), s.cfg.ReferenceLocation())
	if err := journeytime.CheckSearchDay(day, today, s.cfg.SearchMaxDaysAhead); err != nil {
		s.cfg.Log.Warn("Search date out of range",
			"date", journeytime.FormatDay(day),
			"today", journeytime.FormatDay(today),
			"error", err,
		)
		if errors.Is(err, journeytime.ErrTooFarAhead) {
			return nil, apperrors.InvalidDateRange("Booking date cannot be more than 90 days in the future")
		}
		return nil, apperrors.InvalidDateRange("Please select a date from tomorrow onwards. Today's date is not allowed.")
	}

	buses, err := s.repo.Search(ctx, from, to, day)
	if err != nil {
		s.cfg.Log.Error("Failed to search buses",
			"from", from,
			"to", to,
			"date", journeytime.FormatDay(day),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to search buses", err)
	}

	sort.SliceStable(buses, func(i, j int) bool {
		return journeytime.MinutesSinceMidnight(buses[i].DepartureTime) <
			journeytime.MinutesSinceMidnight(buses[j].DepartureTime)
	})
	return buses, nil
}

func (s *busService) AvailableRoutes(ctx context.Context) (*model.RouteSet, error) {
	routes, err := s.repo.DistinctRoutes(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list available routes", "error", err)
		return nil, apperrors.Internal("Failed to retrieve available routes", err)
	}
	routes.From = sanitizer.NormalizePlaces(routes.From)
	routes.To = sanitizer.NormalizePlaces(routes.To)
	return routes, nil
}

// GetByID returns the bus with its seat map. DepartureDateISO is the query day
// when it parses, otherwise the bus's own departure day.
func (s *busService) GetByID(ctx context.Context, id, date string) (*model.Bus, error) {
	bus, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if day, err := journeytime.ParseDay(date); err == nil {
		bus.DepartureDateISO = journeytime.FormatDay(day)
	} else if bus.DepartureDate != nil {
		bus.DepartureDateISO = journeytime.FormatDay(*bus.DepartureDate)
	}
	return bus, nil
}

func (s *busService) InitializeSeats(ctx context.Context, id string) (*model.Bus, error) {
	bus, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(bus.Seats) > 0 {
		return bus, nil
	}

	changed, err := s.repo.InitializeSeats(ctx, id, model.NewSeatMap(s.cfg.DefaultSeatCount))
	if err != nil {
		s.cfg.Log.Error("Failed to initialize seats", "bus_id", id, "error", err)
		return nil, apperrors.Internal("Failed to initialize bus seats", err)
	}
	if changed {
		s.cfg.Log.Info("Bus seats initialized", "bus_id", id, "seats", s.cfg.DefaultSeatCount)
	}

	return s.find(ctx, id)
}

// Create fills in the seat map and counters and stores a new bus.
func (s *busService) Create(ctx context.Context, bus *model.Bus) error {
	bus.BusName = sanitizer.NormalizeName(bus.BusName)
	bus.BusNumber = strings.ToUpper(sanitizer.TrimAndNormalize(bus.BusNumber))
	bus.From = sanitizer.NormalizePlace(bus.From)
	bus.To = sanitizer.NormalizePlace(bus.To)
	bus.DepartureTime = strings.TrimSpace(bus.DepartureTime)
	bus.ArrivalTime = strings.TrimSpace(bus.ArrivalTime)
	if bus.TotalSeats == 0 {
		bus.TotalSeats = s.cfg.DefaultSeatCount
	}
	if bus.DepartureDate != nil {
		day := journeytime.StartOfDay(*bus.DepartureDate)
		bus.DepartureDate = &day
	}

	if err := s.validator.Validate(bus); err != nil {
		s.cfg.Log.Warn("Bus validation failed",
			"bus_number", bus.BusNumber,
			"error", err,
		)
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return verrs.ToAppError()
		}
		return apperrors.Validation("Bus validation failed", map[string]any{"error": err.Error()})
	}

	bus.Seats = model.NewSeatMap(bus.TotalSeats)
	bus.AvailableSeats = bus.TotalSeats

	if err := s.repo.Create(ctx, bus); err != nil {
		s.cfg.Log.Error("Failed to create bus",
			"bus_number", bus.BusNumber,
			"error", err,
		)
		return apperrors.Internal("Failed to create bus", err)
	}

	s.cfg.Log.Info("Bus created",
		"id", bus.ID,
		"bus_number", bus.BusNumber,
		"from", bus.From,
		"to", bus.To,
	)
	return nil
}

func (s *busService) find(ctx context.Context, id string) (*model.Bus, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.InvalidInput("Bus ID cannot be empty")
	}

	bus, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, buserrors.ErrNotFound) || errors.Is(err, buserrors.ErrInvalidID) {
			return nil, apperrors.NotFound("Bus")
		}
		s.cfg.Log.Error("Failed to get bus by ID", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bus", err)
	}
	return bus, nil
}
