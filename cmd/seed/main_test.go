package main

import (
	"context"
	"errors"
	"testing"
	"time"

	busrepository "geobus/internal/buses/repository"
	busservice "geobus/internal/buses/service"
	busvalidator "geobus/internal/buses/validator"
	"geobus/pkg/config"
	"geobus/pkg/logger"
	"geobus/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(value string) time.Time {
	t, _ := time.Parse("2006-01-02", value)
	return t
}

func busTemplate() model.Bus {
	return model.Bus{
		BusNumber:     "MH01-1001",
		BusName:       "Express Line",
		From:          "Mumbai",
		To:            "Pune",
		DepartureTime: "20:00",
		ArrivalTime:   "23:00",
		Price:         500,
		IsActive:      true,
	}
}

func newSeeder(t *testing.T) (*seeder, *busrepository.MemoryBusRepository) {
	t.Helper()
	v, err := busvalidator.NewBusValidator()
	require.NoError(t, err)
	cfg := &config.Config{Log: logger.NewNop(), DefaultSeatCount: 40}
	repo := busrepository.NewMemoryBusRepository()
	return &seeder{
		buses:    busservice.NewBusService(repo, v, cfg),
		existing: repo,
		log:      cfg.Log,
	}, repo
}

func TestSeedInsertsOneBusPerDay(t *testing.T) {
	s, repo := newSeeder(t)

	result, err := s.seed(context.Background(), busTemplate(), day("2025-12-23"), day("2025-12-30"))
	require.NoError(t, err)
	assert.Equal(t, 8, result.Inserted)
	assert.Zero(t, result.Skipped)

	buses, err := repo.Search(context.Background(), "Mumbai", "Pune", day("2025-12-25"))
	require.NoError(t, err)
	require.Len(t, buses, 1)
	assert.Equal(t, "MH01-1001-2025-12-25", buses[0].BusNumber)
	assert.Equal(t, 40, buses[0].AvailableSeats)
	assert.Len(t, repo.Snapshot(buses[0].ID).Seats, 40)
}

func TestSeedSkipsExistingRouteAndDate(t *testing.T) {
	s, _ := newSeeder(t)

	_, err := s.seed(context.Background(), busTemplate(), day("2025-12-23"), day("2025-12-24"))
	require.NoError(t, err)

	result, err := s.seed(context.Background(), busTemplate(), day("2025-12-23"), day("2025-12-26"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 2, result.Skipped)
}

type failingCreator struct{}

func (failingCreator) Create(context.Context, *model.Bus) error { return errors.New("insert failed") }

func TestSeedStopsOnInsertFailure(t *testing.T) {
	s, repo := newSeeder(t)
	s.buses = failingCreator{}
	s.existing = repo

	result, err := s.seed(context.Background(), busTemplate(), day("2025-12-23"), day("2025-12-24"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2025-12-23")
	assert.Zero(t, result.Inserted)
}

func TestSeedRejectsReversedRange(t *testing.T) {
	s, _ := newSeeder(t)

	_, err := s.seed(context.Background(), busTemplate(), day("2025-12-30"), day("2025-12-23"))
	require.Error(t, err)
}

func TestParseRoutes(t *testing.T) {
	buses, err := parseRoutes([]byte(`
routes:
  - bus_number: MH01-1001
    bus_name: Express Line
    from: Mumbai
    to: Pune
    departure_time: "20:00"
    arrival_time: "23:00"
    price: 500
  - bus_number: KA01-2002
    bus_name: Night Rider
    from: Bengaluru
    to: Mysuru
    departure_time: "06:30"
    arrival_time: "09:45"
    price: 350
    total_seats: 30
`))
	require.NoError(t, err)
	require.Len(t, buses, 2)
	assert.Equal(t, "Bengaluru", buses[1].From)
	assert.Equal(t, 30, buses[1].TotalSeats)
	assert.True(t, buses[0].IsActive)

	_, err = parseRoutes([]byte("routes: []"))
	assert.Error(t, err)

	_, err = parseRoutes([]byte("routes:\n  - bus_name: Missing Fields\n"))
	assert.ErrorContains(t, err, "route #1")
}

func TestSeedWindow(t *testing.T) {
	today := day("2026-03-10")

	start, end, err := seedWindow("", "", 8, today)
	require.NoError(t, err)
	assert.Equal(t, today, start)
	assert.Equal(t, day("2026-03-17"), end)

	start, end, err = seedWindow("2025-12-23", "2025-12-30", 3, today)
	require.NoError(t, err)
	assert.Equal(t, day("2025-12-23"), start)
	assert.Equal(t, day("2025-12-30"), end)

	_, _, err = seedWindow("", "", 0, today)
	assert.Error(t, err)

	_, _, err = seedWindow("23/12/2025", "", 3, today)
	assert.Error(t, err)
}
