package common

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	busrepository "geobus/internal/buses/repository"
	busservice "geobus/internal/buses/service"
	busvalidator "geobus/internal/buses/validator"
	"geobus/pkg/client"
	"geobus/pkg/config"
	"geobus/pkg/logger"
	"geobus/pkg/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// IntegrationTestSuite drives a running server over HTTP and seeds buses
// straight into its database.
type IntegrationTestSuite struct {
	Config *config.Config
	API    *client.APIClient
	Buses  busservice.BusService
}

// NewIntegrationTestSuite skips the test unless TEST_SERVER_URL points at a
// running server.
func NewIntegrationTestSuite(t *testing.T, serviceName string) *IntegrationTestSuite {
	t.Helper()

	serverURL := os.Getenv("TEST_SERVER_URL")
	if serverURL == "" {
		t.Skip("TEST_SERVER_URL not set")
	}

	cfg := config.FromEnv()
	cfg.Log = logger.New(logger.Config{Level: logger.WARN, Format: logger.TEXT, Service: serviceName})
	cfg.Client = client.NewClient()
	cfg.SetMongo()

	validator, err := busvalidator.NewBusValidator()
	require.NoError(t, err)

	s := &IntegrationTestSuite{
		Config: cfg,
		API:    client.NewAPIClient(serverURL),
		Buses:  busservice.NewBusService(busrepository.NewMongoBusRepository(cfg), validator, cfg),
	}
	require.NoError(t, s.API.HTTP().WaitForHealthy(context.Background(), 30*time.Second))

	t.Cleanup(cfg.GracefulShutdown)
	return s
}

// SeedBus inserts a bus on a unique route so parallel runs never collide.
func (s *IntegrationTestSuite) SeedBus(t *testing.T, day time.Time, price float64, seats int) *model.Bus {
	t.Helper()

	tag := uuid.NewString()[:8]
	bus := &model.Bus{
		BusNumber:     "IT-" + tag,
		BusName:       "Integration Express",
		From:          "From " + tag,
		To:            "To " + tag,
		DepartureTime: "20:00",
		ArrivalTime:   "23:00",
		DepartureDate: &day,
		Price:         price,
		TotalSeats:    seats,
		IsActive:      true,
	}
	require.NoError(t, s.Buses.Create(context.Background(), bus))
	return bus
}

// RegisterUser creates a fresh account and returns its token.
func (s *IntegrationTestSuite) RegisterUser(t *testing.T) (string, *model.User) {
	t.Helper()

	email := fmt.Sprintf("it-%s@example.com", uuid.NewString()[:12])
	resp, err := s.API.Register(context.Background(), model.RegisterRequest{
		Name:     "Integration User",
		Email:    email,
		Mobile:   "9876543210",
		Password: "secret123",
	})
	require.NoError(t, err)
	return resp.Token, resp.User
}
