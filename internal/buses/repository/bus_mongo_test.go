package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	buserrors "geobus/internal/buses/errors"
	"geobus/pkg/client"
	"geobus/pkg/config"
	"geobus/pkg/logger"
	"geobus/pkg/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newMongoRepo connects to MONGO_TEST_URI and returns a repository backed by
// a throwaway database that is dropped when the test ends.
func newMongoRepo(t *testing.T) *mongoBusRepository {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, mc.Ping(ctx, nil))

	dbName := "geobus_test_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mc.Database(dbName).Drop(ctx)
		_ = mc.Disconnect(ctx)
	})

	cfg := &config.Config{
		Log:               logger.NewNop(),
		Client:            &client.Client{Mongo: mc},
		MongoDatabaseName: dbName,
		StoreTimeout:      5 * time.Second,
	}
	return NewMongoBusRepository(cfg).(*mongoBusRepository)
}

func createBus(t *testing.T, r *mongoBusRepository, number string, seats int) *model.Bus {
	t.Helper()
	bus := &model.Bus{
		BusNumber:      number,
		BusName:        "Night Rider",
		From:           "Mumbai",
		To:             "Pune",
		DepartureTime:  "10:00 PM",
		ArrivalTime:    "02:00 AM",
		Price:          500,
		TotalSeats:     seats,
		AvailableSeats: seats,
		IsActive:       true,
		Seats:          model.NewSeatMap(seats),
	}
	require.NoError(t, r.Create(context.Background(), bus))
	require.NotEmpty(t, bus.ID)
	return bus
}

func loadBus(t *testing.T, r *mongoBusRepository, id string) *model.Bus {
	t.Helper()
	bus, err := r.FindByID(context.Background(), id)
	require.NoError(t, err)
	return bus
}

func seatHold(busID, ticketID string, at time.Time, seats ...string) model.SeatHold {
	return model.SeatHold{BusID: busID, TicketID: ticketID, Seats: seats, HeldAt: at}
}

const mongoUser = "64b000000000000000000001"

func TestMongoHoldSeats_ConcurrentSameSeatExactlyOneWins(t *testing.T) {
	r := newMongoRepo(t)
	bus := createBus(t, r, "GB-1", 10)
	at := time.Now().UTC().Truncate(time.Millisecond)

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners []string
	unavailable := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket := fmt.Sprintf("TICKET-%02d", i)
			err := r.HoldSeats(context.Background(), seatHold(bus.ID, ticket, at, "S01", "S02"), mongoUser)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, ticket)
			case errors.Is(err, buserrors.ErrSeatsUnavailable):
				unavailable++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, attempts-1, unavailable)

	stored := loadBus(t, r, bus.ID)
	assert.Equal(t, 8, stored.AvailableSeats)
	assert.Equal(t, stored.CountFreeSeats(), stored.AvailableSeats)
	for _, n := range []string{"S01", "S02"} {
		seat := stored.SeatByNumber(n)
		assert.True(t, seat.IsBooked, n)
		assert.Equal(t, winners[0], seat.TicketID, n)
		assert.Equal(t, mongoUser, seat.BookedBy, n)
		require.NotNil(t, seat.HeldAt, n)
		assert.True(t, at.Equal(*seat.HeldAt), n)
	}
}

func TestMongoHoldSeats_AllOrNothing(t *testing.T) {
	r := newMongoRepo(t)
	bus := createBus(t, r, "GB-2", 5)
	at := time.Now().UTC()

	require.NoError(t, r.HoldSeats(context.Background(), seatHold(bus.ID, "T1", at, "S02"), mongoUser))

	err := r.HoldSeats(context.Background(), seatHold(bus.ID, "T2", at, "S02", "S03"), mongoUser)
	assert.ErrorIs(t, err, buserrors.ErrSeatsUnavailable)

	err = r.HoldSeats(context.Background(), seatHold(bus.ID, "T3", at, "S03", "S99"), mongoUser)
	assert.ErrorIs(t, err, buserrors.ErrSeatsUnavailable)

	stored := loadBus(t, r, bus.ID)
	assert.False(t, stored.SeatByNumber("S03").IsBooked)
	assert.Equal(t, "T1", stored.SeatByNumber("S02").TicketID)
	assert.Equal(t, 4, stored.AvailableSeats)
}

func TestMongoReleaseSeats_OnlyOnceAndOnlyOwnTicket(t *testing.T) {
	r := newMongoRepo(t)
	bus := createBus(t, r, "GB-3", 5)
	at := time.Now().UTC()
	ctx := context.Background()

	require.NoError(t, r.HoldSeats(ctx, seatHold(bus.ID, "T1", at, "S01", "S02"), mongoUser))
	require.NoError(t, r.HoldSeats(ctx, seatHold(bus.ID, "T2", at, "S03"), mongoUser))

	err := r.ReleaseSeats(ctx, seatHold(bus.ID, "T2", at, "S01"))
	assert.ErrorIs(t, err, buserrors.ErrHoldNotFound)

	require.NoError(t, r.ReleaseSeats(ctx, seatHold(bus.ID, "T1", at, "S01", "S02")))
	err = r.ReleaseSeats(ctx, seatHold(bus.ID, "T1", at, "S01", "S02"))
	assert.ErrorIs(t, err, buserrors.ErrHoldNotFound)

	stored := loadBus(t, r, bus.ID)
	assert.Equal(t, 4, stored.AvailableSeats)
	assert.Equal(t, stored.CountFreeSeats(), stored.AvailableSeats)
	free := stored.SeatByNumber("S01")
	assert.False(t, free.IsBooked)
	assert.Empty(t, free.BookedBy)
	assert.Empty(t, free.TicketID)
	assert.Nil(t, free.HeldAt)
	assert.Equal(t, "T2", stored.SeatByNumber("S03").TicketID)
}

func TestMongoReleaseUntaggedSeats(t *testing.T) {
	r := newMongoRepo(t)
	bus := createBus(t, r, "GB-4", 5)
	ctx := context.Background()

	oid, err := objectID(bus.ID)
	require.NoError(t, err)
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{
			"seats.0.is_booked": true,
			"seats.0.booked_by": mongoUser,
			"seats.1.is_booked": true,
			"seats.1.booked_by": "64b000000000000000000002",
		},
		"$inc": bson.M{"available_seats": -2},
	})
	require.NoError(t, err)

	err = r.ReleaseUntaggedSeats(ctx, bus.ID, mongoUser, []string{"S02"})
	assert.ErrorIs(t, err, buserrors.ErrHoldNotFound)

	require.NoError(t, r.ReleaseUntaggedSeats(ctx, bus.ID, mongoUser, []string{"S01"}))
	err = r.ReleaseUntaggedSeats(ctx, bus.ID, mongoUser, []string{"S01"})
	assert.ErrorIs(t, err, buserrors.ErrHoldNotFound)

	stored := loadBus(t, r, bus.ID)
	assert.False(t, stored.SeatByNumber("S01").IsBooked)
	assert.Empty(t, stored.SeatByNumber("S01").BookedBy)
	assert.True(t, stored.SeatByNumber("S02").IsBooked)
	assert.Equal(t, 4, stored.AvailableSeats)
}

func TestMongoFindStaleHolds_GroupsByBusAndTicket(t *testing.T) {
	r := newMongoRepo(t)
	first := createBus(t, r, "GB-5", 6)
	second := createBus(t, r, "GB-6", 6)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	old := now.Add(-time.Hour)
	require.NoError(t, r.HoldSeats(ctx, seatHold(first.ID, "T-A", old, "S01", "S02"), mongoUser))
	require.NoError(t, r.HoldSeats(ctx, seatHold(first.ID, "T-B", old.Add(time.Minute), "S03"), mongoUser))
	require.NoError(t, r.HoldSeats(ctx, seatHold(second.ID, "T-C", old, "S01"), mongoUser))
	require.NoError(t, r.HoldSeats(ctx, seatHold(second.ID, "T-FRESH", now, "S02"), mongoUser))

	holds, err := r.FindStaleHolds(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)

	got := map[string]model.SeatHold{}
	for _, h := range holds {
		sort.Strings(h.Seats)
		got[h.TicketID] = h
	}
	require.Len(t, got, 3)
	assert.Equal(t, first.ID, got["T-A"].BusID)
	assert.Equal(t, []string{"S01", "S02"}, got["T-A"].Seats)
	assert.True(t, old.Equal(got["T-A"].HeldAt))
	assert.Equal(t, []string{"S03"}, got["T-B"].Seats)
	assert.Equal(t, second.ID, got["T-C"].BusID)
	assert.NotContains(t, got, "T-FRESH")
}

func TestMongoRecountAvailable(t *testing.T) {
	r := newMongoRepo(t)
	bus := createBus(t, r, "GB-7", 10)
	createBus(t, r, "GB-8", 4)
	ctx := context.Background()

	require.NoError(t, r.HoldSeats(ctx, seatHold(bus.ID, "T1", time.Now().UTC(), "S01"), mongoUser))

	oid, err := objectID(bus.ID)
	require.NoError(t, err)
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"available_seats": 3}})
	require.NoError(t, err)

	fixed, err := r.RecountAvailable(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fixed)
	assert.Equal(t, 9, loadBus(t, r, bus.ID).AvailableSeats)

	fixed, err = r.RecountAvailable(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fixed)
}
