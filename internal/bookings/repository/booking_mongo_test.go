package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	bookingserrors "geobus/internal/bookings/errors"
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

const (
	mongoAlice = "64b000000000000000000001"
	mongoBob   = "64b000000000000000000002"
	mongoBus   = "64c000000000000000000001"
)

func newMongoRepo(t *testing.T) *mongoBookingRepository {
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
	r := NewMongoBookingRepository(cfg).(*mongoBookingRepository)

	_, err = r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ticket_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	require.NoError(t, err)
	return r
}

func newBooking(ticketID, userID string, at time.Time) *model.Booking {
	return &model.Booking{
		TicketID:      ticketID,
		UserID:        userID,
		BusID:         mongoBus,
		Seats:         []model.BookedSeat{{SeatNumber: "S01", PassengerName: "Asha", PassengerAge: 30, PassengerGender: "female"}},
		TotalAmount:   500,
		BookingDate:   at.UTC().Truncate(time.Millisecond),
		Status:        model.BookingStatusConfirmed,
		PaymentMethod: model.PaymentMethodQR,
		PaymentStatus: model.PaymentStatusCompleted,
	}
}

func TestMongoCreate_DuplicateTicketKeepsOriginal(t *testing.T) {
	r := newMongoRepo(t)
	ctx := context.Background()

	first := newBooking("TICKET1", mongoAlice, time.Now())
	require.NoError(t, r.Create(ctx, first))
	assert.NotEmpty(t, first.ID)

	second := newBooking("TICKET1", mongoBob, time.Now())
	second.TotalAmount = 999
	err := r.Create(ctx, second)
	assert.ErrorIs(t, err, bookingserrors.ErrDuplicateTicket)

	stored, err := r.FindByTicketID(ctx, "TICKET1")
	require.NoError(t, err)
	assert.Equal(t, mongoAlice, stored.UserID)
	assert.Equal(t, 500.0, stored.TotalAmount)

	_, err = r.FindByTicketID(ctx, "TICKET404")
	assert.ErrorIs(t, err, bookingserrors.ErrNotFound)
}

func TestMongoMarkCancelled(t *testing.T) {
	r := newMongoRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, newBooking("TICKET2", mongoAlice, time.Now())))
	at := time.Now().UTC().Truncate(time.Millisecond)

	_, err := r.MarkCancelled(ctx, "TICKET2", mongoBob, 400, at)
	assert.ErrorIs(t, err, bookingserrors.ErrAlreadyCancelled)

	cancelled, err := r.MarkCancelled(ctx, "TICKET2", mongoAlice, 400, at)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, model.PaymentStatusRefunded, cancelled.PaymentStatus)
	assert.Equal(t, 400.0, cancelled.RefundAmount)
	require.NotNil(t, cancelled.CancellationDate)
	assert.True(t, at.Equal(*cancelled.CancellationDate))

	_, err = r.MarkCancelled(ctx, "TICKET2", mongoAlice, 400, at)
	assert.ErrorIs(t, err, bookingserrors.ErrAlreadyCancelled)
}

func TestMongoMarkCancelled_ConcurrentExactlyOne(t *testing.T) {
	r := newMongoRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, newBooking("TICKET3", mongoAlice, time.Now())))

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, already := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.MarkCancelled(ctx, "TICKET3", mongoAlice, 400, time.Now().UTC())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, bookingserrors.ErrAlreadyCancelled):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 9, already)
}

func TestMongoFindLiveSince(t *testing.T) {
	r := newMongoRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.Create(ctx, newBooking("T-OLD", mongoAlice, now.Add(-48*time.Hour))))
	require.NoError(t, r.Create(ctx, newBooking("T-LATER", mongoAlice, now.Add(-time.Hour))))
	require.NoError(t, r.Create(ctx, newBooking("T-EARLIER", mongoBob, now.Add(-2*time.Hour))))
	require.NoError(t, r.Create(ctx, newBooking("T-CANCELLED", mongoBob, now.Add(-time.Hour))))
	_, err := r.MarkCancelled(ctx, "T-CANCELLED", mongoBob, 400, now)
	require.NoError(t, err)

	live, err := r.FindLiveSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, "T-EARLIER", live[0].TicketID)
	assert.Equal(t, "T-LATER", live[1].TicketID)
	assert.Equal(t, []string{"S01"}, live[0].SeatNumbers())
}

func TestMongoFindByTicketIDsAndUser(t *testing.T) {
	r := newMongoRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.Create(ctx, newBooking("T-1", mongoAlice, now.Add(-time.Hour))))
	require.NoError(t, r.Create(ctx, newBooking("T-2", mongoAlice, now)))
	require.NoError(t, r.Create(ctx, newBooking("T-3", mongoBob, now)))

	found, err := r.FindByTicketIDs(ctx, []string{"T-1", "T-3", "T-404"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, mongoBob, found["T-3"].UserID)

	empty, err := r.FindByTicketIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	mine, err := r.FindByUser(ctx, mongoAlice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "T-2", mine[0].TicketID)
	assert.Equal(t, "T-1", mine[1].TicketID)
}
