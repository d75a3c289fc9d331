package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "geobus/internal/bookings/errors"
	"geobus/pkg/config"
	"geobus/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "bookings"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByTicketID(ctx context.Context, ticketID string) (*model.Booking, error)
	FindByTicketIDs(ctx context.Context, ticketIDs []string) (map[string]*model.Booking, error)
	FindByUser(ctx context.Context, userID string) ([]*model.Booking, error)
	FindLiveSince(ctx context.Context, since time.Time) ([]*model.Booking, error)
	MarkCancelled(ctx context.Context, ticketID, userID string, refund float64, at time.Time) (*model.Booking, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBookingRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.StoreTimeout)
}

// Create inserts a booking. A clash on the unique ticket_id index is reported
// as ErrDuplicateTicket and never overwrites the existing document.
func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateTicket, booking.TicketID)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByTicketID(ctx context.Context, ticketID string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"ticket_id": ticketID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, ticketID)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) FindByTicketIDs(ctx context.Context, ticketIDs []string) (map[string]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	out := make(map[string]*model.Booking, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return out, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"ticket_id": bson.M{"$in": ticketIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings by ticket: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	for _, b := range bookings {
		out[b.TicketID] = b
	}
	return out, nil
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "booking_date", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings for user: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

// FindLiveSince returns bookings made at or after since that are not
// cancelled, oldest first.
func (r *mongoBookingRepository) FindLiveSince(ctx context.Context, since time.Time) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"is_cancelled": false,
		"booking_date": bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "booking_date", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query live bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

// MarkCancelled flips a live booking to cancelled in one conditional update
// and returns the updated document. A booking that is already cancelled
// yields ErrAlreadyCancelled.
func (r *mongoBookingRepository) MarkCancelled(ctx context.Context, ticketID, userID string, refund float64, at time.Time) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"ticket_id":    ticketID,
		"user":         userID,
		"is_cancelled": false,
	}
	update := bson.M{"$set": bson.M{
		"status":            model.BookingStatusCancelled,
		"is_cancelled":      true,
		"payment_status":    model.PaymentStatusRefunded,
		"refund_amount":     refund,
		"cancellation_date": at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking model.Booking
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrAlreadyCancelled, ticketID)
		}
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	return &booking, nil
}
