package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	buserrors "geobus/internal/buses/errors"
	"geobus/pkg/config"
	"geobus/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "buses"
)

type BusRepository interface {
	Create(ctx context.Context, bus *model.Bus) error
	FindByID(ctx context.Context, id string) (*model.Bus, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Bus, error)
	Search(ctx context.Context, from, to string, day time.Time) ([]*model.Bus, error)
	DistinctRoutes(ctx context.Context) (*model.RouteSet, error)
	ExistsForRouteAndDate(ctx context.Context, from, to string, day time.Time) (bool, error)
	InitializeSeats(ctx context.Context, id string, seats []model.Seat) (bool, error)

	HoldSeats(ctx context.Context, hold model.SeatHold, userID string) error
	ReleaseSeats(ctx context.Context, hold model.SeatHold) error
	ReleaseUntaggedSeats(ctx context.Context, busID, userID string, seats []string) error
	FindStaleHolds(ctx context.Context, heldBefore time.Time) ([]model.SeatHold, error)
	RecountAvailable(ctx context.Context) (int64, error)
}

type mongoBusRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBusRepository(cfg *config.Config) BusRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBusRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBusRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.StoreTimeout)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", buserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func dayRange(day time.Time) bson.M {
	return bson.M{"$gte": day, "$lt": day.AddDate(0, 0, 1)}
}

func (r *mongoBusRepository) Create(ctx context.Context, bus *model.Bus) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	bus.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, bus)
	if err != nil {
		return fmt.Errorf("failed to create bus: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		bus.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBusRepository) FindByID(ctx context.Context, id string) (*model.Bus, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var bus model.Bus
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&bus); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", buserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find bus: %w", err)
	}
	return &bus, nil
}

// FindByIDs loads buses without their seat maps, keyed by id. Unknown or
// malformed ids are skipped.
func (r *mongoBusRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Bus, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	out := make(map[string]*model.Bus, len(oids))
	if len(oids) == 0 {
		return out, nil
	}

	cursor, err := r.collection.Find(ctx,
		bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetProjection(bson.M{"seats": 0}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query buses by id: %w", err)
	}
	defer cursor.Close(ctx)

	var buses []*model.Bus
	if err := cursor.All(ctx, &buses); err != nil {
		return nil, fmt.Errorf("failed to decode buses: %w", err)
	}
	for _, b := range buses {
		out[b.ID] = b
	}
	return out, nil
}

// Search matches active buses by case-insensitive substring on both ends of the
// route. Buses without a departure date run every day and always match.
func (r *mongoBusRepository) Search(ctx context.Context, from, to string, day time.Time) ([]*model.Bus, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"is_active": true,
		"from":      primitive.Regex{Pattern: regexp.QuoteMeta(from), Options: "i"},
		"to":        primitive.Regex{Pattern: regexp.QuoteMeta(to), Options: "i"},
		"$or": bson.A{
			bson.M{"departure_date": dayRange(day)},
			bson.M{"departure_date": bson.M{"$exists": false}},
			bson.M{"departure_date": nil},
		},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"seats": 0}))
	if err != nil {
		return nil, fmt.Errorf("failed to search buses: %w", err)
	}
	defer cursor.Close(ctx)

	buses := []*model.Bus{}
	if err := cursor.All(ctx, &buses); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}
	return buses, nil
}

func (r *mongoBusRepository) DistinctRoutes(ctx context.Context) (*model.RouteSet, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	active := bson.M{"is_active": true}
	from, err := r.collection.Distinct(ctx, "from", active)
	if err != nil {
		return nil, fmt.Errorf("failed to list departure points: %w", err)
	}
	to, err := r.collection.Distinct(ctx, "to", active)
	if err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}

	return &model.RouteSet{From: sortedStrings(from), To: sortedStrings(to)}, nil
}

func sortedStrings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func (r *mongoBusRepository) ExistsForRouteAndDate(ctx context.Context, from, to string, day time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx,
		bson.M{"from": from, "to": to, "departure_date": dayRange(day)},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check existing bus: %w", err)
	}
	return count > 0, nil
}

// InitializeSeats installs a seat map only when the bus has none. It reports
// whether the document changed.
func (r *mongoBusRepository) InitializeSeats(ctx context.Context, id string, seats []model.Seat) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return false, err
	}

	filter := bson.M{
		"_id": oid,
		"$or": bson.A{
			bson.M{"seats": bson.M{"$exists": false}},
			bson.M{"seats": nil},
			bson.M{"seats": bson.M{"$size": 0}},
		},
	}
	update := bson.M{"$set": bson.M{
		"seats":           seats,
		"total_seats":     len(seats),
		"available_seats": len(seats),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to initialize seats: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

func seatsMatching(numbers []string, cond bson.M) bson.A {
	clauses := make(bson.A, len(numbers))
	for i, n := range numbers {
		match := bson.M{"seat_number": n}
		for k, v := range cond {
			match[k] = v
		}
		clauses[i] = bson.M{"$elemMatch": match}
	}
	return clauses
}

// HoldSeats books every seat in hold with one conditional update. Either all
// seats flip to booked and available_seats drops by len(hold.Seats), or nothing
// changes and ErrSeatsUnavailable is returned.
func (r *mongoBusRepository) HoldSeats(ctx context.Context, hold model.SeatHold, userID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	oid, err := objectID(hold.BusID)
	if err != nil {
		return err
	}
	n := len(hold.Seats)

	filter := bson.M{
		"_id":             oid,
		"available_seats": bson.M{"$gte": n},
		"seats":           bson.M{"$all": seatsMatching(hold.Seats, bson.M{"is_booked": false})},
	}
	update := bson.M{
		"$set": bson.M{
			"seats.$[held].is_booked": true,
			"seats.$[held].booked_by": userID,
			"seats.$[held].ticket_id": hold.TicketID,
			"seats.$[held].held_at":   hold.HeldAt,
		},
		"$inc": bson.M{"available_seats": -n},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []any{bson.M{"held.seat_number": bson.M{"$in": hold.Seats}}},
	})

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to hold seats: %w", err)
	}
	if result.MatchedCount == 0 {
		return buserrors.ErrSeatsUnavailable
	}
	return nil
}

// ReleaseSeats frees the seats held by hold.TicketID. Seats held by another
// ticket are never touched, so a second release matches nothing.
func (r *mongoBusRepository) ReleaseSeats(ctx context.Context, hold model.SeatHold) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	oid, err := objectID(hold.BusID)
	if err != nil {
		return err
	}
	n := len(hold.Seats)

	filter := bson.M{
		"_id": oid,
		"seats": bson.M{"$all": seatsMatching(hold.Seats, bson.M{
			"is_booked": true,
			"ticket_id": hold.TicketID,
		})},
	}
	update := bson.M{
		"$set": bson.M{"seats.$[held].is_booked": false},
		"$unset": bson.M{
			"seats.$[held].booked_by": "",
			"seats.$[held].ticket_id": "",
			"seats.$[held].held_at":   "",
		},
		"$inc": bson.M{"available_seats": n},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []any{bson.M{
			"held.seat_number": bson.M{"$in": hold.Seats},
			"held.ticket_id":   hold.TicketID,
		}},
	})

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: bus %s ticket %s", buserrors.ErrHoldNotFound, hold.BusID, hold.TicketID)
	}
	return nil
}

// untagged matches a seat field that was never given a ticket id.
var untagged = bson.M{"$in": bson.A{nil, ""}}

// ReleaseUntaggedSeats frees seats booked by userID that carry no ticket tag,
// as written before holds were tagged. All seats are freed or none are.
func (r *mongoBusRepository) ReleaseUntaggedSeats(ctx context.Context, busID, userID string, seats []string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	oid, err := objectID(busID)
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id": oid,
		"seats": bson.M{"$all": seatsMatching(seats, bson.M{
			"is_booked": true,
			"booked_by": userID,
			"ticket_id": untagged,
		})},
	}
	update := bson.M{
		"$set":   bson.M{"seats.$[held].is_booked": false},
		"$unset": bson.M{"seats.$[held].booked_by": ""},
		"$inc":   bson.M{"available_seats": len(seats)},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []any{bson.M{
			"held.seat_number": bson.M{"$in": seats},
			"held.booked_by":   userID,
			"held.ticket_id":   untagged,
		}},
	})

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to release untagged seats: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: bus %s user %s", buserrors.ErrHoldNotFound, busID, userID)
	}
	return nil
}

type staleHoldRow struct {
	ID struct {
		Bus    primitive.ObjectID `bson:"bus"`
		Ticket string             `bson:"ticket"`
	} `bson:"_id"`
	Seats  []string  `bson:"seats"`
	HeldAt time.Time `bson:"held_at"`
}

// FindStaleHolds groups booked seats held before heldBefore by bus and ticket.
// Whether a hold is orphaned is decided by the caller against the ledger.
func (r *mongoBusRepository) FindStaleHolds(ctx context.Context, heldBefore time.Time) ([]model.SeatHold, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"seats.held_at": bson.M{"$lt": heldBefore}}}},
		{{Key: "$unwind", Value: "$seats"}},
		{{Key: "$match", Value: bson.M{
			"seats.is_booked": true,
			"seats.ticket_id": bson.M{"$exists": true, "$ne": ""},
			"seats.held_at":   bson.M{"$lt": heldBefore},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":     bson.M{"bus": "$_id", "ticket": "$seats.ticket_id"},
			"seats":   bson.M{"$push": "$seats.seat_number"},
			"held_at": bson.M{"$min": "$seats.held_at"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale holds: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []staleHoldRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode stale holds: %w", err)
	}

	holds := make([]model.SeatHold, len(rows))
	for i, row := range rows {
		holds[i] = model.SeatHold{
			BusID:    row.ID.Bus.Hex(),
			TicketID: row.ID.Ticket,
			Seats:    row.Seats,
			HeldAt:   row.HeldAt,
		}
	}
	return holds, nil
}

// RecountAvailable rewrites available_seats from the seat map on every bus
// where the counter drifted, and returns how many buses were repaired.
func (r *mongoBusRepository) RecountAvailable(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	free := bson.M{"$size": bson.M{"$filter": bson.M{
		"input": bson.M{"$ifNull": bson.A{"$seats", bson.A{}}},
		"as":    "s",
		"cond":  bson.M{"$eq": bson.A{"$$s.is_booked", false}},
	}}}

	filter := bson.M{
		"seats.0": bson.M{"$exists": true},
		"$expr":   bson.M{"$ne": bson.A{"$available_seats", free}},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"available_seats": free}}},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to recount available seats: %w", err)
	}
	return result.ModifiedCount, nil
}
