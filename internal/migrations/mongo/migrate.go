package mongo

import (
	"context"
	"fmt"

	bookingrepository "geobus/internal/bookings/repository"
	busrepository "geobus/internal/buses/repository"
	"geobus/internal/migrations/mongo/validators"
	userrepository "geobus/internal/users/repository"
	"geobus/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	BusesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "bus_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("bus_number_unique"),
		},
		{
			Keys: bson.D{
				{Key: "from", Value: 1},
				{Key: "to", Value: 1},
				{Key: "departure_date", Value: 1},
			},
			Options: options.Index().SetName("route_date"),
		},
		{
			Keys:    bson.D{{Key: "seats.ticket_id", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("seat_hold_ticket"),
		},
	}

	BookingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ticket_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("ticket_id_unique"),
		},
		{
			Keys: bson.D{
				{Key: "user", Value: 1},
				{Key: "booking_date", Value: -1},
			},
			Options: options.Index().SetName("user_booking_date"),
		},
		{
			Keys: bson.D{
				{Key: "is_cancelled", Value: 1},
				{Key: "booking_date", Value: 1},
			},
			Options: options.Index().SetName("live_booking_date"),
		},
	}

	UsersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func collections() map[string]collectionDef {
	return map[string]collectionDef{
		busrepository.CollectionName: {
			Indexes:   BusesIndexes,
			Validator: validators.BusValidator,
		},
		bookingrepository.CollectionName: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		userrepository.CollectionName: {
			Indexes:   UsersIndexes,
			Validator: validators.UserValidator,
		},
	}
}

// RunMigration creates the collections with their validators and indexes.
// It is safe to run repeatedly.
func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for name, def := range collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	created, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", created)
	return nil
}
