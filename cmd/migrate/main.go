package main

import (
	"context"
	"os"
	"time"

	mongoMigration "geobus/internal/migrations/mongo"
	"geobus/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration job")

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.Log)
	cancel()
	cfg.GracefulShutdown()

	if err != nil {
		cfg.Log.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	cfg.Log.Info("Migration completed successfully")
}
