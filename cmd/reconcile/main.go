package main

import (
	"context"
	"os"
	"time"

	bookingrepository "geobus/internal/bookings/repository"
	busrepository "geobus/internal/buses/repository"
	"geobus/internal/reconcile"
	"geobus/pkg/config"
)

const JobName = "seat-reconcile"

// One pass of the consistency checker, for cron-style scheduling.
func main() {
	cfg := config.Load(JobName)
	cfg.SetMongo()

	reconciler := reconcile.NewReconciler(
		busrepository.NewMongoBusRepository(cfg),
		bookingrepository.NewMongoBookingRepository(cfg),
		cfg.ReconcileHoldGrace,
		cfg.ReconcileLookback,
		cfg.Log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	report, err := reconciler.Run(ctx)
	cancel()
	cfg.GracefulShutdown()

	if err != nil {
		cfg.Log.Error("Reconcile failed", "error", err)
		os.Exit(1)
	}
	cfg.Log.Info("Reconcile finished",
		"stale_holds", report.StaleHolds,
		"released", report.Released,
		"release_failed", report.ReleaseFailed,
		"unheld_bookings", report.UnheldBookings,
		"reheld", report.Reheld,
		"double_sold", report.DoubleSold,
		"buses_recounted", report.BusesRecounted,
		"duration", report.Duration,
	)
}
