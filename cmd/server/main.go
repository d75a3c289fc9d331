package main

import (
	"context"

	bookinghandler "geobus/internal/bookings/handler"
	bookingrepository "geobus/internal/bookings/repository"
	bookingservice "geobus/internal/bookings/service"
	bookingvalidator "geobus/internal/bookings/validator"
	bushandler "geobus/internal/buses/handler"
	busrepository "geobus/internal/buses/repository"
	busservice "geobus/internal/buses/service"
	busvalidator "geobus/internal/buses/validator"
	"geobus/internal/notifications"
	"geobus/internal/reconcile"
	userhandler "geobus/internal/users/handler"
	userrepository "geobus/internal/users/repository"
	userservice "geobus/internal/users/service"
	uservalidator "geobus/internal/users/validator"
	"geobus/pkg/app"
	"geobus/pkg/auth"
	"geobus/pkg/config"
	"geobus/pkg/kafka"
	kafka_config "geobus/pkg/kafka/config"
	kafka_middleware "geobus/pkg/kafka/middleware"
	"geobus/pkg/middleware"
)

const ServiceName = "geobus-server"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Geobus server")
	serverApp := app.NewApplication()

	delivery, closeDelivery := initDelivery(cfg)
	dispatcher := notifications.NewDispatcher(delivery, notifications.DispatcherConfig{
		QueueSize:  cfg.NotificationQueueSize,
		Workers:    cfg.NotificationWorkers,
		JobTimeout: cfg.NotificationJobTimeout,
	}, cfg.Log)
	dispatcher.Start()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	authenticator := middleware.NewAuthenticator(tokens, cfg.Log)

	busRepo := busrepository.NewMongoBusRepository(cfg)
	bookingRepo := bookingrepository.NewMongoBookingRepository(cfg)
	userRepo := userrepository.NewMongoUserRepository(cfg)

	busService := busservice.NewBusService(busRepo, mustValidator(cfg, busvalidator.NewBusValidator), cfg)
	userService := userservice.NewUserService(userRepo, mustValidator(cfg, uservalidator.NewUserValidator), tokens, cfg)
	bookingService := bookingservice.NewBookingService(
		bookingRepo,
		busRepo,
		userService,
		dispatcher,
		mustValidator(cfg, bookingvalidator.NewBookingValidator),
		cfg,
	)

	if cfg.ReconcileInterval > 0 {
		reconciler := reconcile.NewReconciler(busRepo, bookingRepo, cfg.ReconcileHoldGrace, cfg.ReconcileLookback, cfg.Log)
		serverApp.Go(func(ctx context.Context) {
			reconciler.RunEvery(ctx, cfg.ReconcileInterval)
		})
	}

	serverApp.OnShutdown(dispatcher.Stop)
	serverApp.OnShutdown(closeDelivery)
	serverApp.OnShutdown(func(context.Context) error {
		cfg.GracefulShutdown()
		return nil
	})

	serverApp.SetApp(cfg,
		bushandler.NewBusHandler(busService, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, authenticator, notifications.NewTicketRenderer(""), cfg.Log),
		userhandler.NewUserHandler(userService, cfg.Log),
	)
	serverApp.Run()
}

func mustValidator[V any](cfg *config.Config, build func() (V, error)) V {
	v, err := build()
	if err != nil {
		cfg.Log.Fatal("Failed to build validator", "error", err)
	}
	return v
}

// initDelivery picks how confirmed tickets leave the process. The returned
// closer releases whatever the delivery holds open.
func initDelivery(cfg *config.Config) (notifications.Delivery, app.ShutdownHook) {
	noop := func(context.Context) error { return nil }

	switch cfg.NotificationMode {
	case config.NotificationModeSMTP:
		mailer := notifications.NewSMTPMailer(notifications.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		cfg.Log.Info("Tickets are mailed directly", "smtp_host", cfg.SMTPHost)
		return notifications.NewMailDelivery(notifications.NewTicketRenderer(""), mailer, cfg.SMTPFrom, cfg.Log), noop

	case config.NotificationModeKafka:
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		kafkaCfg.LogConfiguration(cfg.Log)

		producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.TicketTopic, kafkaCfg.DLQTopic, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		if kafkaCfg.EnableMiddleware {
			producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		}
		cfg.Log.Info("Tickets are published to Kafka", "topic", kafkaCfg.TicketTopic)
		return notifications.NewKafkaDelivery(producer, ServiceName), func(context.Context) error {
			return producer.Close()
		}

	default:
		cfg.Log.Info("Tickets are logged only")
		return notifications.NewLogDelivery(cfg.Log), noop
	}
}
