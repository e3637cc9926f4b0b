package main

import (
	"libretto/internal/bookings/events"
	"libretto/internal/bookings/handler"
	"libretto/internal/bookings/repository"
	"libretto/internal/bookings/service"
	"libretto/internal/bookings/sweeper"
	"libretto/internal/bookings/validator"
	catalogrepo "libretto/internal/catalog/repository"
	"libretto/pkg/app"
	"libretto/pkg/client"
	"libretto/pkg/clock"
	"libretto/pkg/config"
	"libretto/pkg/kafka"
	kafkaconfig "libretto/pkg/kafka/config"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	clk := clock.System()
	publisher := initPublisher(cfg)
	bookingService, bookingRepo := initServices(cfg, publisher, clk)

	expirySweeper := sweeper.New(bookingRepo, publisher, clk, cfg)
	expirySweeper.Start()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.OnShutdown(expirySweeper.Stop)
	serverApp.OnShutdown(func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Warn("Failed to close event publisher", "error", err)
		}
	})
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher, clk clock.Clock) (service.BookingService, repository.BookingRepository) {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	lockRepo := repository.NewMongoBookingLockRepository(cfg)

	bookingService := service.NewBookingService(
		bookingRepo,
		lockRepo,
		initDirectory(cfg),
		bookingValidator,
		publisher,
		clk,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService, bookingRepo
}

// initDirectory resolves catalog references over HTTP when a catalog base URL
// is configured, otherwise straight from the shared database.
func initDirectory(cfg *config.Config) service.CatalogDirectory {
	if cfg.CatalogBaseURL != "" {
		cfg.Log.Info("Using HTTP catalog directory", "base_url", cfg.CatalogBaseURL)
		return client.NewCatalogClient(cfg.CatalogBaseURL)
	}
	cfg.Log.Info("Using database catalog directory")
	return catalogrepo.NewDirectory(cfg)
}

func initPublisher(cfg *config.Config) events.Publisher {
	if cfg.BookingEventsTopic == "" {
		cfg.Log.Info("Booking events disabled, no topic configured")
		return events.NewNoopPublisher()
	}

	kafkaCfg := kafkaconfig.Load()
	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
	}

	cfg.Log.Info("Booking events enabled",
		"topic", cfg.BookingEventsTopic,
		"dlq_topic", cfg.BookingEventsDLQTopic,
	)
	return events.NewKafkaPublisher(producer, cfg.Log)
}
