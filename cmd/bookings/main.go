package main

import (
	"context"
	"spotbook/internal/bookings/events"
	"spotbook/internal/bookings/handler"
	"spotbook/internal/bookings/lock"
	"spotbook/internal/bookings/metrics"
	"spotbook/internal/bookings/repository"
	"spotbook/internal/bookings/service"
	"spotbook/internal/bookings/validator"
	"spotbook/pkg/app"
	"spotbook/pkg/config"
	"spotbook/pkg/kafka"
	kafka_config "spotbook/pkg/kafka/config"
	kafka_middleware "spotbook/pkg/kafka/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Connect()

	cfg.Log.Info("Starting Bookings service")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	serverApp := app.NewApplication(cfg)
	publisher, closePublisher := initPublisher(cfg, registry)
	serverApp.OnShutdown(closePublisher)

	bookingService := initServices(cfg, publisher, registry)
	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, validator.NewBookingValidator(cfg.Log), cfg.Log),
		handler.NewHealthHandler(healthChecks(cfg), registry, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher, registry prometheus.Registerer) service.BookingService {
	var (
		reservations repository.ReservationRepository
		spots        repository.SpotRepository
		users        repository.UserRepository
	)

	switch cfg.StorageBackend {
	case config.BackendMongo:
		reservations = repository.NewMongoReservationRepository(cfg)
		spots = repository.NewMongoSpotRepository(cfg)
		users = repository.NewMongoUserRepository(cfg)
	default:
		memSpots := repository.NewMemorySpotRepository()
		memUsers := repository.NewMemoryUserRepository()
		if cfg.SeedFile != "" {
			seed, err := repository.LoadSeed(cfg.SeedFile)
			if err != nil {
				cfg.Log.Fatal("Failed to load seed file", "path", cfg.SeedFile, "error", err)
			}
			for _, s := range seed.Spots {
				memSpots.Put(s)
			}
			for _, u := range seed.Users {
				memUsers.Put(u)
			}
			cfg.Log.Info("Seed loaded", "spots", len(seed.Spots), "users", len(seed.Users))
		}
		reservations = repository.NewMemoryReservationRepository()
		spots, users = memSpots, memUsers
	}

	bookingService := service.NewBookingService(
		reservations,
		spots,
		users,
		initLocker(cfg),
		publisher,
		metrics.New(registry),
		cfg,
	)

	cfg.Log.Info("Booking service initialized",
		"storage_backend", cfg.StorageBackend,
		"lock_backend", cfg.LockBackend,
	)
	return bookingService
}

func initLocker(cfg *config.Config) lock.Locker {
	switch cfg.LockBackend {
	case config.BackendRedis:
		return lock.NewRedisLocker(cfg.Client.Redis, cfg.LockTTL, cfg.LockRetryInterval, cfg.Log)
	case config.BackendMongo:
		return lock.NewMongoLocker(repository.NewSpotLockRepository(cfg), cfg.LockTTL, cfg.LockRetryInterval, cfg.Log)
	default:
		return lock.NewKeyedMutex()
	}
}

func initPublisher(cfg *config.Config, registry prometheus.Registerer) (events.Publisher, func()) {
	var (
		publishers events.MultiPublisher
		closers    []func()
	)

	if cfg.KafkaEnabled {
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}

		producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.NewMetrics(registry).Producer())

		publishers = append(publishers, events.NewKafkaPublisher(producer))
		closers = append(closers, func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		})
		cfg.Log.Info("Booking events enabled on Kafka", "topic", producer.Topic(), "brokers", kafkaCfg.Brokers)
	}

	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.DialAMQP(cfg.AMQPURL, cfg.BookingEventsQueue, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to connect booking events to RabbitMQ", "error", err)
		}

		publishers = append(publishers, amqpPublisher)
		closers = append(closers, func() {
			if err := amqpPublisher.Close(); err != nil {
				cfg.Log.Error("Failed to close RabbitMQ publisher", "error", err)
			}
		})
		cfg.Log.Info("Booking events enabled on RabbitMQ", "queue", cfg.BookingEventsQueue)
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	switch len(publishers) {
	case 0:
		return events.NoopPublisher{}, closeAll
	case 1:
		return publishers[0], closeAll
	default:
		return publishers, closeAll
	}
}

func healthChecks(cfg *config.Config) map[string]handler.Check {
	checks := make(map[string]handler.Check)
	if cfg.Client.Mongo != nil {
		checks["mongo"] = func(ctx context.Context) error {
			return cfg.Client.Mongo.Ping(ctx, nil)
		}
	}
	if cfg.Client.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return cfg.Client.Redis.Ping(ctx).Err()
		}
	}
	return checks
}
