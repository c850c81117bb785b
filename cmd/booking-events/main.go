package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"spotbook/internal/bookings/events"
	"spotbook/internal/bookings/handler"
	"spotbook/pkg/config"
	"spotbook/pkg/kafka"
	kafka_config "spotbook/pkg/kafka/config"
	kafka_middleware "spotbook/pkg/kafka/middleware"
	"spotbook/pkg/middleware"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const ServiceName = "booking-events"

// booking-events tails the booking topic. It logs every accepted booking and
// parks undecodable messages in the DLQ.
func main() {
	cfg := config.Load(ServiceName)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	booked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spotbook_booking_events_nights_total",
		Help: "Nights booked, as seen on the booking event stream.",
	}, []string{"spot_id"})
	registry.MustRegister(booked)

	eventHandler := events.NewHandler(cfg.Log, func(_ context.Context, ev events.BookingCreated) error {
		booked.WithLabelValues(ev.SpotID).Add(float64(ev.Nights))
		return nil
	})

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsGroupID, cfg.BookingEventsDLQTopic, eventHandler.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.NewMetrics(registry).Consumer())

	router := httprouter.New()
	handler.NewHealthHandler(nil, registry, cfg.Log).RegisterRoutes(router)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Recovery(cfg.Log)(router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	go func() {
		cfg.Log.Info("Starting metrics server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Log.Error("Metrics server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Consuming booking events",
		"topic", cfg.BookingEventsTopic,
		"group_id", cfg.BookingEventsGroupID,
		"dlq_topic", cfg.BookingEventsDLQTopic,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	cfg.Log.Info("Shutting down booking events consumer")
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		cfg.Log.Error("Metrics server shutdown failed", "error", err)
	}
}
