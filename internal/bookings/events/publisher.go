// Package events announces committed bookings to the rest of the platform.
package events

import (
	"context"
	"fmt"
	"time"

	"spotbook/pkg/interval"
	"spotbook/pkg/kafka"
	"spotbook/pkg/logger"
	"spotbook/pkg/model"
)

const (
	EventBookingCreated = "booking.created"
	SchemaVersion       = "1"
	Source              = "spotbook-bookings"
)

// BookingCreated is the payload of a booking.created event.
type BookingCreated struct {
	ReservationID string        `json:"reservationId"`
	SpotID        string        `json:"spotId"`
	UserID        string        `json:"userId"`
	StartDate     interval.Date `json:"startDate"`
	EndDate       interval.Date `json:"endDate"`
	Nights        int           `json:"nights"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func NewBookingCreated(r *model.Reservation) BookingCreated {
	return BookingCreated{
		ReservationID: r.ID,
		SpotID:        r.SpotID,
		UserID:        r.UserID,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		Nights:        r.Period().Nights(),
		CreatedAt:     r.CreatedAt,
	}
}

type Publisher interface {
	BookingCreated(ctx context.Context, r *model.Reservation) error
}

// messagePublisher is satisfied by *kafka.Producer.
type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messagePublisher
}

func NewKafkaPublisher(producer messagePublisher) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// BookingCreated publishes keyed by spot id so a spot's events stay ordered.
func (p *KafkaPublisher) BookingCreated(ctx context.Context, r *model.Reservation) error {
	msg, err := kafka.NewMessage().
		WithKey(r.SpotID).
		WithValue(NewBookingCreated(r)).
		WithEventType(EventBookingCreated).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithRequestID(logger.RequestID(ctx)).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", EventBookingCreated, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event for %s: %w", EventBookingCreated, r.ID, err)
	}
	return nil
}

// NoopPublisher drops events. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) BookingCreated(context.Context, *model.Reservation) error {
	return nil
}
