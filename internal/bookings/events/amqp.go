package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"spotbook/pkg/logger"
	"spotbook/pkg/model"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel is the subset of *amqp.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends booking events to a durable RabbitMQ queue through the
// default exchange.
type AMQPPublisher struct {
	mu    sync.Mutex
	ch    amqpChannel
	conn  *amqp.Connection
	queue string
	log   *logger.Logger
}

func DialAMQP(url, queue string, log *logger.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	p := newAMQPPublisher(ch, queue, log)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch amqpChannel, queue string, log *logger.Logger) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, queue: queue, log: log.Component("amqp_publisher")}
}

func (p *AMQPPublisher) BookingCreated(ctx context.Context, r *model.Reservation) error {
	body, err := json.Marshal(NewBookingCreated(r))
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", EventBookingCreated, err)
	}

	headers := amqp.Table{"schema-version": SchemaVersion}
	if id := logger.RequestID(ctx); id != "" {
		headers["request-id"] = id
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         EventBookingCreated,
		AppId:        Source,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s event for %s: %w", EventBookingCreated, r.ID, err)
	}
	p.log.Ctx(ctx).Debug("event published", "queue", p.queue, "reservation_id", r.ID)
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}

// MultiPublisher fans an event out to every publisher. All are attempted even
// when one fails.
type MultiPublisher []Publisher

func (m MultiPublisher) BookingCreated(ctx context.Context, r *model.Reservation) error {
	var errs []error
	for _, p := range m {
		if err := p.BookingCreated(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
