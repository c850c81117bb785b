package kafka_middleware

import (
	"context"
	"time"

	"spotbook/pkg/kafka"
	"spotbook/pkg/logger"
)

func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.PublishFunc) error {
		start := time.Now()
		err := next(ctx, msg)

		attrs := []any{
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.EventID(),
			"event_type", msg.EventType(),
			"duration", time.Since(start),
		}
		if err != nil {
			log.Ctx(ctx).Error("failed to publish message", append(attrs, "error", err)...)
		} else {
			log.Ctx(ctx).Debug("published message", attrs...)
		}
		return err
	}
}

func LoggingConsumerMiddleware(log *logger.Logger) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		if id := msg.RequestID(); id != "" {
			ctx = logger.WithRequestID(ctx, id)
		}

		start := time.Now()
		err := next(ctx, msg)

		attrs := []any{
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", msg.Key,
			"event_id", msg.EventID(),
			"duration", time.Since(start),
		}
		if err != nil {
			log.Ctx(ctx).Error("failed to process message", append(attrs, "error", err)...)
		} else {
			log.Ctx(ctx).Debug("processed message", attrs...)
		}
		return err
	}
}
