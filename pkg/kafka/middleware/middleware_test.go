package kafka_middleware

import (
	"context"
	"errors"
	"testing"

	"spotbook/pkg/kafka"
	"spotbook/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_CountsByResult(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	msg := kafka.Message{Topic: "spotbook.bookings", Key: "spot-1"}

	ok := func(context.Context, kafka.Message) error { return nil }
	fail := func(context.Context, kafka.Message) error { return errors.New("broker down") }

	assert.NoError(t, m.Producer()(context.Background(), msg, ok))
	assert.Error(t, m.Producer()(context.Background(), msg, fail))
	assert.NoError(t, m.Consumer()(context.Background(), msg, ok))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.published.WithLabelValues("spotbook.bookings", resultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.published.WithLabelValues("spotbook.bookings", resultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.consumed.WithLabelValues("spotbook.bookings", resultOK)))
}

func TestLoggingConsumerMiddleware_PropagatesRequestID(t *testing.T) {
	mw := LoggingConsumerMiddleware(logger.Discard())
	msg := kafka.Message{Headers: map[string]string{kafka.HeaderRequestID: "req-42"}}

	var seen string
	err := mw(context.Background(), msg, func(ctx context.Context, _ kafka.Message) error {
		seen = logger.RequestID(ctx)
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "req-42", seen)
}
