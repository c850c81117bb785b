package events

import (
	"context"
	"fmt"

	"spotbook/pkg/kafka"
	"spotbook/pkg/logger"
)

// Handler consumes booking events. Unknown event types are skipped so older
// consumers survive new producers.
type Handler struct {
	log     *logger.Logger
	onEvent func(ctx context.Context, ev BookingCreated) error
}

func NewHandler(log *logger.Logger, onEvent func(ctx context.Context, ev BookingCreated) error) *Handler {
	return &Handler{log: log.Component("booking_events"), onEvent: onEvent}
}

func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	if msg.EventType() != EventBookingCreated {
		h.log.Ctx(ctx).Debug("skipping event", "event_type", msg.EventType(), "event_id", msg.EventID())
		return nil
	}

	var ev BookingCreated
	if err := msg.DecodeValue(&ev); err != nil {
		return err
	}
	if ev.ReservationID == "" || ev.SpotID == "" {
		return kafka.NewPermanentError(fmt.Sprintf("incomplete %s event %s", EventBookingCreated, msg.EventID()), nil)
	}

	h.log.Ctx(ctx).Info("booking created",
		"reservation_id", ev.ReservationID,
		"spot_id", ev.SpotID,
		"start_date", ev.StartDate,
		"end_date", ev.EndDate,
		"nights", ev.Nights,
	)

	if h.onEvent != nil {
		return h.onEvent(ctx, ev)
	}
	return nil
}
