package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/citaplus/citaplus/services/analytics-service/internal/events"
	"github.com/segmentio/kafka-go"
)

type Recorder interface {
	RecordFunnel(ctx context.Context, evt events.Funnel) (bool, error)
	RecordBooked(ctx context.Context, evt events.Booked) (bool, error)
}

type Handlers struct {
	store  Recorder
	logger *slog.Logger
}

func New(store Recorder, logger *slog.Logger) *Handlers {
	return &Handlers{store: store, logger: logger}
}

func (h *Handlers) Funnel(ctx context.Context, msg kafka.Message) error {
	evt, err := events.ParseFunnel(msg)
	if err != nil {
		return h.skip(err, msg)
	}
	fresh, err := h.store.RecordFunnel(ctx, evt)
	if err != nil {
		h.logger.Error("failed to record funnel event", "err", err, "event_id", evt.EventID)
		return err
	}
	if !fresh {
		h.logger.Info("duplicate event ignored", "event_id", evt.EventID, "event_type", evt.Name)
		return nil
	}
	h.logger.Debug("funnel event recorded", "event", evt.Name, "session_id", evt.SessionID, "business_id", evt.BusinessID)
	return nil
}

func (h *Handlers) Booked(ctx context.Context, msg kafka.Message) error {
	evt, err := events.ParseBooked(msg)
	if err != nil {
		return h.skip(err, msg)
	}
	fresh, err := h.store.RecordBooked(ctx, evt)
	if err != nil {
		h.logger.Error("failed to update daily metrics", "err", err, "event_id", evt.EventID)
		return err
	}
	if !fresh {
		h.logger.Info("duplicate event ignored", "event_id", evt.EventID, "event_type", msg.Topic)
		return nil
	}
	h.logger.Info("booking metric recorded", "appointment_id", evt.AppointmentID, "business_id", evt.BusinessID)
	return nil
}

func (h *Handlers) skip(err error, msg kafka.Message) error {
	if errors.Is(err, events.ErrInvalid) {
		h.logger.Error("invalid event payload", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		return nil
	}
	return err
}
