package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/citaplus/citaplus/libs/kafkax"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const Topic = "booking.funnel.v1"

const (
	EventStarted       = "booking_started"
	EventStepCompleted = "booking_step_completed"
	EventAbandoned     = "booking_abandoned"
	EventCompleted     = "booking_completed"
)

type Event struct {
	Name            string           `json:"name"`
	SessionID       string           `json:"session_id,omitempty"`
	ClientID        string           `json:"client_id,omitempty"`
	BusinessID      string           `json:"business_id,omitempty"`
	ServiceID       string           `json:"service_id,omitempty"`
	EmployeeID      string           `json:"employee_id,omitempty"`
	LocationID      string           `json:"location_id,omitempty"`
	Step            string           `json:"step,omitempty"`
	AppointmentID   string           `json:"appointment_id,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Currency        string           `json:"currency,omitempty"`
	DurationMinutes int              `json:"duration_minutes,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

// Tracker records funnel events. Implementations never block the caller on
// delivery and never report failures.
type Tracker interface {
	Track(ctx context.Context, evt Event)
}

type Nop struct{}

func (Nop) Track(context.Context, Event) {}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaTracker struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
	now    func() time.Time
}

// NewKafkaTracker expects an async writer (see kafkax.NewAsyncWriter).
func NewKafkaTracker(w messageWriter, topic string, logger *slog.Logger) *KafkaTracker {
	if topic == "" {
		topic = Topic
	}
	return &KafkaTracker{writer: w, topic: topic, logger: logger, now: time.Now}
}

func (t *KafkaTracker) Track(ctx context.Context, evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = t.now().UTC()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		t.logger.Error("funnel event encode failed", "err", err, "event", evt.Name)
		return
	}
	key := evt.BusinessID
	if key == "" {
		key = evt.SessionID
	}
	msg := kafkax.NewMessage(ctx, t.topic, key, kafkax.EventMeta{
		EventID:    uuid.NewString(),
		EventType:  evt.Name,
		OccurredAt: evt.OccurredAt,
	}, payload)
	if err := t.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		t.logger.Warn("funnel event publish failed", "err", err, "event", evt.Name)
	}
}

// Recorder keeps events in memory. Used by tests and local runs without Kafka.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Track(_ context.Context, evt Event) {
	r.Events = append(r.Events, evt)
}

func (r *Recorder) Count(name string) int {
	n := 0
	for _, e := range r.Events {
		if e.Name == name {
			n++
		}
	}
	return n
}
