package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/citaplus/citaplus/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	TopicFunnel = "booking.funnel.v1"
	TopicBooked = "booking.appointment.booked.v1"
)

const (
	FunnelStarted       = "booking_started"
	FunnelStepCompleted = "booking_step_completed"
	FunnelAbandoned     = "booking_abandoned"
	FunnelCompleted     = "booking_completed"
)

// ErrInvalid marks payloads that will never be processable. Consumers log and
// skip them instead of retrying.
var ErrInvalid = errors.New("invalid event")

type Funnel struct {
	EventID         string
	Name            string           `json:"name"`
	SessionID       string           `json:"session_id"`
	ClientID        string           `json:"client_id"`
	BusinessID      string           `json:"business_id"`
	ServiceID       string           `json:"service_id"`
	EmployeeID      string           `json:"employee_id"`
	LocationID      string           `json:"location_id"`
	Step            string           `json:"step"`
	AppointmentID   string           `json:"appointment_id"`
	Amount          *decimal.Decimal `json:"amount"`
	Currency        string           `json:"currency"`
	DurationMinutes int              `json:"duration_minutes"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

type Booked struct {
	EventID       string
	AppointmentID string          `json:"appointment_id"`
	ClientID      string          `json:"client_id"`
	BusinessID    string          `json:"business_id"`
	ServiceID     string          `json:"service_id"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	Status        string          `json:"status"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
}

func ParseFunnel(msg kafka.Message) (Funnel, error) {
	meta := kafkax.ExtractEventMeta(msg)
	var evt Funnel
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return Funnel{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	evt.EventID = meta.EventID
	if evt.Name == "" {
		evt.Name = meta.EventType
	}
	switch evt.Name {
	case FunnelStarted, FunnelStepCompleted, FunnelAbandoned, FunnelCompleted:
	default:
		return Funnel{}, fmt.Errorf("%w: unknown funnel event %q", ErrInvalid, evt.Name)
	}
	if evt.EventID == "" || evt.SessionID == "" {
		return Funnel{}, fmt.Errorf("%w: missing event or session id", ErrInvalid)
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = meta.OccurredAt
	}
	if evt.OccurredAt.IsZero() {
		return Funnel{}, fmt.Errorf("%w: missing occurred_at", ErrInvalid)
	}
	return evt, nil
}

func ParseBooked(msg kafka.Message) (Booked, error) {
	meta := kafkax.ExtractEventMeta(msg)
	var evt Booked
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return Booked{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	evt.EventID = meta.EventID
	if evt.EventID == "" || evt.AppointmentID == "" || evt.BusinessID == "" || evt.StartTime.IsZero() {
		return Booked{}, fmt.Errorf("%w: missing booking fields", ErrInvalid)
	}
	return evt, nil
}

// Day returns the calendar day of t in loc, as midnight UTC.
func Day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
