package outbox

import "encoding/json"

const (
	AggregateAppointment = "appointment"

	EventAppointmentBooked  = "booking.appointment.booked.v1"
	EventAppointmentUpdated = "booking.appointment.updated.v1"
)

// Event is the envelope written to outbox_events. The Kafka topic is EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

func NewEvent(aggregateType, aggregateID, eventType string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       b,
	}, nil
}
