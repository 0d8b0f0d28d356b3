package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/citaplus/citaplus/libs/kafkax"
	"github.com/citaplus/citaplus/services/analytics-service/internal/events"
	"github.com/segmentio/kafka-go"
)

type memoryRecorder struct {
	seen   map[string]bool
	funnel []events.Funnel
	booked []events.Booked
	err    error
}

func (m *memoryRecorder) claim(id string) bool {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[id] {
		return false
	}
	m.seen[id] = true
	return true
}

func (m *memoryRecorder) RecordFunnel(_ context.Context, evt events.Funnel) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if !m.claim(evt.EventID) {
		return false, nil
	}
	m.funnel = append(m.funnel, evt)
	return true, nil
}

func (m *memoryRecorder) RecordBooked(_ context.Context, evt events.Booked) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if !m.claim(evt.EventID) {
		return false, nil
	}
	m.booked = append(m.booked, evt)
	return true, nil
}

func msg(topic, id, body string) kafka.Message {
	return kafkax.NewMessage(context.Background(), topic, "B1", kafkax.EventMeta{EventID: id}, []byte(body))
}

func newHandlers(rec Recorder) *Handlers {
	return New(rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFunnelDeduplicates(t *testing.T) {
	rec := &memoryRecorder{}
	h := newHandlers(rec)
	m := msg(events.TopicFunnel, "e1", `{"name":"booking_started","session_id":"s1"}`)

	for i := 0; i < 2; i++ {
		if err := h.Funnel(context.Background(), m); err != nil {
			t.Fatalf("Funnel: %v", err)
		}
	}
	if len(rec.funnel) != 1 {
		t.Fatalf("expected one stored event, got %d", len(rec.funnel))
	}
}

func TestInvalidPayloadIsSkipped(t *testing.T) {
	rec := &memoryRecorder{}
	h := newHandlers(rec)
	if err := h.Funnel(context.Background(), msg(events.TopicFunnel, "e1", `not json`)); err != nil {
		t.Fatalf("expected invalid funnel payload to be skipped, got %v", err)
	}
	if err := h.Booked(context.Background(), msg(events.TopicBooked, "e2", `{"business_id":"B1"}`)); err != nil {
		t.Fatalf("expected invalid booked payload to be skipped, got %v", err)
	}
	if len(rec.funnel)+len(rec.booked) != 0 {
		t.Fatal("expected nothing stored")
	}
}

func TestStoreErrorsAreRetried(t *testing.T) {
	boom := errors.New("db down")
	h := newHandlers(&memoryRecorder{err: boom})
	body := `{"appointment_id":"A1","business_id":"B1","start_time":"2025-07-01T20:00:00Z","price":"30000.00"}`
	if err := h.Booked(context.Background(), msg(events.TopicBooked, "e3", body)); !errors.Is(err, boom) {
		t.Fatalf("expected store error to surface, got %v", err)
	}
}
