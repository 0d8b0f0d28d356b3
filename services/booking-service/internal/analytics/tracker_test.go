package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/citaplus/citaplus/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func TestKafkaTrackerPublishes(t *testing.T) {
	w := &captureWriter{}
	tr := NewKafkaTracker(w, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	tr.now = func() time.Time { return time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC) }

	amount := decimal.RequireFromString("30000")
	tr.Track(context.Background(), Event{
		Name:            EventCompleted,
		SessionID:       "sess-1",
		BusinessID:      "B1",
		Amount:          &amount,
		Currency:        "COP",
		DurationMinutes: 60,
	})

	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if msg.Topic != Topic || string(msg.Key) != "B1" {
		t.Fatalf("unexpected topic/key %s/%s", msg.Topic, msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventType != EventCompleted || meta.EventID == "" {
		t.Fatalf("unexpected meta %+v", meta)
	}
	var evt Event
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if evt.Amount == nil || !evt.Amount.Equal(amount) || evt.OccurredAt.IsZero() {
		t.Fatalf("unexpected payload %+v", evt)
	}
}

func TestKafkaTrackerSwallowsErrors(t *testing.T) {
	w := &captureWriter{err: errors.New("broker down")}
	tr := NewKafkaTracker(w, "funnel", slog.New(slog.NewTextHandler(io.Discard, nil)))
	tr.Track(context.Background(), Event{Name: EventStarted, SessionID: "sess-1"})
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "sess-1" || w.msgs[0].Topic != "funnel" {
		t.Fatalf("expected keyed by session on custom topic, got %+v", w.msgs)
	}
}
