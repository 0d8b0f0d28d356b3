package writer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/citaplus/citaplus/libs/apperr"
	"github.com/citaplus/citaplus/services/booking-service/internal/analytics"
	"github.com/citaplus/citaplus/services/booking-service/internal/clock"
	"github.com/citaplus/citaplus/services/booking-service/internal/model"
	"github.com/shopspring/decimal"
)

type fakeStore struct {
	created []model.Appointment
	updated []model.Appointment
	err     error
}

func (s *fakeStore) Create(_ context.Context, appt *model.Appointment) error {
	if s.err != nil {
		return s.err
	}
	appt.ID = "appt-1"
	s.created = append(s.created, *appt)
	return nil
}

func (s *fakeStore) Update(_ context.Context, appt *model.Appointment) error {
	if s.err != nil {
		return s.err
	}
	appt.Status = model.StatusConfirmed
	s.updated = append(s.updated, *appt)
	return nil
}

func newTestWriter(store Store, rec *analytics.Recorder) *Writer {
	w := New(store, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.now = func() time.Time { return time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC) }
	return w
}

func baseInput() Input {
	return Input{
		ClientID:        "client-1",
		BusinessID:      "B1",
		LocationID:      "L1",
		ServiceID:       "S1",
		EmployeeID:      "E1",
		Date:            "2025-07-01",
		StartTime:       "10:00 AM",
		DurationMinutes: 60,
		Price:           decimal.RequireFromString("45000"),
		Currency:        "COP",
	}
}

func TestWriteCreatesPendingAppointment(t *testing.T) {
	store := &fakeStore{}
	rec := &analytics.Recorder{}
	w := newTestWriter(store, rec)

	appt, err := w.Write(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(store.created) != 1 || len(store.updated) != 0 {
		t.Fatalf("expected one insert, got %d inserts %d updates", len(store.created), len(store.updated))
	}
	if appt.ID != "appt-1" || appt.Status != model.StatusPending || appt.BusinessID != "B1" {
		t.Fatalf("unexpected appointment %+v", appt)
	}
	if want := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC); !appt.StartTime.Equal(want) {
		t.Fatalf("expected start %s, got %s", want, appt.StartTime)
	}
	if want := time.Date(2025, 7, 1, 16, 0, 0, 0, time.UTC); !appt.EndTime.Equal(want) {
		t.Fatalf("expected end %s, got %s", want, appt.EndTime)
	}
	if appt.CreatedAt.IsZero() {
		t.Fatal("expected creation timestamp")
	}
	if rec.Count(analytics.EventCompleted) != 1 {
		t.Fatalf("expected one booking_completed event, got %d", rec.Count(analytics.EventCompleted))
	}
	evt := rec.Events[0]
	if evt.Amount == nil || !evt.Amount.Equal(decimal.RequireFromString("45000")) || evt.DurationMinutes != 60 || evt.Currency != "COP" {
		t.Fatalf("unexpected completed event %+v", evt)
	}
}

func TestWritePrefersEmployeeBusiness(t *testing.T) {
	store := &fakeStore{}
	w := newTestWriter(store, &analytics.Recorder{})

	in := baseInput()
	in.EmployeeBusinessID = "B2"
	appt, err := w.Write(context.Background(), in)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if appt.BusinessID != "B2" {
		t.Fatalf("expected effective business B2, got %s", appt.BusinessID)
	}
}

func TestWriteDefaultsDuration(t *testing.T) {
	w := newTestWriter(&fakeStore{}, &analytics.Recorder{})

	in := baseInput()
	in.DurationMinutes = 0
	appt, err := w.Write(context.Background(), in)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := appt.EndTime.Sub(appt.StartTime); got != 60*time.Minute {
		t.Fatalf("expected 60 minute default, got %s", got)
	}
}

func TestWriteUpdatesWhenEditing(t *testing.T) {
	store := &fakeStore{}
	rec := &analytics.Recorder{}
	w := newTestWriter(store, rec)

	in := baseInput()
	in.AppointmentID = "appt-9"
	in.StartTime = "3:00 PM"
	appt, err := w.Write(context.Background(), in)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(store.updated) != 1 || len(store.created) != 0 {
		t.Fatalf("expected one update, got %d inserts %d updates", len(store.created), len(store.updated))
	}
	if appt.ID != "appt-9" || appt.Status != model.StatusConfirmed {
		t.Fatalf("expected edited appointment to keep its stored status, got %+v", appt)
	}
	if len(rec.Events) != 0 {
		t.Fatalf("expected no analytics on edit, got %v", rec.Events)
	}
}

func TestWriteValidation(t *testing.T) {
	store := &fakeStore{}
	w := newTestWriter(store, &analytics.Recorder{})

	in := baseInput()
	in.ClientID = ""
	if _, err := w.Write(context.Background(), in); !errors.Is(err, ErrMissingClient) {
		t.Fatalf("expected ErrMissingClient, got %v", err)
	}

	in = baseInput()
	in.StartTime = "15:00"
	_, err := w.Write(context.Background(), in)
	if !errors.Is(err, clock.ErrInvalidTime) || !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected invalid time validation error, got %v", err)
	}

	in = baseInput()
	in.BusinessID = ""
	if _, err := w.Write(context.Background(), in); !errors.Is(err, ErrMissingBusiness) {
		t.Fatalf("expected ErrMissingBusiness, got %v", err)
	}
	if len(store.created) != 0 {
		t.Fatal("expected nothing persisted on validation failure")
	}
}

func TestWriteBackendFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("slot already taken")}
	rec := &analytics.Recorder{}
	w := newTestWriter(store, rec)

	_, err := w.Write(context.Background(), baseInput())
	be, ok := AsBackend(err)
	if !ok {
		t.Fatalf("expected backend error, got %v", err)
	}
	if be.Message() != "slot already taken" {
		t.Fatalf("expected backend message, got %q", be.Message())
	}
	if len(rec.Events) != 0 {
		t.Fatal("expected no analytics on failure")
	}
}
