// Package writer persists the appointment assembled by the booking wizard.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/citaplus/citaplus/libs/apperr"
	"github.com/citaplus/citaplus/libs/db"
	"github.com/citaplus/citaplus/services/booking-service/internal/analytics"
	"github.com/citaplus/citaplus/services/booking-service/internal/availability"
	"github.com/citaplus/citaplus/services/booking-service/internal/clock"
	"github.com/citaplus/citaplus/services/booking-service/internal/model"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingClient   = fmt.Errorf("%w: client id is required", apperr.ErrValidation)
	ErrMissingBusiness = fmt.Errorf("%w: business id is required", apperr.ErrValidation)
	ErrMissingService  = fmt.Errorf("%w: service id is required", apperr.ErrValidation)
)

// BackendError wraps a storage failure. Message is the backend's own text.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string { return "save appointment: " + e.Err.Error() }
func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Message() string { return db.Message(e.Err) }

// Store writes appointments. Create fills ID; both may fill server-side columns.
type Store interface {
	Create(ctx context.Context, appt *model.Appointment) error
	Update(ctx context.Context, appt *model.Appointment) error
}

// Input is the wizard's selection at confirmation time. AppointmentID is set
// when an existing appointment is being edited.
type Input struct {
	AppointmentID      string
	SessionID          string
	ClientID           string
	BusinessID         string
	EmployeeBusinessID string
	LocationID         string
	ServiceID          string
	EmployeeID         string
	Date               string
	StartTime          string
	DurationMinutes    int
	Price              decimal.Decimal
	Currency           string
	Notes              string
}

// EffectiveBusinessID prefers the business picked to disambiguate the
// employee over the one selected at the first step.
func (in Input) EffectiveBusinessID() string {
	if id := strings.TrimSpace(in.EmployeeBusinessID); id != "" {
		return id
	}
	return strings.TrimSpace(in.BusinessID)
}

type Writer struct {
	store   Store
	tracker analytics.Tracker
	logger  *slog.Logger
	now     func() time.Time
}

func New(store Store, tracker analytics.Tracker, logger *slog.Logger) *Writer {
	if tracker == nil {
		tracker = analytics.Nop{}
	}
	return &Writer{store: store, tracker: tracker, logger: logger, now: time.Now}
}

// Write validates in, then updates the appointment in place when editing or
// inserts a pending one otherwise. Only inserts emit booking_completed.
func (w *Writer) Write(ctx context.Context, in Input) (model.Appointment, error) {
	businessID := in.EffectiveBusinessID()
	switch {
	case strings.TrimSpace(in.ClientID) == "":
		return model.Appointment{}, ErrMissingClient
	case businessID == "":
		return model.Appointment{}, ErrMissingBusiness
	case strings.TrimSpace(in.ServiceID) == "":
		return model.Appointment{}, ErrMissingService
	}

	start, err := clock.At(in.Date, in.StartTime)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}
	duration := time.Duration(in.DurationMinutes) * time.Minute
	if duration <= 0 {
		duration = availability.DefaultDuration
	}

	now := w.now().UTC()
	appt := model.Appointment{
		ID:         in.AppointmentID,
		ClientID:   in.ClientID,
		BusinessID: businessID,
		ServiceID:  in.ServiceID,
		LocationID: in.LocationID,
		EmployeeID: in.EmployeeID,
		StartTime:  start,
		EndTime:    start.Add(duration),
		Price:      in.Price,
		Currency:   in.Currency,
		Notes:      strings.TrimSpace(in.Notes),
		UpdatedAt:  now,
	}

	if in.AppointmentID != "" {
		if err := w.store.Update(ctx, &appt); err != nil {
			w.logger.Error("appointment update failed", "err", err, "appointment_id", in.AppointmentID)
			return model.Appointment{}, &BackendError{Err: err}
		}
		w.logger.Info("appointment updated", "appointment_id", appt.ID, "business_id", appt.BusinessID)
		return appt, nil
	}

	appt.Status = model.StatusPending
	appt.CreatedAt = now
	if err := w.store.Create(ctx, &appt); err != nil {
		w.logger.Error("appointment create failed", "err", err, "business_id", businessID)
		return model.Appointment{}, &BackendError{Err: err}
	}
	w.logger.Info("appointment created", "appointment_id", appt.ID, "business_id", appt.BusinessID)

	amount := appt.Price
	w.tracker.Track(ctx, analytics.Event{
		Name:            analytics.EventCompleted,
		SessionID:       in.SessionID,
		ClientID:        appt.ClientID,
		BusinessID:      appt.BusinessID,
		ServiceID:       appt.ServiceID,
		EmployeeID:      appt.EmployeeID,
		LocationID:      appt.LocationID,
		AppointmentID:   appt.ID,
		Amount:          &amount,
		Currency:        appt.Currency,
		DurationMinutes: int(duration / time.Minute),
	})
	return appt, nil
}

// AsBackend extracts the storage failure from err, if there is one.
func AsBackend(err error) (*BackendError, bool) {
	var be *BackendError
	ok := errors.As(err, &be)
	return be, ok
}
