package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/citaplus/citaplus/libs/apperr"
	"github.com/citaplus/citaplus/libs/db"
	"github.com/citaplus/citaplus/services/booking-service/internal/model"
	"github.com/citaplus/citaplus/services/booking-service/internal/outbox"
	"github.com/citaplus/citaplus/services/booking-service/internal/writer"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

var _ writer.Store = (*AppointmentRepository)(nil)

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo}
}

// AppointmentEvent is the payload of the booked and updated outbox events.
type AppointmentEvent struct {
	AppointmentID string    `json:"appointment_id"`
	ClientID      string    `json:"client_id"`
	BusinessID    string    `json:"business_id"`
	ServiceID     string    `json:"service_id"`
	LocationID    string    `json:"location_id,omitempty"`
	EmployeeID    string    `json:"employee_id,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	Price         string    `json:"price"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func newAppointmentEvent(appt *model.Appointment) AppointmentEvent {
	return AppointmentEvent{
		AppointmentID: appt.ID,
		ClientID:      appt.ClientID,
		BusinessID:    appt.BusinessID,
		ServiceID:     appt.ServiceID,
		LocationID:    appt.LocationID,
		EmployeeID:    appt.EmployeeID,
		StartTime:     appt.StartTime.UTC(),
		EndTime:       appt.EndTime.UTC(),
		Status:        appt.Status,
		Price:         appt.Price.StringFixed(2),
		Currency:      appt.Currency,
		OccurredAt:    appt.UpdatedAt.UTC(),
	}
}

// Create inserts appt and its booked event in one transaction.
func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(client_id, business_id, service_id, location_id, employee_id, start_time, end_time,
			 status, price, currency, notes, created_at, updated_at)
		VALUES ($1, $2::text::uuid, $3::text::uuid, $4::text::uuid, $5::text::uuid, $6, $7, $8, $9::text::numeric, $10, NULLIF($11, ''), $12, $12)
		RETURNING id::text
	`, appt.ClientID, appt.BusinessID, appt.ServiceID, nullable(appt.LocationID), nullable(appt.EmployeeID),
		appt.StartTime, appt.EndTime, appt.Status, appt.Price.String(), currencyOrDefault(appt.Currency),
		appt.Notes, appt.CreatedAt).Scan(&appt.ID)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err := r.appendEvent(ctx, tx, appt, outbox.EventAppointmentBooked); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update rewrites the client's appointment in place. Status and creation
// time are kept and copied back into appt.
func (r *AppointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		UPDATE appointments
		SET business_id = $3::text::uuid,
			service_id = $4::text::uuid,
			location_id = $5::text::uuid,
			employee_id = $6::text::uuid,
			start_time = $7,
			end_time = $8,
			price = $9::text::numeric,
			currency = $10,
			notes = NULLIF($11, ''),
			updated_at = $12
		WHERE id::text = $1 AND client_id = $2
		RETURNING status, created_at
	`, appt.ID, appt.ClientID, appt.BusinessID, appt.ServiceID, nullable(appt.LocationID), nullable(appt.EmployeeID),
		appt.StartTime, appt.EndTime, appt.Price.String(), currencyOrDefault(appt.Currency),
		appt.Notes, appt.UpdatedAt).Scan(&appt.Status, &appt.CreatedAt)
	if db.IsNotFound(err) {
		return fmt.Errorf("appointment %s: %w", appt.ID, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}

	if err := r.appendEvent(ctx, tx, appt, outbox.EventAppointmentUpdated); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) appendEvent(ctx context.Context, tx pgx.Tx, appt *model.Appointment, eventType string) error {
	evt, err := outbox.NewEvent(outbox.AggregateAppointment, appt.ID, eventType, newAppointmentEvent(appt))
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("write outbox event: %w", err)
	}
	return nil
}

const appointmentColumns = `
	id::text, client_id, business_id::text, service_id::text,
	COALESCE(location_id::text, ''), COALESCE(employee_id::text, ''),
	start_time, end_time, status, price::text, currency, COALESCE(notes, ''),
	created_at, updated_at`

func scanAppointment(row pgx.CollectableRow) (model.Appointment, error) {
	var (
		appt  model.Appointment
		price string
	)
	err := row.Scan(&appt.ID, &appt.ClientID, &appt.BusinessID, &appt.ServiceID,
		&appt.LocationID, &appt.EmployeeID, &appt.StartTime, &appt.EndTime, &appt.Status,
		&price, &appt.Currency, &appt.Notes, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.Price, err = decimal.NewFromString(price); err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %s price: %w", appt.ID, err)
	}
	return appt, nil
}

// Get returns the client's appointment.
func (r *AppointmentRepository) Get(ctx context.Context, clientID, id string) (model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id::text = $1 AND client_id = $2
	`, id, clientID)
	if err != nil {
		return model.Appointment{}, err
	}
	appt, err := pgx.CollectExactlyOneRow(rows, scanAppointment)
	if db.IsNotFound(err) {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, apperr.ErrNotFound)
	}
	return appt, err
}

func (r *AppointmentRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE client_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, clientID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanAppointment)
}

// BusyIntervals lists the employee's pending and confirmed appointments that
// overlap [from, to), skipping excludeID.
func (r *AppointmentRepository) BusyIntervals(ctx context.Context, employeeID string, from, to time.Time, excludeID string) ([]model.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE employee_id::text = $1
			AND status IN ('pending', 'confirmed')
			AND start_time < $3
			AND end_time > $2
			AND id::text <> $4
		ORDER BY start_time ASC
	`, employeeID, from, to, excludeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Interval, error) {
		var iv model.Interval
		err := row.Scan(&iv.Start, &iv.End)
		return iv, err
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "COP"
	}
	return c
}
