package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/citaplus/citaplus/libs/db"
	"github.com/citaplus/citaplus/services/analytics-service/internal/events"
	"github.com/citaplus/citaplus/services/analytics-service/internal/inbox"
	"github.com/jackc/pgx/v5"
)

// MetricsRepository writes raw events and daily rollups. Every write claims
// the event id in the inbox within the same transaction, so a redelivered
// event is a no-op.
type MetricsRepository struct {
	pool  *db.Pool
	inbox *inbox.Repository
	zone  *time.Location
}

func NewMetricsRepository(pool *db.Pool, inboxRepo *inbox.Repository, zone *time.Location) *MetricsRepository {
	if zone == nil {
		zone = time.UTC
	}
	return &MetricsRepository{pool: pool, inbox: inboxRepo, zone: zone}
}

// RecordFunnel stores evt and reports false for duplicates.
func (r *MetricsRepository) RecordFunnel(ctx context.Context, evt events.Funnel) (bool, error) {
	return r.inTx(ctx, evt.EventID, evt.Name, func(tx pgx.Tx) error {
		var amount *string
		if evt.Amount != nil {
			s := evt.Amount.String()
			amount = &s
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO booking_funnel_events
				(event_id, name, session_id, client_id, business_id, service_id, employee_id, location_id,
				 step, appointment_id, amount, currency, duration_minutes, occurred_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''),
				NULLIF($9, ''), NULLIF($10, ''), $11::text::numeric, NULLIF($12, ''), NULLIF($13, 0), $14)
		`, evt.EventID, evt.Name, evt.SessionID, evt.ClientID, evt.BusinessID, evt.ServiceID, evt.EmployeeID,
			evt.LocationID, evt.Step, evt.AppointmentID, amount, evt.Currency, evt.DurationMinutes, evt.OccurredAt.UTC()); err != nil {
			return fmt.Errorf("insert funnel event: %w", err)
		}

		started, completed, abandoned := funnelIncrements(evt.Name)
		if started+completed+abandoned == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO daily_funnel_metrics (business_id, day, started_count, completed_count, abandoned_count)
			VALUES ($1, $2::date, $3, $4, $5)
			ON CONFLICT (business_id, day)
			DO UPDATE SET started_count = daily_funnel_metrics.started_count + EXCLUDED.started_count,
			              completed_count = daily_funnel_metrics.completed_count + EXCLUDED.completed_count,
			              abandoned_count = daily_funnel_metrics.abandoned_count + EXCLUDED.abandoned_count,
			              updated_at = now()
		`, evt.BusinessID, events.Day(evt.OccurredAt, r.zone), started, completed, abandoned); err != nil {
			return fmt.Errorf("update daily funnel metrics: %w", err)
		}
		return nil
	})
}

// RecordBooked bumps the daily booking count and revenue of the business.
func (r *MetricsRepository) RecordBooked(ctx context.Context, evt events.Booked) (bool, error) {
	return r.inTx(ctx, evt.EventID, events.TopicBooked, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO daily_appointment_metrics (business_id, day, booked_count, revenue)
			VALUES ($1, $2::date, 1, $3::text::numeric)
			ON CONFLICT (business_id, day)
			DO UPDATE SET booked_count = daily_appointment_metrics.booked_count + 1,
			              revenue = daily_appointment_metrics.revenue + EXCLUDED.revenue,
			              updated_at = now()
		`, evt.BusinessID, events.Day(evt.StartTime, r.zone), evt.Price.String()); err != nil {
			return fmt.Errorf("update daily appointment metrics: %w", err)
		}
		return nil
	})
}

func (r *MetricsRepository) inTx(ctx context.Context, eventID, eventType string, fn func(pgx.Tx) error) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fresh, err := r.inbox.Record(ctx, tx, eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("inbox: %w", err)
	}
	if !fresh {
		return false, nil
	}
	if err := fn(tx); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func funnelIncrements(name string) (started, completed, abandoned int) {
	switch name {
	case events.FunnelStarted:
		return 1, 0, 0
	case events.FunnelCompleted:
		return 0, 1, 0
	case events.FunnelAbandoned:
		return 0, 0, 1
	}
	return 0, 0, 0
}
