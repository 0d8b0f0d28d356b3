package inbox

import (
	"context"

	"github.com/citaplus/citaplus/libs/db"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by both *db.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Record claims eventID. It reports false when the event was already seen.
func (r *Repository) Record(ctx context.Context, q Execer, eventID, eventType string) (bool, error) {
	_, err := q.Exec(ctx, `
		INSERT INTO analytics_inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}
	if db.IsUniqueViolation(err) {
		return false, nil
	}
	return false, err
}
