package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type execFunc func() error

func (f execFunc) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), f()
}

func TestRecord(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	ok, err := repo.Record(ctx, execFunc(func() error { return nil }), "e1", "booking_started")
	if err != nil || !ok {
		t.Fatalf("expected first delivery to be claimed, got %v %v", ok, err)
	}

	dup := execFunc(func() error { return &pgconn.PgError{Code: "23505"} })
	ok, err = repo.Record(ctx, dup, "e1", "booking_started")
	if err != nil || ok {
		t.Fatalf("expected duplicate to be skipped, got %v %v", ok, err)
	}

	boom := errors.New("connection reset")
	if _, err := repo.Record(ctx, execFunc(func() error { return boom }), "e2", "x"); !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
}
