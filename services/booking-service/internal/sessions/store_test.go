package sessions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/citaplus/citaplus/libs/apperr"
	"github.com/citaplus/citaplus/services/booking-service/internal/analytics"
	"github.com/citaplus/citaplus/services/booking-service/internal/wizard"
)

func newTestStore(now *time.Time) *Store {
	st := NewStore(10*time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	st.now = func() time.Time { return *now }
	return st
}

func buildWizard(rec *analytics.Recorder) func(string, wizard.Notifier) *wizard.Wizard {
	return func(id string, n wizard.Notifier) *wizard.Wizard {
		w := wizard.New(wizard.Deps{Notifier: n, Tracker: rec}, wizard.Config{SessionID: id, ClientID: "client-1"})
		w.Open(context.Background())
		return w
	}
}

func TestStoreOwnership(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	st := newTestStore(&now)
	sess := st.Create("client-1", buildWizard(&analytics.Recorder{}))

	got, err := st.Get(sess.ID, "client-1")
	if err != nil || got != sess {
		t.Fatalf("expected owner lookup to succeed, got %v", err)
	}
	if _, err := st.Get(sess.ID, "client-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := st.Get("missing", "client-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	st.Delete(sess.ID)
	if st.Len() != 0 {
		t.Fatalf("expected empty store, got %d", st.Len())
	}
}

func TestSweepClosesIdleSessions(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	st := newTestStore(&now)
	rec := &analytics.Recorder{}
	idle := st.Create("client-1", buildWizard(rec))

	now = now.Add(8 * time.Minute)
	active := st.Create("client-1", buildWizard(rec))
	if _, err := st.Get(active.ID, "client-1"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	now = now.Add(5 * time.Minute)
	if n := st.Sweep(context.Background()); n != 1 {
		t.Fatalf("expected one expired session, got %d", n)
	}
	if _, err := st.Get(idle.ID, "client-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected idle session removed, got %v", err)
	}
	if _, err := st.Get(active.ID, "client-1"); err != nil {
		t.Fatalf("expected active session kept, got %v", err)
	}
	if rec.Count(analytics.EventAbandoned) != 1 {
		t.Fatalf("expected abandonment tracked for the expired session, got %d", rec.Count(analytics.EventAbandoned))
	}
}

func TestSessionDoSerializesAndDrainsToasts(t *testing.T) {
	now := time.Now()
	st := newTestStore(&now)
	sess := st.Create("client-1", buildWizard(&analytics.Recorder{}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Do(func(w *wizard.Wizard) { w.Next(context.Background()) })
		}()
	}
	wg.Wait()

	msgs := sess.Drain()
	if len(msgs) != 10 {
		t.Fatalf("expected 10 validation messages, got %d", len(msgs))
	}
	if msgs[0].Key != wizard.MsgBusinessRequired {
		t.Fatalf("unexpected message %+v", msgs[0])
	}
	if again := sess.Drain(); len(again) != 0 {
		t.Fatalf("expected drained toasts, got %v", again)
	}
}
