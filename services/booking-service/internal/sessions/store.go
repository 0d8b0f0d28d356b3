// Package sessions keeps wizard instances in memory between HTTP requests.
package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citaplus/citaplus/libs/apperr"
	"github.com/citaplus/citaplus/services/booking-service/internal/wizard"
	"github.com/google/uuid"
)

var ErrForbidden = errors.New("session belongs to another client")

// Session is one open wizard. All access to the wizard goes through Do,
// which serializes actions on the session.
type Session struct {
	ID       string
	ClientID string

	mu       sync.Mutex
	wizard   *wizard.Wizard
	toasts   *Toasts
	lastSeen atomic.Int64
}

// Do runs fn with exclusive access to the session's wizard.
func (s *Session) Do(fn func(w *wizard.Wizard)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.wizard)
}

// Drain returns and clears the pending notifications.
func (s *Session) Drain() []wizard.Message {
	return s.toasts.Drain()
}

func (s *Session) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

func (s *Session) idleSince() time.Time { return time.Unix(0, s.lastSeen.Load()) }

// Toasts buffers notifications until the next response is written.
type Toasts struct {
	mu    sync.Mutex
	items []wizard.Message
}

func (t *Toasts) Notify(_ context.Context, msg wizard.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, msg)
}

func (t *Toasts) Drain() []wizard.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.items
	t.items = nil
	if out == nil {
		out = []wizard.Message{}
	}
	return out
}

// Store manages sessions in memory. Sessions idle longer than ttl are closed
// by Sweep.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Create registers a session built by build. build receives the session id
// and the notifier the wizard must report to.
func (st *Store) Create(clientID string, build func(id string, notifier wizard.Notifier) *wizard.Wizard) *Session {
	sess := &Session{
		ID:       uuid.NewString(),
		ClientID: clientID,
		toasts:   &Toasts{},
	}
	sess.touch(st.now())
	sess.wizard = build(sess.ID, sess.toasts)

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get returns the session owned by clientID.
func (st *Store) Get(id, clientID string) (*Session, error) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if sess.ClientID != clientID {
		return nil, ErrForbidden
	}
	sess.touch(st.now())
	return sess, nil
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep closes and removes idle sessions, returning how many were removed.
func (st *Store) Sweep(ctx context.Context) int {
	cutoff := st.now().Add(-st.ttl)

	st.mu.Lock()
	var expired []*Session
	for id, sess := range st.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, sess)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, sess := range expired {
		sess.Do(func(w *wizard.Wizard) { w.Close(ctx) })
	}
	if len(expired) > 0 {
		st.logger.Info("expired wizard sessions", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep(ctx)
		}
	}
}
