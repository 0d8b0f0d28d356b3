package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	if !rl.allow("ip:1", now) || !rl.allow("ip:1", now) {
		t.Fatal("expected first two requests to pass")
	}
	if rl.allow("ip:1", now) {
		t.Fatal("expected third request to be limited")
	}
	if !rl.allow("ip:2", now) {
		t.Fatal("expected separate budget per key")
	}
	if !rl.allow("ip:1", now.Add(2*time.Minute)) {
		t.Fatal("expected budget to reset after the window")
	}
}

func TestClientKeyPrefersUser(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := clientKey(r); got != "ip:10.0.0.1" {
		t.Fatalf("unexpected key %q", got)
	}
	r.Header.Set(UserIDHeader, "user-9")
	if got := clientKey(r); got != "user:user-9" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestChainOrderAndRecover(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), mark("a"), nil, mark("b"), WithRecover(discardLogger()))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected order %v", order)
	}
}
