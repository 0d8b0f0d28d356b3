package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/citaplus/citaplus/libs/cache"
	"github.com/citaplus/citaplus/libs/httpx"
	"github.com/citaplus/citaplus/services/search-service/internal/resolver"
)

type fakeResolver struct {
	mu    sync.Mutex
	calls []resolver.Request
	resp  resolver.Response
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, req resolver.Request) (resolver.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

type mapCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func post(h http.HandlerFunc, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/search", bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rw := httptest.NewRecorder()
	h(rw, req)
	return rw
}

func TestSearchReturnsResolverResponse(t *testing.T) {
	fr := &fakeResolver{resp: resolver.Response{
		Businesses: []resolver.BusinessSummary{{ID: "b1", Name: "Zen Spa"}},
		Total:      1,
	}}
	h := NewSearchHandler(fr, nil, 0, discardLogger())

	rw := post(h.Search, `{"type":"businesses","term":"spa","preferredCityName":"Bogotá","page":2,"pageSize":10}`,
		map[string]string{httpx.UserIDHeader: "client-1"})
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rw.Code, rw.Body.String())
	}

	var got resolver.Response
	if err := json.NewDecoder(rw.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 1 || got.Businesses[0].ID != "b1" {
		t.Fatalf("unexpected response %+v", got)
	}
	if len(fr.calls) != 1 {
		t.Fatalf("expected one resolver call, got %d", len(fr.calls))
	}
	call := fr.calls[0]
	if call.Type != resolver.TypeBusinesses || call.Page != 2 || call.PageSize != 10 || call.ClientID != "client-1" {
		t.Fatalf("unexpected resolver request %+v", call)
	}
}

func TestSearchErrorIsGeneric500(t *testing.T) {
	fr := &fakeResolver{err: errors.New(`pq: relation "locations" does not exist`)}
	h := NewSearchHandler(fr, nil, 0, discardLogger())

	rw := post(h.Search, `{"term":""}`, nil)
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
	if body := rw.Body.String(); body != "internal server error\n" {
		t.Fatalf("expected generic body, got %q", body)
	}
}

func TestSearchValidation(t *testing.T) {
	h := NewSearchHandler(&fakeResolver{}, nil, 0, discardLogger())
	for _, body := range []string{
		`{"type":"everything","term":"x"}`,
		`{"minRating":7}`,
		`{"minReviewCount":-1}`,
		`{not json`,
	} {
		if rw := post(h.Search, body, nil); rw.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rw.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/search", nil)
	rw := httptest.NewRecorder()
	h.Search(rw, req)
	if rw.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rw.Code)
	}
}

func TestSearchCachesAcrossClients(t *testing.T) {
	fr := &fakeResolver{resp: resolver.Response{Total: 3}}
	loader := cache.NewLoader(&mapCache{items: map[string][]byte{}}, discardLogger())
	h := NewSearchHandler(fr, loader, time.Minute, discardLogger())

	body := `{"preferredCityId":"c-bog"}`
	for _, client := range []string{"client-1", "client-2"} {
		if rw := post(h.Search, body, map[string]string{httpx.UserIDHeader: client}); rw.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rw.Code)
		}
	}
	if len(fr.calls) != 1 {
		t.Fatalf("expected cached second call, resolver ran %d times", len(fr.calls))
	}

	if rw := post(h.Search, `{"preferredCityId":"c-med"}`, nil); rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if len(fr.calls) != 2 {
		t.Fatalf("expected a miss for a different area, got %d calls", len(fr.calls))
	}
}

func TestSearchErrorsAreNotCached(t *testing.T) {
	fr := &fakeResolver{err: errors.New("timeout")}
	loader := cache.NewLoader(&mapCache{items: map[string][]byte{}}, discardLogger())
	h := NewSearchHandler(fr, loader, time.Minute, discardLogger())

	_ = post(h.Search, `{}`, nil)
	fr.err = nil
	if rw := post(h.Search, `{}`, nil); rw.Code != http.StatusOK {
		t.Fatalf("expected recovery after failure, got %d", rw.Code)
	}
}
