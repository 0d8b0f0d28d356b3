package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/citaplus/citaplus/libs/cache"
	"github.com/citaplus/citaplus/libs/httpx"
	"github.com/citaplus/citaplus/services/search-service/internal/resolver"
)

type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (resolver.Response, error)
}

type SearchHandler struct {
	resolver Resolver
	loader   *cache.Loader
	ttl      time.Duration
	logger   *slog.Logger
}

// NewSearchHandler serves resolver results, cached through loader for ttl.
// A nil loader or zero ttl disables caching.
func NewSearchHandler(r Resolver, loader *cache.Loader, ttl time.Duration, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{resolver: r, loader: loader, ttl: ttl, logger: logger}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req resolver.Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Type != "" && !req.Type.Valid() {
		http.Error(w, "invalid search type", http.StatusBadRequest)
		return
	}
	if req.MinRating != nil && (*req.MinRating < 0 || *req.MinRating > 5) {
		http.Error(w, "minRating must be between 0 and 5", http.StatusBadRequest)
		return
	}
	if req.MinReviewCount != nil && *req.MinReviewCount < 0 {
		http.Error(w, "minReviewCount must not be negative", http.StatusBadRequest)
		return
	}
	if req.ClientID == "" {
		req.ClientID = strings.TrimSpace(r.Header.Get(httpx.UserIDHeader))
	}
	req = req.Normalize()

	resp, err := h.resolve(r.Context(), req)
	if err != nil {
		h.logger.Error("search failed",
			"err", err,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"type", req.Type,
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *SearchHandler) resolve(ctx context.Context, req resolver.Request) (resolver.Response, error) {
	// The caller never changes the result, so it stays out of the key.
	keyReq := req
	keyReq.ClientID = ""
	key, err := cache.Key("search", keyReq)
	if err != nil {
		return resolver.Response{}, fmt.Errorf("cache key: %w", err)
	}
	return cache.GetOrCompute(ctx, h.loader, key, h.ttl, func(ctx context.Context) (resolver.Response, error) {
		return h.resolver.Resolve(ctx, req)
	})
}
