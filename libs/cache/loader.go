package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader implements get-or-compute over a Cache. Concurrent misses for one key
// share a single compute call. Cache failures are logged and bypassed.
type Loader struct {
	cache  Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewLoader returns a loader over c. A nil c disables caching.
func NewLoader(c Cache, logger *slog.Logger) *Loader {
	return &Loader{cache: c, logger: logger}
}

// GetOrCompute returns the cached value for key, or runs compute and stores
// its result for ttl. Errors from compute are returned and never cached.
func GetOrCompute[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if l == nil || l.cache == nil || ttl <= 0 {
		return compute(ctx)
	}

	var zero T
	if raw, ok, err := l.cache.Get(ctx, key); err != nil {
		l.logger.Warn("cache get failed", "key", key, "err", err)
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		l.logger.Warn("cache entry undecodable", "key", key)
	}

	res, err, _ := l.group.Do(key, func() (any, error) {
		// The computation is shared with other waiters; it must outlive this caller.
		shared := context.WithoutCancel(ctx)
		v, err := compute(shared)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(v); err == nil {
			if err := l.cache.Set(shared, key, raw, ttl); err != nil {
				l.logger.Warn("cache set failed", "key", key, "err", err)
			}
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}
