package cache

import (
	"context"
	"time"
)

// Tiered reads through a fast local cache to a shared one. Hits in the shared
// tier are copied into the local tier for at most localTTL.
type Tiered struct {
	local    Cache
	shared   Cache
	localTTL time.Duration
}

func NewTiered(local, shared Cache, localTTL time.Duration) *Tiered {
	return &Tiered{local: local, shared: shared, localTTL: localTTL}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := t.local.Get(ctx, key); err == nil && ok {
		return v, true, nil
	}
	v, ok, err := t.shared.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.local.Set(ctx, key, v, t.localTTL)
	return v, true, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	localTTL := t.localTTL
	if ttl < localTTL {
		localTTL = ttl
	}
	_ = t.local.Set(ctx, key, value, localTTL)
	return t.shared.Set(ctx, key, value, ttl)
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	_ = t.local.Delete(ctx, key)
	return t.shared.Delete(ctx, key)
}
