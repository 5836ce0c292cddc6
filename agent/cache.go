package agent

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a keyed value store with optional expiry handled by the backing.
type Cache[S any] interface {
	Set(ctx context.Context, key string, val S) error
	Get(ctx context.Context, key string) (S, bool, error)
	// Del reports whether the key existed.
	Del(ctx context.Context, key string) (bool, error)
	// Count returns the number of live keys starting with prefix.
	Count(ctx context.Context, prefix string) (int, error)
}

// MemoryCache keeps values in process with a TTL. A ttl <= 0 never expires.
type MemoryCache[S any] struct {
	c *gocache.Cache
}

func NewMemoryCache[S any](ttl time.Duration) *MemoryCache[S] {
	if ttl <= 0 {
		return &MemoryCache[S]{c: gocache.New(gocache.NoExpiration, 0)}
	}
	return &MemoryCache[S]{c: gocache.New(ttl, ttl/2)}
}

func (m *MemoryCache[S]) Set(ctx context.Context, key string, val S) error {
	m.c.Set(key, val, gocache.DefaultExpiration)
	return nil
}

func (m *MemoryCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	var zero S
	v, ok := m.c.Get(key)
	if !ok {
		return zero, false, nil
	}
	val, ok := v.(S)
	if !ok {
		return zero, false, nil
	}
	return val, true, nil
}

func (m *MemoryCache[S]) Del(ctx context.Context, key string) (bool, error) {
	_, ok := m.c.Get(key)
	m.c.Delete(key)
	return ok, nil
}

func (m *MemoryCache[S]) Count(ctx context.Context, prefix string) (int, error) {
	n := 0
	for k := range m.c.Items() {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n, nil
}
