package ratetable

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL bounds how long a snapshot serves reads before a reload.
const DefaultCacheTTL = 5 * time.Minute

// Cache keeps the latest catalog snapshot in memory. Reads within one
// logical rating session take a single snapshot so concurrent refreshes can
// never make two lookups of the same request diverge. Concurrent reloads
// are collapsed through singleflight.
type Cache struct {
	loader Loader
	ttl    time.Duration

	mu   sync.RWMutex
	snap *Snapshot

	group singleflight.Group
}

func NewCache(loader Loader, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{loader: loader, ttl: ttl}
}

// Current returns a usable snapshot, reloading when none is held or the TTL
// has lapsed. On reload failure a stale snapshot keeps serving; the error is
// returned only when no snapshot exists at all.
func (c *Cache) Current(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	if snap != nil && time.Since(snap.LoadedAt()) < c.ttl {
		return snap, nil
	}

	fresh, err, _ := c.group.Do("reload", func() (interface{}, error) {
		return c.loader.LoadSnapshot(ctx)
	})
	if err != nil {
		if snap != nil {
			zap.L().Warn("rate table reload failed, serving stale snapshot",
				zap.Time("loaded_at", snap.LoadedAt()),
				zap.Error(err))
			return snap, nil
		}
		return nil, err
	}

	newSnap := fresh.(*Snapshot)
	c.mu.Lock()
	c.snap = newSnap
	c.mu.Unlock()
	return newSnap, nil
}

// Invalidate drops the held snapshot so the next read reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

// Refresh reloads the snapshot immediately, used by the scheduled job.
func (c *Cache) Refresh(ctx context.Context) error {
	snap, err := c.loader.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return nil
}
