package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

type MemoryCacheConfig struct {
	MaxEntries uint64
}

// MemoryCache keeps entries in a process-local ttlcache. Hits do not
// extend an entry's lifetime.
type MemoryCache struct {
	items *ttlcache.Cache[string, models.CacheEntry]
	now   func() time.Time
}

func NewMemoryCache(cfg MemoryCacheConfig) *MemoryCache {
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 10000
	}

	items := ttlcache.New[string, models.CacheEntry](
		ttlcache.WithCapacity[string, models.CacheEntry](cfg.MaxEntries),
		ttlcache.WithDisableTouchOnHit[string, models.CacheEntry](),
	)
	go items.Start()

	return &MemoryCache{items: items, now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, fingerprint string) (*models.CacheEntry, error) {
	item := c.items.Get(fingerprint)
	if item == nil {
		return nil, ErrMiss
	}

	entry := item.Value()
	if entry.IsExpired(c.now()) {
		return nil, ErrMiss
	}
	return &entry, nil
}

func (c *MemoryCache) Put(ctx context.Context, entry *models.CacheEntry, ttl time.Duration) error {
	if err := validate(entry, ttl); err != nil {
		return err
	}
	c.items.Set(entry.Fingerprint, stamp(entry, c.now(), ttl), ttl)
	return nil
}

func (c *MemoryCache) Len() int {
	return c.items.Len()
}

func (c *MemoryCache) Close() error {
	c.items.Stop()
	return nil
}
