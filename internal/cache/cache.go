package cache

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

var (
	ErrMiss             = errors.New("cache miss")
	ErrStoreUnavailable = errors.New("cache store unavailable")
	ErrInvalidEntry     = errors.New("invalid cache entry")
)

// Cache stores computed results by fingerprint. Entries are only
// invalidated by TTL.
type Cache interface {
	// Get returns ErrMiss when the entry is absent or expired
	Get(ctx context.Context, fingerprint string) (*models.CacheEntry, error)
	Put(ctx context.Context, entry *models.CacheEntry, ttl time.Duration) error
	Close() error
}

func validate(entry *models.CacheEntry, ttl time.Duration) error {
	if entry == nil || entry.Fingerprint == "" {
		return ErrInvalidEntry
	}
	if ttl <= 0 {
		return errors.Join(ErrInvalidEntry, errors.New("ttl must be positive"))
	}
	return nil
}

// stamp fills StoredAt and ExpiresAt from now and ttl
func stamp(entry *models.CacheEntry, now time.Time, ttl time.Duration) models.CacheEntry {
	stored := *entry
	stored.StoredAt = now
	stored.ExpiresAt = now.Add(ttl)
	return stored
}
