package usage

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

var (
	ErrNotFound         = errors.New("usage record not found")
	ErrStoreUnavailable = errors.New("usage store unavailable")
)

// Ledger stores per-user request counters for day and month buckets
type Ledger interface {
	// Get returns the live record for key, or ErrNotFound when absent or expired
	Get(ctx context.Context, key models.UsageKey) (*models.UsageRecord, error)

	// IncrementAndGet atomically adds one to the counter and returns the new count.
	// An absent or expired counter starts again from one.
	IncrementAndGet(ctx context.Context, key models.UsageKey, expiresAt time.Time) (int64, error)

	// Decrement takes one back from a live counter. It never goes below zero
	// and is a no-op for absent or expired counters.
	Decrement(ctx context.Context, key models.UsageKey) error

	// Close releases any resources held by the ledger
	Close() error
}

// Keys returns the day and month counters charged for a request at t
func Keys(userID string, tier models.Tier, t time.Time) (day, month models.UsageKey, dayEnd, monthEnd time.Time) {
	dayKey, monthKey := models.PeriodKeys(t)
	dayEnd, monthEnd = models.PeriodEnds(t)
	day = models.UsageKey{UserID: userID, Tier: tier, PeriodKey: dayKey}
	month = models.UsageKey{UserID: userID, Tier: tier, PeriodKey: monthKey}
	return day, month, dayEnd, monthEnd
}

// Count returns the live count for key, treating a missing record as zero
func Count(ctx context.Context, l Ledger, key models.UsageKey) (int64, error) {
	record, err := l.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return record.Count, nil
}
