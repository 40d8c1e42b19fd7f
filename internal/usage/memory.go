package usage

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]*models.UsageRecord
	failure error
	now     func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: make(map[string]*models.UsageRecord),
		now:     time.Now,
	}
}

func (l *MemoryLedger) Get(ctx context.Context, key models.UsageKey) (*models.UsageRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failure != nil {
		return nil, l.failure
	}

	record, ok := l.records[key.String()]
	if !ok || record.IsExpired(l.now()) {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (l *MemoryLedger) IncrementAndGet(ctx context.Context, key models.UsageKey, expiresAt time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failure != nil {
		return 0, l.failure
	}

	now := l.now()
	record, ok := l.records[key.String()]
	if !ok || record.IsExpired(now) {
		record = &models.UsageRecord{
			UserID:    key.UserID,
			Tier:      key.Tier,
			PeriodKey: key.PeriodKey,
			CreatedAt: now,
		}
		l.records[key.String()] = record
	}

	record.Count++
	record.UpdatedAt = now
	expires := expiresAt
	record.ExpiresAt = &expires

	return record.Count, nil
}

func (l *MemoryLedger) Decrement(ctx context.Context, key models.UsageKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failure != nil {
		return l.failure
	}

	now := l.now()
	record, ok := l.records[key.String()]
	if !ok || record.IsExpired(now) || record.Count == 0 {
		return nil
	}
	record.Count--
	record.UpdatedAt = now
	return nil
}

// SetFailure makes every call fail with err; nil clears it
func (l *MemoryLedger) SetFailure(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failure = err
}

func (l *MemoryLedger) Close() error {
	return nil
}
