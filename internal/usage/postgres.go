package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

// PostgresLedger keeps counters in the usage_counters table. Increments are
// a single upsert so concurrent first writes for a key both count.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Get(ctx context.Context, key models.UsageKey) (*models.UsageRecord, error) {
	query := `
		SELECT user_id, period_key, tier, count, created_at, updated_at, expires_at
		FROM usage_counters
		WHERE user_id = $1 AND period_key = $2
		  AND (expires_at IS NULL OR expires_at > NOW())`

	var r models.UsageRecord
	var tier string
	var expiresAt sql.NullTime
	err := l.db.QueryRowContext(ctx, query, key.UserID, key.PeriodKey).Scan(
		&r.UserID, &r.PeriodKey, &tier, &r.Count, &r.CreatedAt, &r.UpdatedAt, &expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	r.Tier = models.Tier(tier)
	if expiresAt.Valid {
		r.ExpiresAt = &expiresAt.Time
	}
	return &r, nil
}

func (l *PostgresLedger) IncrementAndGet(ctx context.Context, key models.UsageKey, expiresAt time.Time) (int64, error) {
	query := `
		INSERT INTO usage_counters (user_id, period_key, tier, count, expires_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (user_id, period_key) DO UPDATE SET
			count = CASE
				WHEN usage_counters.expires_at IS NOT NULL AND usage_counters.expires_at <= NOW() THEN 1
				ELSE usage_counters.count + 1
			END,
			tier = EXCLUDED.tier,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING count`

	var count int64
	err := l.db.QueryRowContext(ctx, query, key.UserID, key.PeriodKey, string(key.Tier), expiresAt).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

func (l *PostgresLedger) Decrement(ctx context.Context, key models.UsageKey) error {
	query := `
		UPDATE usage_counters
		SET count = count - 1, updated_at = NOW()
		WHERE user_id = $1 AND period_key = $2 AND count > 0
		  AND (expires_at IS NULL OR expires_at > NOW())`

	if _, err := l.db.ExecContext(ctx, query, key.UserID, key.PeriodKey); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// PurgeExpired deletes counters whose period has ended
func (l *PostgresLedger) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM usage_counters WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return res.RowsAffected()
}

// Close is a no-op; the connection pool is owned by the caller
func (l *PostgresLedger) Close() error {
	return nil
}
