package models

import (
	"fmt"
	"time"
)

type PeriodKind string

const (
	PeriodDay   PeriodKind = "day"
	PeriodMonth PeriodKind = "month"
)

// UsageKey addresses one counter in the usage ledger
type UsageKey struct {
	UserID    string `json:"user_id"`
	Tier      Tier   `json:"tier"`
	PeriodKey string `json:"period_key"`
}

func (k UsageKey) String() string {
	return fmt.Sprintf("usage:%s:%s", k.UserID, k.PeriodKey)
}

// UsageRecord is a per-user counter for one day or month bucket
type UsageRecord struct {
	UserID    string     `json:"user_id"`
	Tier      Tier       `json:"tier"`
	PeriodKey string     `json:"period_key"`
	Count     int64      `json:"count"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (r *UsageRecord) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}
