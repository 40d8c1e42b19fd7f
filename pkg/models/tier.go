package models

import "time"

type Tier string

const (
	TierFree       Tier = "FREE"
	TierBasic      Tier = "BASIC"
	TierPro        Tier = "PRO"
	TierEnterprise Tier = "ENTERPRISE"
)

// RateLimit caps requests over a short window, independent of quotas
type RateLimit struct {
	MaxRequests int   `json:"max_requests" mapstructure:"max_requests"`
	WindowMs    int64 `json:"window_ms" mapstructure:"window_ms"`
}

func (r RateLimit) Window() time.Duration {
	return time.Duration(r.WindowMs) * time.Millisecond
}

// TierConfig holds the limits and cache freshness for a subscription tier
type TierConfig struct {
	Tier                Tier      `json:"tier"`
	DailyRequestLimit   int64     `json:"daily_request_limit"`
	MonthlyRequestLimit int64     `json:"monthly_request_limit"`
	CacheTTLSeconds     int       `json:"cache_ttl_seconds"`
	RateLimit           RateLimit `json:"rate_limit"`
}

func (t TierConfig) CacheTTL() time.Duration {
	return time.Duration(t.CacheTTLSeconds) * time.Second
}
