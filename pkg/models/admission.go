package models

import "time"

type AdmissionReason string

const (
	ReasonOK               AdmissionReason = "OK"
	ReasonLimitExceeded    AdmissionReason = "LIMIT_EXCEEDED"
	ReasonRateLimited      AdmissionReason = "RATE_LIMITED"
	ReasonStoreUnavailable AdmissionReason = "STORE_UNAVAILABLE"
)

// AdmissionResult is returned to the HTTP layer before any inference call
type AdmissionResult struct {
	Allowed          bool            `json:"allowed"`
	Reason           AdmissionReason `json:"reason"`
	Tier             Tier            `json:"tier"`
	RemainingDaily   int64           `json:"remaining_daily"`
	RemainingMonthly int64           `json:"remaining_monthly"`
	RetryAfter       time.Duration   `json:"retry_after,omitempty"`
}

// UsageSnapshot is the ledger state after a committed request
type UsageSnapshot struct {
	UserID       string `json:"user_id"`
	Tier         Tier   `json:"tier"`
	DailyCount   int64  `json:"daily_count"`
	MonthlyCount int64  `json:"monthly_count"`
}
