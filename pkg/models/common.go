package models

import (
	"time"

	"github.com/google/uuid"
)

// NewUUID generates a new UUID string
func NewUUID() string {
	return uuid.New().String()
}

// PeriodKeys returns the UTC day and month bucket keys for t
func PeriodKeys(t time.Time) (day, month string) {
	u := t.UTC()
	return "day:" + u.Format("2006-01-02"), "month:" + u.Format("2006-01")
}

// PeriodEnds returns the instants at which the day and month buckets for t expire
func PeriodEnds(t time.Time) (dayEnd, monthEnd time.Time) {
	u := t.UTC()
	dayStart := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	return dayStart.AddDate(0, 0, 1), monthStart.AddDate(0, 1, 0)
}
