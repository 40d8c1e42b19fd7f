package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/capacity-controller/pkg/config"
)

// listParams reads the from/to/range/limit query parameters shared by history endpoints
type listParams struct {
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

func newListParams(cfg *config.APIConfig) listParams {
	p := listParams{defaultLimit: 50, maxLimit: 1000, now: time.Now}
	if cfg != nil && cfg.DefaultLimit > 0 {
		p.defaultLimit = cfg.DefaultLimit
	}
	if cfg != nil && cfg.MaxLimit > 0 {
		p.maxLimit = cfg.MaxLimit
	}
	return p
}

// timeRange defaults to the last 24 hours. ?range=7d overrides from relative to to.
func (p listParams) timeRange(c *gin.Context) (time.Time, time.Time) {
	to := p.now()
	from := to.Add(-24 * time.Hour)

	if fromStr := c.Query("from"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			from = parsed
		}
	}
	if toStr := c.Query("to"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			to = parsed
		}
	}
	if rangeStr := c.Query("range"); rangeStr != "" {
		from = to.Add(-parseDuration(rangeStr))
	}

	return from, to
}

func (p listParams) limit(c *gin.Context) int {
	limit := p.defaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = min(parsed, p.maxLimit)
		}
	}
	return limit
}

// parseDuration accepts Go durations plus a day suffix, e.g. "7d"
func parseDuration(s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if len(s) < 2 || s[len(s)-1] != 'd' {
		return 24 * time.Hour
	}
	days, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || days <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(days) * 24 * time.Hour
}
