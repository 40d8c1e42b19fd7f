package config

import (
	"github.com/OldStager01/capacity-controller/pkg/models"
)

func (t TierConfig) ToModel() models.TierConfig {
	return models.TierConfig{
		Tier:                models.Tier(t.Name),
		DailyRequestLimit:   t.DailyRequestLimit,
		MonthlyRequestLimit: t.MonthlyRequestLimit,
		CacheTTLSeconds:     t.CacheTTLSeconds,
		RateLimit: models.RateLimit{
			MaxRequests: t.RateLimitRequests,
			WindowMs:    t.RateLimitWindowMs,
		},
	}
}

// TierOverrides returns the configured tiers in the form tier.NewTable takes
func (c *Config) TierOverrides() []models.TierConfig {
	out := make([]models.TierConfig, 0, len(c.Tiers))
	for _, t := range c.Tiers {
		out = append(out, t.ToModel())
	}
	return out
}
