package tier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

func TestTable_LookupDefaults(t *testing.T) {
	table, err := NewTable()
	require.NoError(t, err)

	tests := []struct {
		name      string
		input     string
		tier      models.Tier
		daily     int64
		monthly   int64
		ttl       time.Duration
		rateLimit int
	}{
		{name: "free", input: "FREE", tier: models.TierFree, daily: 10, monthly: 100, ttl: time.Hour, rateLimit: 5},
		{name: "basic lower case", input: "basic", tier: models.TierBasic, daily: 100, monthly: 2000, ttl: 30 * time.Minute, rateLimit: 20},
		{name: "pro", input: "PRO", tier: models.TierPro, daily: 1000, monthly: 20000, ttl: 15 * time.Minute, rateLimit: 60},
		{name: "enterprise", input: "ENTERPRISE", tier: models.TierEnterprise, daily: 10000, monthly: 250000, ttl: 5 * time.Minute, rateLimit: 300},
		{name: "unknown falls back to free", input: "GOLD", tier: models.TierFree, daily: 10, monthly: 100, ttl: time.Hour, rateLimit: 5},
		{name: "empty falls back to free", input: "", tier: models.TierFree, daily: 10, monthly: 100, ttl: time.Hour, rateLimit: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := table.Lookup(tt.input)

			assert.Equal(t, tt.tier, cfg.Tier)
			assert.Equal(t, tt.daily, cfg.DailyRequestLimit)
			assert.Equal(t, tt.monthly, cfg.MonthlyRequestLimit)
			assert.Equal(t, tt.ttl, cfg.CacheTTL())
			assert.Equal(t, tt.rateLimit, cfg.RateLimit.MaxRequests)
			assert.Equal(t, time.Minute, cfg.RateLimit.Window())
		})
	}
}

func TestTable_HigherTiersHaveShorterTTL(t *testing.T) {
	table, err := NewTable()
	require.NoError(t, err)

	all := table.All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i].CacheTTLSeconds, all[i-1].CacheTTLSeconds)
		assert.Greater(t, all[i].DailyRequestLimit, all[i-1].DailyRequestLimit)
	}
}

func TestNewTable_Overrides(t *testing.T) {
	table, err := NewTable(models.TierConfig{Tier: "pro", DailyRequestLimit: 5000})
	require.NoError(t, err)

	pro := table.Lookup("PRO")
	assert.Equal(t, int64(5000), pro.DailyRequestLimit)
	assert.Equal(t, int64(20000), pro.MonthlyRequestLimit, "unset fields keep defaults")

	_, err = NewTable(models.TierConfig{Tier: "GOLD", DailyRequestLimit: 1})
	assert.ErrorIs(t, err, ErrInvalidTier)
}

func TestParse(t *testing.T) {
	tier, err := Parse(" enterprise ")
	require.NoError(t, err)
	assert.Equal(t, models.TierEnterprise, tier)

	_, err = Parse("GOLD")
	assert.ErrorIs(t, err, ErrInvalidTier)
}
