package tier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

var ErrInvalidTier = errors.New("invalid tier")

// Defaults is the built-in tier table. Higher tiers get shorter cache TTLs
// so their results are fresher.
func Defaults() []models.TierConfig {
	return []models.TierConfig{
		{
			Tier:                models.TierFree,
			DailyRequestLimit:   10,
			MonthlyRequestLimit: 100,
			CacheTTLSeconds:     3600,
			RateLimit:           models.RateLimit{MaxRequests: 5, WindowMs: 60000},
		},
		{
			Tier:                models.TierBasic,
			DailyRequestLimit:   100,
			MonthlyRequestLimit: 2000,
			CacheTTLSeconds:     1800,
			RateLimit:           models.RateLimit{MaxRequests: 20, WindowMs: 60000},
		},
		{
			Tier:                models.TierPro,
			DailyRequestLimit:   1000,
			MonthlyRequestLimit: 20000,
			CacheTTLSeconds:     900,
			RateLimit:           models.RateLimit{MaxRequests: 60, WindowMs: 60000},
		},
		{
			Tier:                models.TierEnterprise,
			DailyRequestLimit:   10000,
			MonthlyRequestLimit: 250000,
			CacheTTLSeconds:     300,
			RateLimit:           models.RateLimit{MaxRequests: 300, WindowMs: 60000},
		},
	}
}

// Table is the read-only tier configuration loaded at startup
type Table struct {
	tiers map[models.Tier]models.TierConfig
}

// NewTable builds a table from the defaults with overrides applied on top.
// Zero-valued override fields keep the default.
func NewTable(overrides ...models.TierConfig) (*Table, error) {
	t := &Table{tiers: make(map[models.Tier]models.TierConfig)}
	for _, cfg := range Defaults() {
		t.tiers[cfg.Tier] = cfg
	}

	for _, o := range overrides {
		name, err := Parse(string(o.Tier))
		if err != nil {
			return nil, err
		}
		base := t.tiers[name]
		if o.DailyRequestLimit > 0 {
			base.DailyRequestLimit = o.DailyRequestLimit
		}
		if o.MonthlyRequestLimit > 0 {
			base.MonthlyRequestLimit = o.MonthlyRequestLimit
		}
		if o.CacheTTLSeconds > 0 {
			base.CacheTTLSeconds = o.CacheTTLSeconds
		}
		if o.RateLimit.MaxRequests > 0 {
			base.RateLimit.MaxRequests = o.RateLimit.MaxRequests
		}
		if o.RateLimit.WindowMs > 0 {
			base.RateLimit.WindowMs = o.RateLimit.WindowMs
		}
		t.tiers[name] = base
	}

	return t, nil
}

// Parse accepts a tier name in any case and rejects unknown names
func Parse(name string) (models.Tier, error) {
	tier := models.Tier(strings.ToUpper(strings.TrimSpace(name)))
	switch tier {
	case models.TierFree, models.TierBasic, models.TierPro, models.TierEnterprise:
		return tier, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, name)
	}
}

// Lookup resolves a tier name. Unknown names resolve to FREE so that a bad
// tier never grants more than the lowest limits.
func (t *Table) Lookup(name string) models.TierConfig {
	tier, err := Parse(name)
	if err != nil {
		return t.tiers[models.TierFree]
	}
	return t.tiers[tier]
}

func (t *Table) All() []models.TierConfig {
	out := make([]models.TierConfig, 0, len(t.tiers))
	for _, name := range []models.Tier{models.TierFree, models.TierBasic, models.TierPro, models.TierEnterprise} {
		out = append(out, t.tiers[name])
	}
	return out
}
