package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/OldStager01/capacity-controller/internal/cache"
	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/internal/metrics"
	"github.com/OldStager01/capacity-controller/internal/tier"
	"github.com/OldStager01/capacity-controller/internal/usage"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

var (
	ErrInvalidRequest = errors.New("invalid admission request")
	ErrNotAdmitted    = errors.New("request not admitted")
)

type StoreFailurePolicy string

const (
	// PolicyOpen admits requests when the usage store cannot be read
	PolicyOpen StoreFailurePolicy = "open"
	// PolicyClosed denies them
	PolicyClosed StoreFailurePolicy = "closed"
)

type Config struct {
	StoreFailurePolicy StoreFailurePolicy
}

type AdmitRequest struct {
	UserID    string `json:"user_id" validate:"required,max=128"`
	Tier      string `json:"tier"`
	Operation string `json:"operation" validate:"required,max=64"`
}

type ProcessRequest struct {
	UserID    string            `json:"user_id" validate:"required,max=128"`
	Tier      string            `json:"tier"`
	Operation string            `json:"operation" validate:"required,max=64"`
	Input     []byte            `json:"input"`
	Options   map[string]string `json:"options"`
}

type ProcessResult struct {
	Payload     []byte                  `json:"payload"`
	Cached      bool                    `json:"cached"`
	Fingerprint string                  `json:"fingerprint"`
	Admission   *models.AdmissionResult `json:"admission,omitempty"`
	Usage       *models.UsageSnapshot   `json:"usage,omitempty"`
}

// ProcessFunc performs the expensive backend call for an admitted request
type ProcessFunc func(ctx context.Context) ([]byte, error)

// Gate decides whether a request may reach the inference backend and
// accounts for it once it has.
type Gate struct {
	tiers    *tier.Table
	ledger   usage.Ledger
	cache    cache.Cache
	limiter  *RateLimiter
	policy   StoreFailurePolicy
	metrics  *metrics.Metrics
	validate *validator.Validate
	now      func() time.Time
}

func NewGate(tiers *tier.Table, ledger usage.Ledger, results cache.Cache, m *metrics.Metrics, cfg Config) *Gate {
	if cfg.StoreFailurePolicy == "" {
		cfg.StoreFailurePolicy = PolicyOpen
	}
	if m == nil {
		m = metrics.Get()
	}

	return &Gate{
		tiers:    tiers,
		ledger:   ledger,
		cache:    results,
		limiter:  NewRateLimiter(),
		policy:   cfg.StoreFailurePolicy,
		metrics:  m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Tiers exposes the table the gate resolves tiers against
func (g *Gate) Tiers() *tier.Table {
	return g.tiers
}

// Admit checks the rate limit and the daily and monthly quotas. It never
// charges usage; callers Commit after the backend call succeeds.
func (g *Gate) Admit(ctx context.Context, req AdmitRequest) (*models.AdmissionResult, error) {
	if err := g.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	cfg := g.tiers.Lookup(req.Tier)
	log := logger.WithUser(req.UserID).WithField("tier", cfg.Tier)
	result := &models.AdmissionResult{Tier: cfg.Tier}

	if ok, retryAfter := g.limiter.Allow(req.UserID, cfg); !ok {
		result.Reason = models.ReasonRateLimited
		result.RetryAfter = retryAfter
		g.record(result)
		log.Debugf("Rate limited, retry after %s", retryAfter)
		return result, nil
	}

	now := g.now()
	dayKey, monthKey, dayEnd, monthEnd := usage.Keys(req.UserID, cfg.Tier, now)

	daily, err := usage.Count(ctx, g.ledger, dayKey)
	var monthly int64
	if err == nil {
		monthly, err = usage.Count(ctx, g.ledger, monthKey)
	}
	if err != nil {
		g.metrics.IncStoreError("usage")
		log.WithError(err).Warnf("Usage store unavailable, policy %s", g.policy)
		result.Reason = models.ReasonStoreUnavailable
		result.Allowed = g.policy == PolicyOpen
		g.record(result)
		return result, nil
	}

	result.RemainingDaily = max(0, cfg.DailyRequestLimit-daily)
	result.RemainingMonthly = max(0, cfg.MonthlyRequestLimit-monthly)

	switch {
	case monthly >= cfg.MonthlyRequestLimit:
		result.Reason = models.ReasonLimitExceeded
		result.RetryAfter = monthEnd.Sub(now)
	case daily >= cfg.DailyRequestLimit:
		result.Reason = models.ReasonLimitExceeded
		result.RetryAfter = dayEnd.Sub(now)
	default:
		result.Allowed = true
		result.Reason = models.ReasonOK
	}

	g.record(result)
	if !result.Allowed {
		log.Infof("Quota exhausted: daily %d/%d, monthly %d/%d",
			daily, cfg.DailyRequestLimit, monthly, cfg.MonthlyRequestLimit)
	}
	return result, nil
}

// Commit charges one request against the daily and monthly counters. If the
// monthly increment fails the daily one is taken back, so the caller can
// retry the whole commit without charging the day twice.
func (g *Gate) Commit(ctx context.Context, userID, tierName string) (*models.UsageSnapshot, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}

	cfg := g.tiers.Lookup(tierName)
	dayKey, monthKey, dayEnd, monthEnd := usage.Keys(userID, cfg.Tier, g.now())

	daily, err := g.ledger.IncrementAndGet(ctx, dayKey, dayEnd)
	if err != nil {
		g.metrics.IncStoreError("usage")
		return nil, fmt.Errorf("failed to commit daily usage: %w", err)
	}
	monthly, err := g.ledger.IncrementAndGet(ctx, monthKey, monthEnd)
	if err != nil {
		g.metrics.IncStoreError("usage")
		if rbErr := g.ledger.Decrement(ctx, dayKey); rbErr != nil {
			g.metrics.IncStoreError("usage")
			logger.WithUser(userID).WithError(rbErr).Errorf("Daily usage stays charged (%s): rollback failed", dayKey.PeriodKey)
		}
		return nil, fmt.Errorf("failed to commit monthly usage: %w", err)
	}

	g.metrics.IncUsageCommit(string(cfg.Tier))
	return &models.UsageSnapshot{
		UserID:       userID,
		Tier:         cfg.Tier,
		DailyCount:   daily,
		MonthlyCount: monthly,
	}, nil
}

// Usage reports the live counters for a user without charging anything
func (g *Gate) Usage(ctx context.Context, userID, tierName string) (*models.UsageSnapshot, error) {
	cfg := g.tiers.Lookup(tierName)
	dayKey, monthKey, _, _ := usage.Keys(userID, cfg.Tier, g.now())

	daily, err := usage.Count(ctx, g.ledger, dayKey)
	if err != nil {
		return nil, err
	}
	monthly, err := usage.Count(ctx, g.ledger, monthKey)
	if err != nil {
		return nil, err
	}

	return &models.UsageSnapshot{UserID: userID, Tier: cfg.Tier, DailyCount: daily, MonthlyCount: monthly}, nil
}

// LookupCache returns a live cached result. Store errors count as misses.
func (g *Gate) LookupCache(ctx context.Context, fingerprint, tierName string) (*models.CacheEntry, bool) {
	cfg := g.tiers.Lookup(tierName)

	entry, err := g.cache.Get(ctx, fingerprint)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			g.metrics.IncStoreError("cache")
			logger.WithField("fingerprint", fingerprint).WithError(err).Warn("Cache lookup failed, skipping cache")
		}
		g.metrics.IncCacheLookup(string(cfg.Tier), false)
		return nil, false
	}

	g.metrics.IncCacheLookup(string(cfg.Tier), true)
	return entry, true
}

// StoreResult caches payload for the tier's TTL
func (g *Gate) StoreResult(ctx context.Context, fingerprint, tierName string, payload []byte) error {
	cfg := g.tiers.Lookup(tierName)

	entry := &models.CacheEntry{Fingerprint: fingerprint, Payload: payload, Tier: cfg.Tier}
	if err := g.cache.Put(ctx, entry, cfg.CacheTTL()); err != nil {
		g.metrics.IncStoreError("cache")
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

// Process runs fn behind the gate. A cache hit is returned without
// consulting or charging the quota. A denied request returns the result
// along with ErrNotAdmitted.
func (g *Gate) Process(ctx context.Context, req ProcessRequest, fn ProcessFunc) (*ProcessResult, error) {
	if err := g.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	cfg := g.tiers.Lookup(req.Tier)
	tierName := string(cfg.Tier)
	fp := Fingerprint(cfg.Tier, req.Operation, req.Input, req.Options)
	result := &ProcessResult{Fingerprint: fp}

	if entry, ok := g.LookupCache(ctx, fp, tierName); ok {
		result.Payload = entry.Payload
		result.Cached = true
		return result, nil
	}

	admission, err := g.Admit(ctx, AdmitRequest{UserID: req.UserID, Tier: tierName, Operation: req.Operation})
	if err != nil {
		return nil, err
	}
	result.Admission = admission
	if !admission.Allowed {
		return result, fmt.Errorf("%w: %s", ErrNotAdmitted, admission.Reason)
	}

	payload, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	result.Payload = payload

	snapshot, err := g.Commit(ctx, req.UserID, tierName)
	if err != nil {
		logger.WithUser(req.UserID).WithError(err).Error("Failed to record usage for completed request")
	}
	result.Usage = snapshot

	if err := g.StoreResult(ctx, fp, tierName, payload); err != nil {
		logger.WithField("fingerprint", fp).WithError(err).Warn("Result not cached")
	}

	return result, nil
}

func (g *Gate) record(result *models.AdmissionResult) {
	g.metrics.IncAdmission(string(result.Tier), string(result.Reason))
}

func (g *Gate) Close() error {
	g.limiter.Close()
	return errors.Join(g.ledger.Close(), g.cache.Close())
}
