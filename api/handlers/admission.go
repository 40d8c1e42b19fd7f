package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/capacity-controller/api/middleware"
	"github.com/OldStager01/capacity-controller/internal/admission"
	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

// AdmissionHandler exposes the two-phase admission flow. The caller checks,
// runs the inference itself, then commits and stores the result only on
// success. User and tier always come from the token.
type AdmissionHandler struct {
	gate *admission.Gate
}

func NewAdmissionHandler(gate *admission.Gate) *AdmissionHandler {
	return &AdmissionHandler{gate: gate}
}

type CheckRequest struct {
	Operation string `json:"operation" binding:"required,max=64" example:"convert"`
}

// CommitRequest carries the request that was served. Operation, Input and
// Options are fingerprinted the same way CacheLookup does; a client never
// names the cache key itself.
type CommitRequest struct {
	Operation string            `json:"operation" binding:"omitempty,max=64" example:"convert"`
	Input     string            `json:"input"`
	Options   map[string]string `json:"options"`
	Payload   []byte            `json:"payload"`
}

type CommitResponse struct {
	Usage       *models.UsageSnapshot `json:"usage"`
	Fingerprint string                `json:"fingerprint,omitempty"`
	Cached      bool                  `json:"cached"`
}

type CacheLookupRequest struct {
	Operation string            `json:"operation" binding:"required,max=64" example:"convert"`
	Input     string            `json:"input"`
	Options   map[string]string `json:"options"`
}

type CacheLookupResponse struct {
	Fingerprint string `json:"fingerprint"`
	Hit         bool   `json:"hit"`
	Payload     []byte `json:"payload,omitempty"`
}

type UsageResponse struct {
	Usage  *models.UsageSnapshot `json:"usage"`
	Limits models.TierConfig     `json:"limits"`
}

func (h *AdmissionHandler) Check(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.gate.Admit(c.Request.Context(), admission.AdmitRequest{
		UserID:    middleware.GetUserID(c),
		Tier:      middleware.GetTier(c),
		Operation: req.Operation,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	if !result.Allowed {
		if result.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
		}
		status := http.StatusTooManyRequests
		if result.Reason == models.ReasonStoreUnavailable {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Commit charges one request. When the operation and payload are supplied
// the result is cached for the tier's TTL under the fingerprint of that
// request. A live entry is never replaced.
func (h *AdmissionHandler) Commit(c *gin.Context) {
	var req CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	tierName := middleware.GetTier(c)

	snapshot, err := h.gate.Commit(ctx, userID, tierName)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := CommitResponse{Usage: snapshot}
	if req.Operation == "" || len(req.Payload) == 0 {
		c.JSON(http.StatusOK, resp)
		return
	}

	cfg := h.gate.Tiers().Lookup(tierName)
	resp.Fingerprint = admission.Fingerprint(cfg.Tier, req.Operation, []byte(req.Input), req.Options)

	if _, exists := h.gate.LookupCache(ctx, resp.Fingerprint, string(cfg.Tier)); exists {
		c.JSON(http.StatusOK, resp)
		return
	}
	if err := h.gate.StoreResult(ctx, resp.Fingerprint, string(cfg.Tier), req.Payload); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Result not cached")
	} else {
		resp.Cached = true
	}

	c.JSON(http.StatusOK, resp)
}

// CacheLookup fingerprints the request and returns a live cached result.
// Hits are free: nothing is charged and no quota is read.
func (h *AdmissionHandler) CacheLookup(c *gin.Context) {
	var req CacheLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := h.gate.Tiers().Lookup(middleware.GetTier(c))
	fp := admission.Fingerprint(cfg.Tier, req.Operation, []byte(req.Input), req.Options)

	resp := CacheLookupResponse{Fingerprint: fp}
	if entry, ok := h.gate.LookupCache(c.Request.Context(), fp, string(cfg.Tier)); ok {
		resp.Hit = true
		resp.Payload = entry.Payload
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AdmissionHandler) Usage(c *gin.Context) {
	tierName := middleware.GetTier(c)

	snapshot, err := h.gate.Usage(c.Request.Context(), middleware.GetUserID(c), tierName)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, UsageResponse{
		Usage:  snapshot,
		Limits: h.gate.Tiers().Lookup(tierName),
	})
}

func (h *AdmissionHandler) Tiers(c *gin.Context) {
	tiers := h.gate.Tiers().All()
	c.JSON(http.StatusOK, gin.H{
		"data":  tiers,
		"count": len(tiers),
	})
}

func (h *AdmissionHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, admission.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.FromContext(c.Request.Context()).WithError(err).Error("Usage store request failed")
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "usage store unavailable"})
}
