package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/internal/orchestrator"
	"github.com/OldStager01/capacity-controller/pkg/config"
	"github.com/OldStager01/capacity-controller/pkg/database/queries"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

// ServiceController is the slice of the orchestrator the API drives
type ServiceController interface {
	ListServices() []orchestrator.ServiceStatus
	ServiceStatus(serviceID string) (*orchestrator.ServiceStatus, error)
	Evaluate(ctx context.Context, serviceID string) (*orchestrator.CycleResult, error)
}

// EventHistory reads persisted scaling events
type EventHistory interface {
	GetByService(ctx context.Context, serviceID string, from, to time.Time, limit int) ([]models.ScalingEvent, error)
	GetStats(ctx context.Context, serviceID string, from, to time.Time) (*queries.ScalingStats, error)
}

type ServiceHandler struct {
	controller ServiceController
	history    EventHistory
	params     listParams
}

// NewServiceHandler builds the handler; history is nil when Postgres is disabled
func NewServiceHandler(controller ServiceController, history EventHistory, cfg *config.APIConfig) *ServiceHandler {
	return &ServiceHandler{
		controller: controller,
		history:    history,
		params:     newListParams(cfg),
	}
}

func (h *ServiceHandler) List(c *gin.Context) {
	services := h.controller.ListServices()
	c.JSON(http.StatusOK, gin.H{
		"data":  services,
		"count": len(services),
	})
}

func (h *ServiceHandler) Status(c *gin.Context) {
	status, err := h.controller.ServiceStatus(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Evaluate runs one control cycle now. The cycle result is returned even
// when the cycle failed part way.
func (h *ServiceHandler) Evaluate(c *gin.Context) {
	serviceID := c.Param("id")

	result, err := h.controller.Evaluate(c.Request.Context(), serviceID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrPipelineNotFound) {
			h.fail(c, err)
			return
		}
		logger.FromContext(c.Request.Context()).WithField("service_id", serviceID).
			WithError(err).Warn("On-demand evaluation failed")
		c.JSON(http.StatusBadGateway, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ServiceHandler) Events(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	serviceID := c.Param("id")
	from, to := h.params.timeRange(c)
	limit := h.params.limit(c)

	events, err := h.history.GetByService(c.Request.Context(), serviceID, from, to, limit)
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to fetch scaling events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch scaling events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service_id": serviceID,
		"from":       from,
		"to":         to,
		"data":       events,
		"count":      len(events),
	})
}

func (h *ServiceHandler) Stats(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	from, to := h.params.timeRange(c)

	stats, err := h.history.GetStats(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to fetch scaling stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch scaling stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *ServiceHandler) historyEnabled(c *gin.Context) bool {
	if h.history == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "scaling event history requires the database"})
		return false
	}
	return true
}

func (h *ServiceHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, orchestrator.ErrPipelineNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
