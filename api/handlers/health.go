package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/capacity-controller/pkg/database"
)

// HealthChecker is anything whose backend reachability counts toward readiness
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db        *database.DB
	telemetry HealthChecker
}

// NewHealthHandler builds the handler; db is nil when Postgres is disabled
func NewHealthHandler(db *database.DB, telemetry HealthChecker) *HealthHandler {
	return &HealthHandler{db: db, telemetry: telemetry}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Database  *DatabaseInfo     `json:"database,omitempty"`
}

type DatabaseInfo struct {
	Version string             `json:"version,omitempty"`
	Tables  map[string]bool    `json:"tables"`
	Pool    database.PoolStats `json:"pool"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "healthy"
	var dbInfo *DatabaseInfo

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "healthy"
			dbInfo = h.databaseInfo(ctx)
			for table, exists := range dbInfo.Tables {
				if !exists {
					checks["database"] = "missing table " + table
					status = "degraded"
				}
			}
		}
	}

	// A telemetry outage only degrades health
	if h.telemetry != nil {
		if err := h.telemetry.HealthCheck(ctx); err != nil {
			checks["telemetry"] = "unhealthy: " + err.Error()
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["telemetry"] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Database:  dbInfo,
	})
}

func (h *HealthHandler) databaseInfo(ctx context.Context) *DatabaseInfo {
	info := &DatabaseInfo{Pool: h.db.PoolStats()}

	if version, err := h.db.ServerVersion(ctx); err == nil {
		info.Version = version
	}
	tables, err := h.db.SchemaStatus(ctx, database.RequiredTables...)
	if err != nil {
		tables = make(map[string]bool, len(database.RequiredTables))
		for _, table := range database.RequiredTables {
			tables[table] = false
		}
	}
	info.Tables = tables
	return info
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{
				Status:    "not ready",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
