package simulator

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/internal/telemetry"
	"github.com/OldStager01/capacity-controller/pkg/models"
	"github.com/OldStager01/capacity-controller/pkg/validation"
)

type Config struct {
	Port int
	// AutoCreate makes unknown services spring into existence on first query
	AutoCreate bool
}

// Simulator serves synthetic telemetry in the format HTTPSource reads
type Simulator struct {
	config     Config
	services   map[string]*ServiceSim
	mu         sync.RWMutex
	router     *gin.Engine
	httpServer *http.Server
	now        func() time.Time
}

func New(cfg Config) *Simulator {
	if cfg.Port == 0 {
		cfg.Port = 9000
	}

	s := &Simulator{
		config:   cfg,
		services: make(map[string]*ServiceSim),
		now:      time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Simulator) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.healthHandler)
	r.GET("/services", s.listServicesHandler)
	r.GET("/services/:id", s.getServiceHandler)
	r.POST("/services/:id", s.createServiceHandler)
	r.PUT("/services/:id", s.updateServiceHandler)
	r.DELETE("/services/:id", s.deleteServiceHandler)
	r.GET("/services/:id/metrics/:metric", s.metricsHandler)
	r.POST("/burst", s.burstHandler)
	r.POST("/pattern", s.patternHandler)

	return r
}

// Handler exposes the router for embedding and tests
func (s *Simulator) Handler() http.Handler {
	return s.router
}

func (s *Simulator) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Infof("Simulator listening on %s", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Simulator server error: %v", err)
		}
	}()

	return nil
}

func (s *Simulator) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Simulator) AddService(id string, cfg ServiceSimConfig) *ServiceSim {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc := NewServiceSim(id, cfg)
	s.services[id] = svc
	return svc
}

func (s *Simulator) GetOrCreateService(id string) *ServiceSim {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, exists := s.services[id]; exists {
		return svc
	}

	svc := NewServiceSim(id, ServiceSimConfig{BaseRPM: 30, BaseCPU: 45, Variance: 10})
	s.services[id] = svc

	logger.Infof("Created simulated service: %s", id)
	return svc
}

func (s *Simulator) GetService(id string) (*ServiceSim, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, exists := s.services[id]
	return svc, exists
}

func (s *Simulator) lookup(id string) (*ServiceSim, bool) {
	if s.config.AutoCreate {
		return s.GetOrCreateService(id), true
	}
	return s.GetService(id)
}

func (s *Simulator) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "telemetry-simulator",
	})
}

func (s *Simulator) metricsHandler(c *gin.Context) {
	svc, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}

	metric := models.MetricName(c.Param("metric"))
	stat := models.Statistic(c.Query("stat"))
	switch metric {
	case models.MetricRequestCount:
		if stat == "" {
			stat = models.StatisticSum
		}
	case models.MetricCPUUtilization:
		if stat == "" {
			stat = models.StatisticAverage
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown metric"})
		return
	}

	window := secondsParam(c, "window", 15*time.Minute)
	period := secondsParam(c, "period", 5*time.Minute)

	c.JSON(http.StatusOK, telemetry.SeriesResponse{
		ServiceID:  c.Param("id"),
		Metric:     metric,
		Statistic:  stat,
		Datapoints: svc.Series(metric, window, period, s.now()),
	})
}

func secondsParam(c *gin.Context, name string, def time.Duration) time.Duration {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func (s *Simulator) listServicesHandler(c *gin.Context) {
	s.mu.RLock()
	services := make([]ServiceStatus, 0, len(s.services))
	for _, svc := range s.services {
		services = append(services, svc.Status())
	}
	s.mu.RUnlock()

	sort.Slice(services, func(i, j int) bool { return services[i].ID < services[j].ID })

	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"count":    len(services),
	})
}

func (s *Simulator) getServiceHandler(c *gin.Context) {
	svc, exists := s.GetService(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}
	c.JSON(http.StatusOK, svc.Status())
}

type CreateServiceRequest struct {
	BaseRPM  float64 `json:"base_rpm"`
	BaseCPU  float64 `json:"base_cpu"`
	Variance float64 `json:"variance"`
	Pattern  string  `json:"pattern"`
}

func (s *Simulator) createServiceHandler(c *gin.Context) {
	if err := validation.ValidateServiceID(c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.BaseRPM < 0 {
		req.BaseRPM = 0
	}
	if req.BaseCPU <= 0 {
		req.BaseCPU = 45
	}

	svc := s.AddService(c.Param("id"), ServiceSimConfig{
		BaseRPM:  req.BaseRPM,
		BaseCPU:  req.BaseCPU,
		Variance: req.Variance,
	})
	if req.Pattern != "" {
		svc.SetPattern(ParsePattern(req.Pattern))
	}

	logger.Infof("Created service %s at %.1f rpm", c.Param("id"), req.BaseRPM)
	c.JSON(http.StatusCreated, svc.Status())
}

type UpdateServiceRequest struct {
	BaseRPM  *float64 `json:"base_rpm"`
	BaseCPU  *float64 `json:"base_cpu"`
	Variance *float64 `json:"variance"`
}

func (s *Simulator) updateServiceHandler(c *gin.Context) {
	svc, exists := s.GetService(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}

	var req UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.BaseRPM != nil {
		svc.SetBaseRPM(*req.BaseRPM)
	}
	if req.BaseCPU != nil {
		svc.SetBaseCPU(*req.BaseCPU)
	}
	if req.Variance != nil {
		svc.SetVariance(*req.Variance)
	}

	c.JSON(http.StatusOK, svc.Status())
}

func (s *Simulator) deleteServiceHandler(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("id")
	if _, exists := s.services[id]; !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}

	delete(s.services, id)
	logger.Infof("Deleted service %s", id)

	c.JSON(http.StatusOK, gin.H{"message": "service deleted"})
}

type BurstRequest struct {
	ServiceID  string  `json:"service_id" binding:"required"`
	Multiplier float64 `json:"multiplier" binding:"required,gt=0"`
	Duration   string  `json:"duration"`
	RampUp     string  `json:"ramp_up"`
}

func (s *Simulator) burstHandler(c *gin.Context) {
	var req BurstRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		duration = 15 * time.Minute
	}
	rampUp, err := time.ParseDuration(req.RampUp)
	if err != nil {
		rampUp = time.Minute
	}

	s.GetOrCreateService(req.ServiceID).InjectBurst(req.Multiplier, duration, rampUp)

	logger.Infof("Injected burst on service %s: x%.1f for %s", req.ServiceID, req.Multiplier, duration)

	c.JSON(http.StatusOK, gin.H{
		"message":    "burst injected",
		"service_id": req.ServiceID,
		"multiplier": req.Multiplier,
		"duration":   duration.String(),
		"ramp_up":    rampUp.String(),
	})
}

type PatternRequest struct {
	ServiceID string `json:"service_id" binding:"required"`
	Pattern   string `json:"pattern" binding:"required,oneof=steady idle daily weekly random"`
}

func (s *Simulator) patternHandler(c *gin.Context) {
	var req PatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.GetOrCreateService(req.ServiceID).SetPattern(ParsePattern(req.Pattern))

	logger.Infof("Set pattern %s on service %s", req.Pattern, req.ServiceID)

	c.JSON(http.StatusOK, gin.H{
		"message":    "pattern set",
		"service_id": req.ServiceID,
		"pattern":    req.Pattern,
	})
}
