package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/capacity-controller/api/handlers"
	"github.com/OldStager01/capacity-controller/api/middleware"
	"github.com/OldStager01/capacity-controller/api/websocket"
	"github.com/OldStager01/capacity-controller/internal/admission"
	"github.com/OldStager01/capacity-controller/internal/auth"
	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/pkg/config"
	"github.com/OldStager01/capacity-controller/pkg/database"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

const maxRequestBytes = 1 << 20

// Controller is what the API needs from the orchestrator
type Controller interface {
	handlers.ServiceController
	handlers.HealthChecker
	SubscribeAllEvents() <-chan *models.Event
	UnsubscribeEvents(ch <-chan *models.Event)
}

// Dependencies wires the server; DB and History are nil without Postgres
type Dependencies struct {
	Controller Controller
	Gate       *admission.Gate
	DB         *database.DB
	History    handlers.EventHistory
	Gatherer   prometheus.Gatherer
}

type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	config       *config.Config
	deps         Dependencies
	authService  *auth.Service
	rateLimiter  *middleware.RateLimiter
	endpointRL   *middleware.EndpointRateLimiter
	wsHub        *websocket.Hub
	wsBridge     *websocket.EventBridge
	eventsStream <-chan *models.Event
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router:      gin.New(),
		config:      cfg,
		deps:        deps,
		authService: auth.NewService(cfg.API.JWTSecret, cfg.API.JWTIssuer, 24*time.Hour),
		wsHub:       websocket.NewHub(&cfg.WebSocket),
	}

	s.setupMiddleware()
	s.setupRoutes()

	go s.wsHub.Run()

	if deps.Controller != nil {
		s.eventsStream = deps.Controller.SubscribeAllEvents()
		s.wsBridge = websocket.NewEventBridge(s.wsHub, s.eventsStream)
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(s.config.API.CORS))
	s.router.Use(middleware.RequestSizeLimit(maxRequestBytes))

	s.rateLimiter = middleware.NewRateLimiter(s.config.API.RateLimit, time.Minute)
	s.router.Use(middleware.RateLimit(s.rateLimiter))

	// On-demand evaluation has its own per-IP budget
	s.endpointRL = middleware.NewEndpointRateLimiter()
	s.endpointRL.AddEndpoint("/v1/services/:id/evaluate", 6, time.Minute)
	s.router.Use(s.endpointRL.Middleware())
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.deps.DB, s.deps.Controller)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	if s.config.Prometheus.Enabled {
		path := s.config.Prometheus.Path
		if path == "" {
			path = "/metrics"
		}
		s.router.GET(path, gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	v1 := s.router.Group("/v1")
	v1.Use(middleware.JWTAuth(s.authService))

	if s.deps.Gate != nil {
		admissionHandler := handlers.NewAdmissionHandler(s.deps.Gate)
		v1.GET("/tiers", admissionHandler.Tiers)
		v1.POST("/admission/check", admissionHandler.Check)
		v1.POST("/admission/commit", admissionHandler.Commit)
		v1.POST("/cache/lookup", admissionHandler.CacheLookup)
		v1.GET("/usage", admissionHandler.Usage)
	}

	if s.deps.Controller != nil {
		serviceHandler := handlers.NewServiceHandler(s.deps.Controller, s.deps.History, &s.config.API)
		v1.GET("/services", serviceHandler.List)
		v1.GET("/services/:id/status", serviceHandler.Status)
		v1.POST("/services/:id/evaluate", serviceHandler.Evaluate)
		v1.GET("/services/:id/events", serviceHandler.Events)
		v1.GET("/services/:id/events/stats", serviceHandler.Stats)
	}
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.API.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  s.config.API.IdleTimeout,
	}

	logger.Infof("API server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
		s.deps.Controller.UnsubscribeEvents(s.eventsStream)
	}
	s.wsHub.Stop()
	s.rateLimiter.Close()
	s.endpointRL.Close()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// AuthService issues tokens for tests and the token helper
func (s *Server) AuthService() *auth.Service {
	return s.authService
}
