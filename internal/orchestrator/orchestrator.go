package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/OldStager01/capacity-controller/internal/analyzer"
	"github.com/OldStager01/capacity-controller/internal/decision"
	"github.com/OldStager01/capacity-controller/internal/events"
	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/internal/metrics"
	"github.com/OldStager01/capacity-controller/internal/notify"
	"github.com/OldStager01/capacity-controller/internal/scaler"
	"github.com/OldStager01/capacity-controller/internal/telemetry"
	"github.com/OldStager01/capacity-controller/pkg/config"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

var ErrPipelineNotFound = errors.New("no pipeline for service")

// Dependencies are the external collaborators shared by every pipeline
type Dependencies struct {
	Control    scaler.ComputeControl
	Source     telemetry.Source
	Notifier   scaler.Notifier
	EventStore events.ScalingEventStore
	Metrics    *metrics.Metrics
}

// ServiceStatus summarizes a pipeline for the API
type ServiceStatus struct {
	Target    models.ServiceTarget `json:"target"`
	Running   bool                 `json:"running"`
	LastCycle *CycleResult         `json:"last_cycle,omitempty"`
}

type Orchestrator struct {
	config      *config.Config
	deps        Dependencies
	eventBus    *events.EventBus
	eventLogger *events.EventLogger
	publisher   *events.Publisher
	telemetry   *telemetry.Client
	executor    *scaler.Executor
	pipelines   map[string]*Pipeline
	mu          sync.RWMutex
}

func New(cfg *config.Config, deps Dependencies) *Orchestrator {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Get()
	}

	eventBus := events.NewEventBus(cfg.Events.BufferSize)
	publisher := events.NewPublisher(eventBus)

	// Subscribe event logger to all events
	var store events.ScalingEventStore
	if cfg.Events.Persist {
		store = deps.EventStore
	}
	eventLogger := events.NewEventLogger(store, eventBus.SubscribeAll())

	a := analyzer.New(analyzer.Config{
		CPUHighThreshold: cfg.Controller.Thresholds.CPUHigh,
		CPULowThreshold:  cfg.Controller.Thresholds.CPULow,
		Window:           cfg.Telemetry.Window,
	})
	client := telemetry.NewClient(deps.Source, a, telemetry.ClientConfig{
		Window:  cfg.Telemetry.Window,
		Period:  cfg.Telemetry.Period,
		Timeout: cfg.Telemetry.Timeout,
	})
	client.OnError(func(serviceID string, err error) {
		deps.Metrics.IncTelemetryFailure(serviceID)
	})

	// Zero-boundary crossings always reach the bus; the configured
	// notifier is optional.
	notifiers := notify.Multi{notify.NewBusNotifier(publisher)}
	if deps.Notifier != nil {
		notifiers = append(notifiers, deps.Notifier)
	}

	return &Orchestrator{
		config:      cfg,
		deps:        deps,
		eventBus:    eventBus,
		eventLogger: eventLogger,
		publisher:   publisher,
		telemetry:   client,
		executor:    scaler.NewExecutor(deps.Control, notifiers, deps.Metrics),
		pipelines:   make(map[string]*Pipeline),
	}
}

// Start launches the event logger and a pipeline for every configured service
func (o *Orchestrator) Start() error {
	logger.Info("Orchestrator starting")
	o.eventLogger.Start()

	for _, svc := range o.config.Controller.Services {
		if err := o.StartService(svc); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) Stop() {
	logger.Info("Orchestrator stopping")

	// Stop all pipelines
	o.mu.Lock()
	for serviceID, pipeline := range o.pipelines {
		logger.Infof("Stopping pipeline for service %s", serviceID)
		pipeline.Stop()
	}
	o.mu.Unlock()

	o.eventLogger.Stop()
	o.eventBus.Close()

	if err := o.telemetry.Close(); err != nil {
		logger.Warnf("Failed to close telemetry source: %v", err)
	}
	if err := o.deps.Control.Close(); err != nil {
		logger.Warnf("Failed to close compute control: %v", err)
	}

	logger.Info("Orchestrator stopped")
}

func (o *Orchestrator) newPipeline(svc config.ServiceConfig) *Pipeline {
	target := models.ServiceTarget{
		ServiceID:   svc.ID,
		Cluster:     o.config.Compute.Cluster,
		TargetGroup: svc.TargetGroup,
		MinCapacity: svc.MinCapacity,
		MaxCapacity: svc.MaxCapacity,
	}

	return NewPipeline(PipelineConfig{
		Target:    target,
		Interval:  o.config.Controller.Interval,
		Control:   o.deps.Control,
		Telemetry: o.telemetry,
		DecisionEngine: decision.NewEngine(decision.Config{
			ServiceID:                  svc.ID,
			MinCapacity:                svc.MinCapacity,
			MaxCapacity:                svc.MaxCapacity,
			ScaleUpRequestsPerMinute:   o.config.Controller.Thresholds.ScaleUpRequestsPerMinute,
			ScaleDownRequestsPerMinute: o.config.Controller.Thresholds.ScaleDownRequestsPerMinute,
		}),
		Executor:       o.executor,
		EventPublisher: o.publisher,
		Metrics:        o.deps.Metrics,
	})
}

func (o *Orchestrator) StartService(svc config.ServiceConfig) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.pipelines[svc.ID]; exists {
		return fmt.Errorf("pipeline already exists for service %s", svc.ID)
	}

	pipeline := o.newPipeline(svc)
	if err := pipeline.Start(); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	o.pipelines[svc.ID] = pipeline
	return nil
}

func (o *Orchestrator) StopService(serviceID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	pipeline, exists := o.pipelines[serviceID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrPipelineNotFound, serviceID)
	}

	pipeline.Stop()
	delete(o.pipelines, serviceID)
	return nil
}

func (o *Orchestrator) pipeline(serviceID string) (*Pipeline, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	pipeline, exists := o.pipelines[serviceID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPipelineNotFound, serviceID)
	}
	return pipeline, nil
}

// Evaluate runs one cycle for the service outside the schedule
func (o *Orchestrator) Evaluate(ctx context.Context, serviceID string) (*CycleResult, error) {
	pipeline, err := o.pipeline(serviceID)
	if err != nil {
		return nil, err
	}
	return pipeline.RunOnce(ctx)
}

func (o *Orchestrator) ServiceStatus(serviceID string) (*ServiceStatus, error) {
	pipeline, err := o.pipeline(serviceID)
	if err != nil {
		return nil, err
	}
	return &ServiceStatus{
		Target:    pipeline.Target(),
		Running:   pipeline.IsRunning(),
		LastCycle: pipeline.LastCycle(),
	}, nil
}

func (o *Orchestrator) ListServices() []ServiceStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()

	statuses := make([]ServiceStatus, 0, len(o.pipelines))
	for _, pipeline := range o.pipelines {
		statuses = append(statuses, ServiceStatus{
			Target:    pipeline.Target(),
			Running:   pipeline.IsRunning(),
			LastCycle: pipeline.LastCycle(),
		})
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Target.ServiceID < statuses[j].Target.ServiceID
	})
	return statuses
}

// HealthCheck reports whether the telemetry backend is reachable
func (o *Orchestrator) HealthCheck(ctx context.Context) error {
	return o.telemetry.HealthCheck(ctx)
}

func (o *Orchestrator) SubscribeEvents(eventType models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(eventType)
}

func (o *Orchestrator) SubscribeAllEvents() <-chan *models.Event {
	return o.eventBus.SubscribeAll()
}

func (o *Orchestrator) UnsubscribeEvents(ch <-chan *models.Event) {
	o.eventBus.Unsubscribe(ch)
}
