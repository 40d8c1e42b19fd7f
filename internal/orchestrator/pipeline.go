package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OldStager01/capacity-controller/internal/decision"
	"github.com/OldStager01/capacity-controller/internal/events"
	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/internal/metrics"
	"github.com/OldStager01/capacity-controller/internal/scaler"
	"github.com/OldStager01/capacity-controller/internal/telemetry"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

type PipelineConfig struct {
	Target         models.ServiceTarget
	Interval       time.Duration
	Control        scaler.ComputeControl
	Telemetry      *telemetry.Client
	DecisionEngine *decision.Engine
	Executor       *scaler.Executor
	EventPublisher *events.Publisher
	Metrics        *metrics.Metrics
}

// CycleResult is what one evaluation of a service observed and did
type CycleResult struct {
	State     *models.ServiceState   `json:"state"`
	Signal    *models.Signal         `json:"signal"`
	Decision  models.ScalingDecision `json:"decision"`
	Change    *models.AppliedChange  `json:"change,omitempty"`
	StartedAt time.Time              `json:"started_at"`
	Duration  time.Duration          `json:"duration"`
	Error     string                 `json:"error,omitempty"`
}

// Pipeline runs the control cycle for one service on a fixed interval.
// Each tick runs in its own goroutine and cycles may overlap.
type Pipeline struct {
	config  PipelineConfig
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	last    *CycleResult
	mu      sync.Mutex
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Get()
	}
	if cfg.EventPublisher == nil {
		cfg.EventPublisher = events.NewPublisher(nil)
	}

	return &Pipeline{config: cfg}
}

func (p *Pipeline) ServiceID() string {
	return p.config.Target.ServiceID
}

func (p *Pipeline) Target() models.ServiceTarget {
	return p.config.Target
}

// Start launches the ticker loop. A stopped pipeline can be started again.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	go p.run(ctx)

	logger.WithService(p.ServiceID()).Infof("Pipeline started (interval %s)", p.config.Interval)
	return nil
}

// Stop cancels in-flight cycles and waits for them to return
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()

	logger.WithService(p.ServiceID()).Info("Pipeline stopped")
}

func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// LastCycle returns the most recently completed cycle, or nil
func (p *Pipeline) LastCycle() *CycleResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Pipeline) run(runCtx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	p.spawnCycle(runCtx)

	for {
		select {
		case <-runCtx.Done():
			return
		case <-ticker.C:
			p.spawnCycle(runCtx)
		}
	}
}

func (p *Pipeline) spawnCycle(runCtx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(runCtx, p.config.Interval)
		defer cancel()

		// Errors are already logged and published; the next tick retries.
		_, _ = p.RunOnce(ctx)
	}()
}

// RunOnce performs a single read, observe, decide and apply cycle
func (p *Pipeline) RunOnce(ctx context.Context) (*CycleResult, error) {
	serviceID := p.ServiceID()
	publisher := p.config.EventPublisher
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		publisher = publisher.WithTraceID(traceID)
	}
	log := logger.FromContext(ctx).WithField("service_id", serviceID)

	result := &CycleResult{StartedAt: time.Now()}
	defer func() {
		result.Duration = time.Since(result.StartedAt)
		p.config.Metrics.ObserveCycle(serviceID, result.Duration)
		p.record(result)
	}()

	// Step 1: Read current state
	state, err := p.config.Control.GetServiceState(ctx, serviceID)
	if err != nil {
		log.Errorf("Failed to get service state: %v", err)
		publisher.Error(serviceID, "Failed to get service state", err)
		result.Error = err.Error()
		return result, fmt.Errorf("failed to get service state: %w", err)
	}
	result.State = state
	p.config.Metrics.SetDesiredCount(serviceID, state.DesiredCount)

	// Step 2: Observe telemetry
	signal := p.config.Telemetry.Observe(ctx, p.config.Target)
	result.Signal = signal
	if signal.Reliable {
		publisher.SignalObserved(serviceID, signal)
	} else {
		publisher.TelemetryUnavailable(serviceID, signal.Reason)
	}

	// Step 3: Decide
	scalingDecision := p.config.DecisionEngine.Decide(state.DesiredCount, signal)
	result.Decision = scalingDecision
	p.config.Metrics.IncDecision(serviceID, string(scalingDecision.Action))
	publisher.DecisionMade(serviceID, scalingDecision)

	if !scalingDecision.ShouldExecute() {
		log.Debugf("No change at %d (%s)", scalingDecision.CurrentCount, scalingDecision.Reason)
		return result, nil
	}

	// Step 4: Apply
	publisher.ScalingStarted(serviceID, scalingDecision)
	change, err := p.config.Executor.Execute(ctx, serviceID, scalingDecision)
	if err != nil {
		publisher.ScalingFailed(serviceID, models.NewScalingEvent(scalingDecision, models.ScalingEventFailed, err))
		result.Error = err.Error()
		return result, err
	}
	result.Change = change

	publisher.ScalingComplete(serviceID, models.NewScalingEvent(scalingDecision, models.ScalingEventSuccess, nil))
	log.Infof("Scaling complete: %s %d -> %d",
		scalingDecision.Action, scalingDecision.CurrentCount, scalingDecision.TargetCount)

	return result, nil
}

func (p *Pipeline) record(result *CycleResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = result
}
