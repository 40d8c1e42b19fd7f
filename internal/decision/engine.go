package decision

import (
	"fmt"
	"time"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

const (
	ReasonNoReliableSignal = "no_reliable_signal"
	ReasonIdle             = "no_traffic_and_low_cpu"
	ReasonTrafficResumed   = "traffic_resumed"
	ReasonHighTraffic      = "high_traffic"
	ReasonHighCPU          = "high_cpu"
	ReasonLowLoad          = "low_traffic_and_low_cpu"
	ReasonAtMaxCapacity    = "at_max_capacity"
	ReasonOutsideBand      = "outside_capacity_band"
	ReasonWithinThresholds = "within_thresholds"
)

type Config struct {
	ServiceID                  string
	MinCapacity                int
	MaxCapacity                int
	ScaleUpRequestsPerMinute   float64
	ScaleDownRequestsPerMinute float64
}

// Engine maps the current desired count and a telemetry signal to exactly
// one scaling action. It holds no state between calls and performs no I/O,
// so repeated or concurrent invocations with the same inputs agree.
type Engine struct {
	config Config
	now    func() time.Time
}

func NewEngine(cfg Config) *Engine {
	if cfg.MinCapacity < 0 {
		cfg.MinCapacity = 0
	}
	if cfg.MaxCapacity < max(1, cfg.MinCapacity) {
		cfg.MaxCapacity = max(1, cfg.MinCapacity)
	}
	if cfg.ScaleUpRequestsPerMinute == 0 {
		cfg.ScaleUpRequestsPerMinute = 10
	}
	if cfg.ScaleDownRequestsPerMinute == 0 {
		cfg.ScaleDownRequestsPerMinute = 2
	}

	return &Engine{
		config: cfg,
		now:    time.Now,
	}
}

func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) Decide(current int, signal *models.Signal) models.ScalingDecision {
	decision := e.evaluate(current, signal)

	entry := logger.WithService(e.config.ServiceID)
	if decision.ShouldExecute() {
		entry.Infof("Decision: %s %d -> %d (%s)", decision.Action, decision.CurrentCount, decision.TargetCount, decision.Reason)
	} else {
		entry.Debugf("Decision: %s at %d (%s)", decision.Action, decision.CurrentCount, decision.Reason)
	}

	return decision
}

// evaluate applies the rules in order; the first match wins. Zero-boundary
// rules come before the single-step rules so they are never masked.
func (e *Engine) evaluate(current int, signal *models.Signal) models.ScalingDecision {
	minCap, maxCap := e.config.MinCapacity, e.config.MaxCapacity
	floor := max(1, minCap)

	if signal == nil || !signal.Reliable {
		return e.noChange(current, ReasonNoReliableSignal)
	}

	traffic, cpu := signal.Traffic, signal.CPU

	if minCap == 0 && current > 0 && !traffic.HasTraffic && cpu.IsLow && cpu.SampleCount > 0 {
		return e.decision(models.ActionScaleToZero, current, 0, ReasonIdle)
	}

	if current == 0 && traffic.HasTraffic {
		return e.decision(models.ActionScaleFromZero, current, floor, ReasonTrafficResumed)
	}

	if current < minCap || current > maxCap {
		return e.noChange(current, fmt.Sprintf("%s [%d,%d]", ReasonOutsideBand, minCap, maxCap))
	}

	highTraffic := traffic.AvgRequestsPerMinute > e.config.ScaleUpRequestsPerMinute
	if current > 0 && current < maxCap && (highTraffic || cpu.IsHigh) {
		reason := ReasonHighCPU
		if highTraffic {
			reason = ReasonHighTraffic
		}
		return e.decision(models.ActionScaleUp, current, min(maxCap, current+1), reason)
	}

	if current > floor && traffic.AvgRequestsPerMinute < e.config.ScaleDownRequestsPerMinute && cpu.IsLow {
		return e.decision(models.ActionScaleDown, current, max(floor, current-1), ReasonLowLoad)
	}

	if current == maxCap && (highTraffic || cpu.IsHigh) {
		return e.noChange(current, ReasonAtMaxCapacity)
	}

	return e.noChange(current, ReasonWithinThresholds)
}

func (e *Engine) decision(action models.ScalingAction, current, target int, reason string) models.ScalingDecision {
	return models.ScalingDecision{
		ServiceID:    e.config.ServiceID,
		Timestamp:    e.now(),
		Action:       action,
		CurrentCount: current,
		TargetCount:  target,
		Reason:       reason,
	}
}

func (e *Engine) noChange(current int, reason string) models.ScalingDecision {
	return e.decision(models.ActionNoChange, current, current, reason)
}
