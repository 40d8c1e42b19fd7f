package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

func newTestEngine(minCap, maxCap int) *Engine {
	e := NewEngine(Config{
		ServiceID:                  "converter",
		MinCapacity:                minCap,
		MaxCapacity:                maxCap,
		ScaleUpRequestsPerMinute:   10,
		ScaleDownRequestsPerMinute: 2,
	})
	e.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func signal(rpm float64, cpuAvg float64, cpuHigh, cpuLow bool, samples int) *models.Signal {
	total := int64(rpm * 15)
	return &models.Signal{
		ServiceID: "converter",
		Reliable:  true,
		Traffic: models.TrafficWindow{
			TotalRequests:        total,
			AvgRequestsPerMinute: rpm,
			SampleCount:          3,
			HasTraffic:           total > 0,
		},
		CPU: models.CPUWindow{
			AvgUtilizationPercent: cpuAvg,
			SampleCount:           samples,
			IsHigh:                cpuHigh,
			IsLow:                 cpuLow,
		},
	}
}

var (
	idle     = signal(0, 2, false, true, 3)
	quiet    = signal(1, 5, false, true, 3)
	steady   = signal(5, 45, false, false, 3)
	busy     = signal(20, 50, false, false, 3)
	hot      = signal(5, 90, true, false, 3)
	coldBoot = signal(4, 0, false, false, 0)
)

func TestEngine_Decide(t *testing.T) {
	tests := []struct {
		name           string
		minCap, maxCap int
		current        int
		signal         *models.Signal
		expectedAction models.ScalingAction
		expectedTarget int
		expectedReason string
	}{
		{
			name: "scale to zero when idle", minCap: 0, maxCap: 3, current: 2, signal: idle,
			expectedAction: models.ActionScaleToZero, expectedTarget: 0, expectedReason: ReasonIdle,
		},
		{
			name: "no scale to zero when min capacity is positive", minCap: 1, maxCap: 3, current: 1, signal: idle,
			expectedAction: models.ActionNoChange, expectedTarget: 1,
		},
		{
			name: "no scale to zero without cpu samples", minCap: 0, maxCap: 3, current: 1, signal: signal(0, 0, false, true, 0),
			expectedAction: models.ActionNoChange, expectedTarget: 1,
		},
		{
			name: "scale from zero on any traffic", minCap: 0, maxCap: 3, current: 0, signal: coldBoot,
			expectedAction: models.ActionScaleFromZero, expectedTarget: 1, expectedReason: ReasonTrafficResumed,
		},
		{
			name: "scale from zero lands on min capacity", minCap: 2, maxCap: 5, current: 0, signal: coldBoot,
			expectedAction: models.ActionScaleFromZero, expectedTarget: 2,
		},
		{
			name: "stay at zero without traffic", minCap: 0, maxCap: 3, current: 0, signal: idle,
			expectedAction: models.ActionNoChange, expectedTarget: 0,
		},
		{
			name: "scale up on traffic", minCap: 0, maxCap: 3, current: 1, signal: busy,
			expectedAction: models.ActionScaleUp, expectedTarget: 2, expectedReason: ReasonHighTraffic,
		},
		{
			name: "scale up on cpu", minCap: 0, maxCap: 3, current: 2, signal: hot,
			expectedAction: models.ActionScaleUp, expectedTarget: 3, expectedReason: ReasonHighCPU,
		},
		{
			name: "at cap with high cpu holds", minCap: 0, maxCap: 3, current: 3, signal: hot,
			expectedAction: models.ActionNoChange, expectedTarget: 3, expectedReason: ReasonAtMaxCapacity,
		},
		{
			name: "scale down on low load", minCap: 0, maxCap: 3, current: 3, signal: quiet,
			expectedAction: models.ActionScaleDown, expectedTarget: 2, expectedReason: ReasonLowLoad,
		},
		{
			name: "scale down never below one", minCap: 0, maxCap: 3, current: 1, signal: quiet,
			expectedAction: models.ActionNoChange, expectedTarget: 1,
		},
		{
			name: "scale down never below min", minCap: 2, maxCap: 5, current: 2, signal: quiet,
			expectedAction: models.ActionNoChange, expectedTarget: 2,
		},
		{
			name: "steady load holds", minCap: 0, maxCap: 3, current: 2, signal: steady,
			expectedAction: models.ActionNoChange, expectedTarget: 2, expectedReason: ReasonWithinThresholds,
		},
		{
			name: "unreliable signal holds", minCap: 0, maxCap: 3, current: 2, signal: models.NoSignal("converter", "timeout"),
			expectedAction: models.ActionNoChange, expectedTarget: 2, expectedReason: ReasonNoReliableSignal,
		},
		{
			name: "nil signal holds", minCap: 0, maxCap: 3, current: 0, signal: nil,
			expectedAction: models.ActionNoChange, expectedTarget: 0, expectedReason: ReasonNoReliableSignal,
		},
		{
			name: "current above band is not stepped", minCap: 0, maxCap: 3, current: 6, signal: quiet,
			expectedAction: models.ActionNoChange, expectedTarget: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(tt.minCap, tt.maxCap)

			d := e.Decide(tt.current, tt.signal)

			assert.Equal(t, tt.expectedAction, d.Action)
			assert.Equal(t, tt.expectedTarget, d.TargetCount)
			assert.Equal(t, tt.current, d.CurrentCount)
			if tt.expectedReason != "" {
				assert.Equal(t, tt.expectedReason, d.Reason)
			}
		})
	}
}

var allSignals = []*models.Signal{idle, quiet, steady, busy, hot, coldBoot, signal(0, 90, true, false, 3), signal(50, 5, false, true, 3)}

func TestEngine_IdleAlwaysScalesToZeroWhenAllowed(t *testing.T) {
	for maxCap := 1; maxCap <= 6; maxCap++ {
		e := newTestEngine(0, maxCap)
		for current := 1; current <= maxCap; current++ {
			d := e.Decide(current, idle)
			assert.Equal(t, models.ActionScaleToZero, d.Action, "max=%d current=%d", maxCap, current)
			assert.Equal(t, 0, d.TargetCount)
		}
	}
}

func TestEngine_TrafficAtZeroAlwaysScalesFromZero(t *testing.T) {
	for minCap := 0; minCap <= 3; minCap++ {
		e := newTestEngine(minCap, 6)
		for _, s := range allSignals {
			if !s.Traffic.HasTraffic {
				continue
			}
			d := e.Decide(0, s)
			assert.Equal(t, models.ActionScaleFromZero, d.Action)
			assert.Equal(t, max(1, minCap), d.TargetCount)
		}
	}
}

func TestEngine_TargetAlwaysWithinBand(t *testing.T) {
	for minCap := 0; minCap <= 3; minCap++ {
		for maxCap := max(1, minCap); maxCap <= 6; maxCap++ {
			e := newTestEngine(minCap, maxCap)
			for current := 0; current <= maxCap; current++ {
				for _, s := range allSignals {
					d := e.Decide(current, s)
					if !d.ShouldExecute() {
						assert.Equal(t, current, d.TargetCount)
						continue
					}
					assert.GreaterOrEqual(t, d.TargetCount, minCap)
					assert.LessOrEqual(t, d.TargetCount, maxCap)
					if d.Action == models.ActionScaleUp || d.Action == models.ActionScaleDown {
						assert.Equal(t, 1, abs(d.Delta()), "single step for %s", d.Action)
					}
				}
			}
		}
	}
}

func TestEngine_DeterministicForSameInputs(t *testing.T) {
	e := newTestEngine(0, 3)
	for current := 0; current <= 3; current++ {
		for _, s := range allSignals {
			assert.Equal(t, e.Decide(current, s), e.Decide(current, s))
		}
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	cfg := NewEngine(Config{MinCapacity: 2}).Config()

	assert.Equal(t, 2, cfg.MaxCapacity)
	assert.Equal(t, 10.0, cfg.ScaleUpRequestsPerMinute)
	assert.Equal(t, 2.0, cfg.ScaleDownRequestsPerMinute)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
