package analyzer

import (
	"math"
	"time"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

type Config struct {
	CPUHighThreshold float64
	CPULowThreshold  float64
	Window           time.Duration
}

// Analyzer reduces raw telemetry datapoints into the windows the decision
// engine consumes. It keeps no history; every call is computed from its
// inputs alone.
type Analyzer struct {
	config Config
}

func New(cfg Config) *Analyzer {
	if cfg.CPUHighThreshold == 0 {
		cfg.CPUHighThreshold = 70.0
	}
	if cfg.CPULowThreshold == 0 {
		cfg.CPULowThreshold = 20.0
	}
	if cfg.Window == 0 {
		cfg.Window = 15 * time.Minute
	}

	return &Analyzer{config: cfg}
}

func (a *Analyzer) Analyze(serviceID string, requests, cpu []models.Datapoint) *models.Signal {
	traffic := a.SummarizeTraffic(requests)
	cpuWindow := a.SummarizeCPU(cpu)

	logger.WithService(serviceID).Debugf(
		"Analyzed: requests=%d avg_rpm=%.2f cpu=%.1f%% (high=%v low=%v samples=%d)",
		traffic.TotalRequests, traffic.AvgRequestsPerMinute,
		cpuWindow.AvgUtilizationPercent, cpuWindow.IsHigh, cpuWindow.IsLow, cpuWindow.SampleCount,
	)

	return &models.Signal{
		ServiceID:  serviceID,
		ObservedAt: time.Now(),
		Traffic:    traffic,
		CPU:        cpuWindow,
		Reliable:   true,
	}
}

// SummarizeTraffic sums request-count datapoints. The per-minute average is
// taken over the whole window, not over the samples that happened to arrive.
func (a *Analyzer) SummarizeTraffic(points []models.Datapoint) models.TrafficWindow {
	var total float64
	for _, p := range points {
		if p.Value > 0 {
			total += p.Value
		}
	}

	totalRequests := int64(math.Round(total))
	windowMinutes := a.config.Window.Minutes()

	return models.TrafficWindow{
		TotalRequests:        totalRequests,
		AvgRequestsPerMinute: float64(totalRequests) / windowMinutes,
		SampleCount:          len(points),
		HasTraffic:           totalRequests > 0,
	}
}

func (a *Analyzer) SummarizeCPU(points []models.Datapoint) models.CPUWindow {
	if len(points) == 0 {
		return models.CPUWindow{}
	}

	var total float64
	for _, p := range points {
		total += clampPercent(p.Value)
	}
	avg := total / float64(len(points))

	return models.CPUWindow{
		AvgUtilizationPercent: avg,
		SampleCount:           len(points),
		IsHigh:                avg > a.config.CPUHighThreshold,
		IsLow:                 avg < a.config.CPULowThreshold,
	}
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
