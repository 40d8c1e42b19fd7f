package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

func points(values ...float64) []models.Datapoint {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]models.Datapoint, len(values))
	for i, v := range values {
		out[i] = models.Datapoint{Timestamp: start.Add(time.Duration(i) * 5 * time.Minute), Value: v}
	}
	return out
}

func TestAnalyzer_SummarizeTraffic(t *testing.T) {
	a := New(Config{Window: 15 * time.Minute})

	tests := []struct {
		name        string
		points      []models.Datapoint
		expectedTot int64
		expectedAvg float64
		hasTraffic  bool
	}{
		{name: "no datapoints", points: nil, expectedTot: 0, expectedAvg: 0, hasTraffic: false},
		{name: "all zero", points: points(0, 0, 0), expectedTot: 0, expectedAvg: 0, hasTraffic: false},
		{name: "light traffic", points: points(3, 0, 0), expectedTot: 3, expectedAvg: 0.2, hasTraffic: true},
		{name: "busy", points: points(100, 80, 120), expectedTot: 300, expectedAvg: 20, hasTraffic: true},
		{name: "sparse samples still average over the window", points: points(150), expectedTot: 150, expectedAvg: 10, hasTraffic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.SummarizeTraffic(tt.points)

			assert.Equal(t, tt.expectedTot, w.TotalRequests)
			assert.InDelta(t, tt.expectedAvg, w.AvgRequestsPerMinute, 0.0001)
			assert.Equal(t, tt.hasTraffic, w.HasTraffic)
			assert.Equal(t, len(tt.points), w.SampleCount)
		})
	}
}

func TestAnalyzer_SummarizeCPU(t *testing.T) {
	a := New(Config{CPUHighThreshold: 70, CPULowThreshold: 20})

	tests := []struct {
		name    string
		points  []models.Datapoint
		avg     float64
		samples int
		isHigh  bool
		isLow   bool
	}{
		{name: "no samples is neither high nor low", points: nil},
		{name: "idle", points: points(2, 4, 3), avg: 3, samples: 3, isLow: true},
		{name: "normal", points: points(40, 50, 60), avg: 50, samples: 3},
		{name: "hot", points: points(80, 90, 100), avg: 90, samples: 3, isHigh: true},
		{name: "exactly at high threshold is not high", points: points(70), avg: 70, samples: 1},
		{name: "out of range values are clamped", points: points(150, -10), avg: 50, samples: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.SummarizeCPU(tt.points)

			assert.InDelta(t, tt.avg, w.AvgUtilizationPercent, 0.0001)
			assert.Equal(t, tt.samples, w.SampleCount)
			assert.Equal(t, tt.isHigh, w.IsHigh)
			assert.Equal(t, tt.isLow, w.IsLow)
		})
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	a := New(Config{})

	signal := a.Analyze("converter", points(0, 0, 0), points(1, 1, 1))

	assert.Equal(t, "converter", signal.ServiceID)
	assert.True(t, signal.Reliable)
	assert.False(t, signal.Traffic.HasTraffic)
	assert.True(t, signal.CPU.IsLow)
	assert.False(t, signal.ObservedAt.IsZero())
}
