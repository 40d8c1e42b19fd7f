package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/capacity-controller/internal/analyzer"
	"github.com/OldStager01/capacity-controller/internal/resilience"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

var target = models.ServiceTarget{ServiceID: "converter", MinCapacity: 0, MaxCapacity: 3}

func newTestClient(src Source, timeout time.Duration) *Client {
	a := analyzer.New(analyzer.Config{CPUHighThreshold: 70, CPULowThreshold: 20, Window: 15 * time.Minute})
	return NewClient(src, a, ClientConfig{Timeout: timeout})
}

func TestClient_Observe_BuildsSignal(t *testing.T) {
	src := NewStaticSource()
	src.SetValues("converter", models.MetricRequestCount, 5*time.Minute, 100, 100, 100)
	src.SetValues("converter", models.MetricCPUUtilization, 5*time.Minute, 85, 90, 95)

	signal := newTestClient(src, time.Second).Observe(context.Background(), target)

	require.True(t, signal.Reliable)
	assert.Equal(t, int64(300), signal.Traffic.TotalRequests)
	assert.InDelta(t, 20.0, signal.Traffic.AvgRequestsPerMinute, 0.001)
	assert.True(t, signal.CPU.IsHigh)
	assert.Equal(t, 2, src.Calls())
}

func TestClient_Observe_TimeoutYieldsNoSignal(t *testing.T) {
	src := NewStaticSource()
	src.SetDelay(time.Second)

	var hookErr error
	client := newTestClient(src, 20*time.Millisecond)
	client.OnError(func(serviceID string, err error) { hookErr = err })

	signal := client.Observe(context.Background(), target)

	assert.False(t, signal.Reliable)
	assert.NotEmpty(t, signal.Reason)
	assert.ErrorIs(t, hookErr, ErrMetricsUnavailable)
	assert.ErrorIs(t, hookErr, ErrTimeout)
}

func TestClient_Observe_BackendFailureYieldsNoSignal(t *testing.T) {
	src := NewStaticSource()
	src.SetShouldFail(true, errors.New("backend down"))

	signal := newTestClient(src, time.Second).Observe(context.Background(), target)

	assert.False(t, signal.Reliable)
	assert.Contains(t, signal.Reason, "backend down")
}

func TestClient_Observe_NoDatapointsIsReliableButEmpty(t *testing.T) {
	signal := newTestClient(NewStaticSource(), time.Second).Observe(context.Background(), target)

	assert.True(t, signal.Reliable)
	assert.False(t, signal.Traffic.HasTraffic)
	assert.Zero(t, signal.CPU.SampleCount)
	assert.False(t, signal.CPU.IsLow)
}

func TestResilientSource_RetriesThenSucceeds(t *testing.T) {
	flaky := &flakySource{failures: 1, points: []models.Datapoint{{Timestamp: time.Now(), Value: 1}}}
	src := NewResilientSource(ResilientSourceConfig{
		Source:        flaky,
		MaxFailures:   5,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	points, err := src.Query(context.Background(), Query{Target: target, Metric: models.MetricRequestCount})

	require.NoError(t, err)
	assert.Len(t, points, 1)
	assert.Equal(t, 2, flaky.calls)
	assert.Equal(t, resilience.StateClosed, src.CircuitState())
}

func TestResilientSource_OpensCircuit(t *testing.T) {
	flaky := &flakySource{failures: 100}
	src := NewResilientSource(ResilientSourceConfig{
		Source:        flaky,
		MaxFailures:   2,
		Timeout:       time.Hour,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	})

	_, err := src.Query(context.Background(), Query{Target: target})
	require.Error(t, err)
	assert.Equal(t, resilience.StateOpen, src.CircuitState())

	_, err = src.Query(context.Background(), Query{Target: target})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, flaky.calls)
}

type flakySource struct {
	failures int
	calls    int
	points   []models.Datapoint
}

func (f *flakySource) Query(ctx context.Context, q Query) ([]models.Datapoint, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, ErrMetricsUnavailable
	}
	return f.points, nil
}

func (f *flakySource) HealthCheck(ctx context.Context) error { return nil }
func (f *flakySource) Close() error                          { return nil }
