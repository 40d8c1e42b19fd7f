package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

// StaticSource serves fixed per-service series. Used in development mode and tests.
type StaticSource struct {
	mu         sync.RWMutex
	series     map[string]map[models.MetricName][]models.Datapoint
	shouldFail bool
	failure    error
	delay      time.Duration
	calls      int
}

func NewStaticSource() *StaticSource {
	return &StaticSource{
		series: make(map[string]map[models.MetricName][]models.Datapoint),
	}
}

func (s *StaticSource) SetSeries(serviceID string, metric models.MetricName, points []models.Datapoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.series[serviceID] == nil {
		s.series[serviceID] = make(map[models.MetricName][]models.Datapoint)
	}
	s.series[serviceID][metric] = points
}

// SetValues fills a metric with one datapoint per period ending now
func (s *StaticSource) SetValues(serviceID string, metric models.MetricName, period time.Duration, values ...float64) {
	now := time.Now().Truncate(period)
	points := make([]models.Datapoint, len(values))
	for i, v := range values {
		points[i] = models.Datapoint{
			Timestamp: now.Add(-time.Duration(len(values)-1-i) * period),
			Value:     v,
		}
	}
	s.SetSeries(serviceID, metric, points)
}

func (s *StaticSource) SetShouldFail(shouldFail bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFail = shouldFail
	s.failure = err
}

// SetDelay makes every query block for d or until ctx is done
func (s *StaticSource) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *StaticSource) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

func (s *StaticSource) Query(ctx context.Context, q Query) ([]models.Datapoint, error) {
	s.mu.Lock()
	s.calls++
	delay := s.delay
	shouldFail, failure := s.shouldFail, s.failure
	points := append([]models.Datapoint(nil), s.series[q.Target.ServiceID][q.Metric]...)
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ErrTimeout
		case <-time.After(delay):
		}
	}

	if shouldFail {
		if failure != nil {
			return nil, failure
		}
		return nil, ErrMetricsUnavailable
	}

	return points, nil
}

func (s *StaticSource) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.shouldFail {
		return ErrMetricsUnavailable
	}
	return nil
}

func (s *StaticSource) Close() error {
	return nil
}
