package telemetry

import (
	"context"
	"time"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/internal/resilience"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

// ResilientSource wraps a Source with bounded retries behind a circuit breaker
type ResilientSource struct {
	source         Source
	circuitBreaker *resilience.CircuitBreaker
	retry          resilience.RetryConfig
}

type ResilientSourceConfig struct {
	Source        Source
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientSource(cfg ResilientSourceConfig) *ResilientSource {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "telemetry",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientSource{
		source:         cfg.Source,
		circuitBreaker: cb,
		retry: resilience.RetryConfig{
			Attempts:     cfg.RetryAttempts,
			InitialDelay: cfg.RetryDelay,
		},
	}
}

func (s *ResilientSource) Query(ctx context.Context, q Query) ([]models.Datapoint, error) {
	var points []models.Datapoint
	attempt := 0

	err := resilience.Retry(ctx, s.retry, func(ctx context.Context) error {
		attempt++
		return s.circuitBreaker.ExecuteContext(ctx, func(ctx context.Context) error {
			var err error
			points, err = s.source.Query(ctx, q)
			if err != nil {
				logger.WithService(q.Target.ServiceID).Warnf(
					"Telemetry attempt %d/%d for %s failed: %v",
					attempt, s.retry.Attempts, q.Metric, err,
				)
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	return points, nil
}

func (s *ResilientSource) HealthCheck(ctx context.Context) error {
	return s.source.HealthCheck(ctx)
}

func (s *ResilientSource) Close() error {
	return s.source.Close()
}

func (s *ResilientSource) CircuitState() resilience.State {
	return s.circuitBreaker.State()
}
