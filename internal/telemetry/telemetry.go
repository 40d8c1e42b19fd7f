package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

var (
	ErrMetricsUnavailable = errors.New("metrics unavailable")
	ErrTimeout            = errors.New("telemetry query timeout")
	ErrServiceNotFound    = errors.New("service not found")
	ErrInvalidResponse    = errors.New("invalid response from telemetry backend")
)

// Query describes one time-series request against the telemetry backend
type Query struct {
	Target    models.ServiceTarget
	Metric    models.MetricName
	Window    time.Duration
	Period    time.Duration
	Statistic models.Statistic
}

// Source defines the interface for telemetry backends
type Source interface {
	// Query returns the datapoints for the window ending now, ordered by timestamp
	Query(ctx context.Context, q Query) ([]models.Datapoint, error)

	// HealthCheck verifies the source can reach its backend
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the source
	Close() error
}
