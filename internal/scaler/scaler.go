package scaler

import (
	"context"
	"errors"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

var (
	ErrScalingApplyFailed = errors.New("scaling apply failed")
	ErrInvalidTarget      = errors.New("invalid target count")
	ErrServiceNotFound    = errors.New("service not found")
)

// ComputeControl reads and sets the desired instance count of a service
type ComputeControl interface {
	// GetServiceState returns the desired, running and pending counts
	GetServiceState(ctx context.Context, serviceID string) (*models.ServiceState, error)

	// SetDesiredCount asks the platform to converge the service to count instances
	SetDesiredCount(ctx context.Context, serviceID string, count int) error

	// Close releases resources
	Close() error
}

// Notifier receives zero-boundary transitions. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, notice models.ZeroBoundaryNotice) error
}
