package scaler

import (
	"context"
	"fmt"
	"time"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/internal/metrics"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

// Executor applies scaling decisions through compute control. It makes a
// single attempt per decision; the next scheduled cycle is the retry.
type Executor struct {
	control  ComputeControl
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewExecutor(control ComputeControl, notifier Notifier, m *metrics.Metrics) *Executor {
	if m == nil {
		m = metrics.Get()
	}
	return &Executor{
		control:  control,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// Execute returns (nil, nil) for NO_CHANGE without touching compute control.
// A rejected update is returned as ErrScalingApplyFailed. Notification
// failures are logged and reflected in AppliedChange.Notified only.
func (e *Executor) Execute(ctx context.Context, serviceID string, decision models.ScalingDecision) (*models.AppliedChange, error) {
	if !decision.ShouldExecute() {
		return nil, nil
	}

	action := string(decision.Action)
	if err := e.control.SetDesiredCount(ctx, serviceID, decision.TargetCount); err != nil {
		e.metrics.IncScalingFailure(serviceID, action)
		logger.WithService(serviceID).Errorf("Failed to apply %s (%d -> %d): %v",
			decision.Action, decision.CurrentCount, decision.TargetCount, err)
		return nil, fmt.Errorf("%w: %s %d -> %d: %w", ErrScalingApplyFailed,
			decision.Action, decision.CurrentCount, decision.TargetCount, err)
	}

	e.metrics.IncScalingApplied(serviceID, action)
	e.metrics.SetDesiredCount(serviceID, decision.TargetCount)

	change := &models.AppliedChange{
		ServiceID:     serviceID,
		Action:        decision.Action,
		PreviousCount: decision.CurrentCount,
		TargetCount:   decision.TargetCount,
		Reason:        decision.Reason,
		AppliedAt:     e.now(),
	}

	if decision.CrossesZero() {
		change.Notified = e.notify(ctx, change)
	}

	logger.WithService(serviceID).Infof("Applied %s: %d -> %d (%s)",
		decision.Action, decision.CurrentCount, decision.TargetCount, decision.Reason)

	return change, nil
}

func (e *Executor) notify(ctx context.Context, change *models.AppliedChange) bool {
	if e.notifier == nil {
		return false
	}

	err := e.notifier.Notify(ctx, models.ZeroBoundaryNotice{
		ServiceID: change.ServiceID,
		Action:    change.Action,
		Reason:    change.Reason,
		Timestamp: change.AppliedAt,
	})
	if err != nil {
		e.metrics.IncNotifyFailure(change.ServiceID)
		logger.WithService(change.ServiceID).Warnf("Zero-boundary notification failed: %v", err)
		return false
	}
	return true
}
