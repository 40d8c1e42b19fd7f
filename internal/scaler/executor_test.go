package scaler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/capacity-controller/internal/metrics"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []models.ZeroBoundaryNotice
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, notice models.ZeroBoundaryNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return n.err
}

func newTestExecutor(notifier Notifier) (*Executor, *MemoryControl) {
	control := NewMemoryControl(MemoryControlConfig{})
	control.InitializeService("converter", 2)
	return NewExecutor(control, notifier, metrics.New()), control
}

func decision(action models.ScalingAction, current, target int) models.ScalingDecision {
	return models.ScalingDecision{
		ServiceID:    "converter",
		Action:       action,
		CurrentCount: current,
		TargetCount:  target,
		Reason:       "test",
	}
}

func TestExecutor_NoChangeNeverCallsComputeControl(t *testing.T) {
	notifier := &recordingNotifier{}
	exec, control := newTestExecutor(notifier)

	change, err := exec.Execute(context.Background(), "converter", decision(models.ActionNoChange, 2, 2))

	require.NoError(t, err)
	assert.Nil(t, change)
	assert.Equal(t, 0, control.SetCalls())
	assert.Empty(t, notifier.notices)
}

func TestExecutor_Execute(t *testing.T) {
	tests := []struct {
		name           string
		decision       models.ScalingDecision
		expectNotified bool
		expectNotices  int
	}{
		{name: "scale up", decision: decision(models.ActionScaleUp, 2, 3)},
		{name: "scale down", decision: decision(models.ActionScaleDown, 2, 1)},
		{name: "scale to zero notifies", decision: decision(models.ActionScaleToZero, 2, 0), expectNotified: true, expectNotices: 1},
		{name: "scale from zero notifies", decision: decision(models.ActionScaleFromZero, 0, 1), expectNotified: true, expectNotices: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			exec, control := newTestExecutor(notifier)

			change, err := exec.Execute(context.Background(), "converter", tt.decision)
			require.NoError(t, err)
			require.NotNil(t, change)

			assert.Equal(t, tt.decision.Action, change.Action)
			assert.Equal(t, tt.decision.CurrentCount, change.PreviousCount)
			assert.Equal(t, tt.decision.TargetCount, change.TargetCount)
			assert.Equal(t, tt.expectNotified, change.Notified)
			assert.Len(t, notifier.notices, tt.expectNotices)
			assert.Equal(t, 1, control.SetCalls())

			state, err := control.GetServiceState(context.Background(), "converter")
			require.NoError(t, err)
			assert.Equal(t, tt.decision.TargetCount, state.DesiredCount)
		})
	}
}

func TestExecutor_ApplyFailureIsNotRetried(t *testing.T) {
	exec, control := newTestExecutor(&recordingNotifier{})
	control.SetFailure(errors.New("throttled"))

	change, err := exec.Execute(context.Background(), "converter", decision(models.ActionScaleUp, 2, 3))

	assert.Nil(t, change)
	assert.ErrorIs(t, err, ErrScalingApplyFailed)
	assert.Contains(t, err.Error(), "throttled")
	assert.Equal(t, 1, control.SetCalls())
	assert.Equal(t, 1.0, testutil.ToFloat64(exec.metrics.ScalingFailures("converter", "SCALE_UP")))
}

func TestExecutor_NotifierFailureDoesNotFailExecution(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("sns unavailable")}
	exec, _ := newTestExecutor(notifier)

	change, err := exec.Execute(context.Background(), "converter", decision(models.ActionScaleToZero, 2, 0))

	require.NoError(t, err)
	require.NotNil(t, change)
	assert.False(t, change.Notified)
	require.Len(t, notifier.notices, 1)
	assert.Equal(t, models.ActionScaleToZero, notifier.notices[0].Action)
}

func TestExecutor_NilNotifier(t *testing.T) {
	exec, _ := newTestExecutor(nil)

	change, err := exec.Execute(context.Background(), "converter", decision(models.ActionScaleFromZero, 0, 1))

	require.NoError(t, err)
	assert.False(t, change.Notified)
}
