package scaler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryControl_ProvisionsPendingTasks(t *testing.T) {
	running := make(chan string, 4)
	control := NewMemoryControl(MemoryControlConfig{
		ProvisionTime: 20 * time.Millisecond,
		Callbacks: Callbacks{
			OnTaskRunning: func(serviceID, taskID string) { running <- taskID },
		},
	})
	control.InitializeService("converter", 0)
	ctx := context.Background()

	require.NoError(t, control.SetDesiredCount(ctx, "converter", 2))

	state, err := control.GetServiceState(ctx, "converter")
	require.NoError(t, err)
	assert.Equal(t, 2, state.DesiredCount)
	assert.Equal(t, 2, state.PendingCount)
	assert.False(t, state.IsSettled())

	for i := 0; i < 2; i++ {
		select {
		case <-running:
		case <-time.After(time.Second):
			t.Fatal("task never became running")
		}
	}

	state, err = control.GetServiceState(ctx, "converter")
	require.NoError(t, err)
	assert.Equal(t, 2, state.RunningCount)
	assert.True(t, state.IsSettled())
}

func TestMemoryControl_ScaleInDropsPendingFirst(t *testing.T) {
	control := NewMemoryControl(MemoryControlConfig{ProvisionTime: time.Hour})
	control.InitializeService("converter", 2)
	ctx := context.Background()

	require.NoError(t, control.SetDesiredCount(ctx, "converter", 4))
	require.NoError(t, control.SetDesiredCount(ctx, "converter", 2))

	state, err := control.GetServiceState(ctx, "converter")
	require.NoError(t, err)
	assert.Equal(t, 2, state.RunningCount)
	assert.Equal(t, 0, state.PendingCount)

	require.NoError(t, control.SetDesiredCount(ctx, "converter", 0))
	state, err = control.GetServiceState(ctx, "converter")
	require.NoError(t, err)
	assert.True(t, state.IsScaledToZero())
	assert.Equal(t, 0, state.RunningCount)
}

func TestMemoryControl_Errors(t *testing.T) {
	control := NewMemoryControl(MemoryControlConfig{})
	ctx := context.Background()

	_, err := control.GetServiceState(ctx, "missing")
	assert.ErrorIs(t, err, ErrServiceNotFound)

	assert.ErrorIs(t, control.SetDesiredCount(ctx, "missing", 1), ErrServiceNotFound)
	assert.ErrorIs(t, control.SetDesiredCount(ctx, "missing", -1), ErrInvalidTarget)
}

func TestMemoryControl_DesiredChangedCallback(t *testing.T) {
	changes := make(chan [2]int, 1)
	control := NewMemoryControl(MemoryControlConfig{
		Callbacks: Callbacks{
			OnDesiredChanged: func(serviceID string, from, to int) { changes <- [2]int{from, to} },
		},
	})
	control.InitializeService("converter", 1)

	require.NoError(t, control.SetDesiredCount(context.Background(), "converter", 3))

	select {
	case c := <-changes:
		assert.Equal(t, [2]int{1, 3}, c)
	case <-time.After(time.Second):
		t.Fatal("callback not invoked")
	}
}
