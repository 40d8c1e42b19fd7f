package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errFail = errors.New("fail")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(cfg)
	cb.now = clock.Now
	return cb, clock
}

func failN(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		_ = cb.Execute(func() error { return errFail })
	}
}

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		config        CircuitBreakerConfig
		setup         func(cb *CircuitBreaker, clock *fakeClock)
		expectedState State
	}{
		{
			name:          "successful execution stays closed",
			config:        CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute},
			setup:         func(cb *CircuitBreaker, _ *fakeClock) { _ = cb.Execute(func() error { return nil }) },
			expectedState: StateClosed,
		},
		{
			name:          "opens after max failures",
			config:        CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute},
			setup:         func(cb *CircuitBreaker, _ *fakeClock) { failN(cb, 3) },
			expectedState: StateOpen,
		},
		{
			name:   "half-open after timeout",
			config: CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute, HalfOpenMax: 2},
			setup: func(cb *CircuitBreaker, clock *fakeClock) {
				failN(cb, 3)
				clock.Advance(2 * time.Minute)
				_ = cb.Execute(func() error { return nil })
			},
			expectedState: StateHalfOpen,
		},
		{
			name:   "closes after half-open successes",
			config: CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute, HalfOpenMax: 2},
			setup: func(cb *CircuitBreaker, clock *fakeClock) {
				failN(cb, 3)
				clock.Advance(2 * time.Minute)
				_ = cb.Execute(func() error { return nil })
				_ = cb.Execute(func() error { return nil })
			},
			expectedState: StateClosed,
		},
		{
			name:   "half-open failure reopens",
			config: CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute},
			setup: func(cb *CircuitBreaker, clock *fakeClock) {
				failN(cb, 3)
				clock.Advance(2 * time.Minute)
				failN(cb, 1)
			},
			expectedState: StateOpen,
		},
		{
			name:   "reset returns to closed",
			config: CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Hour},
			setup: func(cb *CircuitBreaker, _ *fakeClock) {
				failN(cb, 3)
				cb.Reset()
			},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clock := newTestBreaker(tt.config)

			tt.setup(cb, clock)

			assert.Equal(t, tt.expectedState, cb.State())
		})
	}
}

func TestCircuitBreaker_OpenState_RejectsRequest(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Hour})
	failN(cb, 3)

	called := false
	err := cb.Execute(func() error { called = true; return nil })

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_CallerCancellationNotCounted(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	err := cb.ExecuteContext(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	changes := make(chan State, 1)
	cb, _ := newTestBreaker(CircuitBreakerConfig{
		Name:        "telemetry",
		MaxFailures: 1,
		OnStateChange: func(name string, from, to State) {
			assert.Equal(t, "telemetry", name)
			changes <- to
		},
	})

	failN(cb, 1)

	select {
	case to := <-changes:
		assert.Equal(t, StateOpen, to)
	case <-time.After(time.Second):
		t.Fatal("state change callback not invoked")
	}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name          string
		attempts      int
		failures      int
		err           error
		expectErr     bool
		expectedCalls int
	}{
		{name: "first try succeeds", attempts: 3, failures: 0, expectedCalls: 1},
		{name: "succeeds after retries", attempts: 3, failures: 2, err: errFail, expectedCalls: 3},
		{name: "exhausts attempts", attempts: 2, failures: 5, err: errFail, expectErr: true, expectedCalls: 2},
		{name: "circuit open is not retried", attempts: 3, failures: 5, err: ErrCircuitOpen, expectErr: true, expectedCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), RetryConfig{Attempts: tt.attempts, InitialDelay: time.Millisecond}, func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedCalls, calls)
		})
	}
}

func TestRetry_StopsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Retry(ctx, RetryConfig{Attempts: 5, InitialDelay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errFail
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
