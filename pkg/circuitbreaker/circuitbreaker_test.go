package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errUnavailable = errors.New("store unavailable")
	errNotFound    = errors.New("not found")
)

// storeBreaker counts only connectivity failures, the way the store wrappers do.
func storeBreaker(threshold int, timeout time.Duration) *CircuitBreaker {
	return New(Config{
		FailureThreshold:    threshold,
		SuccessThreshold:    2,
		Timeout:             timeout,
		MaxRequestsHalfOpen: 2,
		IsFailure: func(err error) bool {
			return errors.Is(err, errUnavailable)
		},
	})
}

func outage() error {
	return fmt.Errorf("dial tcp 10.0.0.7:27017: %w", errUnavailable)
}

func TestCircuitBreaker_OpensAfterConsecutiveOutages(t *testing.T) {
	cb := storeBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, cb.Execute(ctx, outage), errUnavailable)
	}
	assert.Equal(t, StateClosed, cb.GetState())

	require.ErrorIs(t, cb.Execute(ctx, outage), errUnavailable)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called, "open breaker must not reach the store")
}

func TestCircuitBreaker_DomainErrorsDoNotTrip(t *testing.T) {
	cb := storeBreaker(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		err := cb.Execute(ctx, func() error { return errNotFound })
		require.Same(t, errNotFound, err)
	}

	stats := cb.GetStats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Zero(t, stats.FailureCount)
}

func TestCircuitBreaker_DomainErrorBreaksOutageStreak(t *testing.T) {
	cb := storeBreaker(3, time.Minute)
	ctx := context.Background()

	_ = cb.Execute(ctx, outage)
	_ = cb.Execute(ctx, outage)
	_ = cb.Execute(ctx, func() error { return errNotFound })
	_ = cb.Execute(ctx, outage)

	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, 1, cb.GetStats().FailureCount)
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	tests := []struct {
		name  string
		calls []func() error
		want  State
	}{
		{
			name:  "recovers after enough successful trial calls",
			calls: []func() error{func() error { return nil }, func() error { return nil }},
			want:  StateClosed,
		},
		{
			name:  "stays half-open until the success threshold is met",
			calls: []func() error{func() error { return nil }},
			want:  StateHalfOpen,
		},
		{
			name:  "reopens on an outage during the trial",
			calls: []func() error{func() error { return nil }, outage},
			want:  StateOpen,
		},
		{
			name:  "domain error during the trial is a success",
			calls: []func() error{func() error { return errNotFound }, func() error { return errNotFound }},
			want:  StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := storeBreaker(1, 20*time.Millisecond)
			ctx := context.Background()

			_ = cb.Execute(ctx, outage)
			require.Equal(t, StateOpen, cb.GetState())
			time.Sleep(30 * time.Millisecond)

			for _, call := range tt.calls {
				_ = cb.Execute(ctx, call)
			}
			assert.Equal(t, tt.want, cb.GetState())
		})
	}
}

func TestCircuitBreaker_HalfOpenLimitsTrialCalls(t *testing.T) {
	cb := New(Config{
		FailureThreshold:    1,
		SuccessThreshold:    3,
		Timeout:             20 * time.Millisecond,
		MaxRequestsHalfOpen: 1,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, outage)
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	require.Equal(t, StateHalfOpen, cb.GetState())

	err := cb.Execute(ctx, func() error {
		t.Error("second trial call must be rejected")
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
}

func TestDo(t *testing.T) {
	cb := storeBreaker(1, time.Minute)
	ctx := context.Background()

	doc, err := Do(ctx, cb, func() (string, error) { return "stream-1", nil })
	require.NoError(t, err)
	assert.Equal(t, "stream-1", doc)

	doc, err = Do(ctx, cb, func() (string, error) { return "partial", outage() })
	assert.ErrorIs(t, err, errUnavailable)
	assert.Empty(t, doc, "failed call must return the zero value")

	doc, err = Do(ctx, cb, func() (string, error) { return "stream-1", nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.Contains(t, err.Error(), "state open")
	assert.Empty(t, doc)
}

func TestDo_DomainErrorKeepsResult(t *testing.T) {
	cb := storeBreaker(1, time.Minute)

	n, err := Do(context.Background(), cb, func() (int, error) { return 7, errNotFound })
	assert.Same(t, errNotFound, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_CancelledContextIsNotCounted(t *testing.T) {
	cb := storeBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func() error {
		t.Error("function must not run with a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Zero(t, cb.GetStats().FailureCount)
}

func TestCircuitBreaker_ReportsTransitions(t *testing.T) {
	cb := New(Config{
		FailureThreshold:    1,
		SuccessThreshold:    1,
		Timeout:             20 * time.Millisecond,
		MaxRequestsHalfOpen: 1,
	})

	var (
		mu          sync.Mutex
		transitions []string
	)
	cb.OnStateChange(func(from, to State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, from.String()+"->"+to.String())
	})
	recorded := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), transitions...)
	}

	ctx := context.Background()
	_ = cb.Execute(ctx, outage)
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Execute(ctx, func() error { return nil }))

	require.Eventually(t, func() bool { return len(recorded()) == 3 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"closed->open", "open->half-open", "half-open->closed"}, recorded())
}

func TestCircuitBreaker_GetStats(t *testing.T) {
	cb := storeBreaker(5, time.Minute)
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return nil })
	_ = cb.Execute(ctx, outage)
	_ = cb.Execute(ctx, outage)

	stats := cb.GetStats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Equal(t, 2, stats.FailureCount)
	assert.Zero(t, stats.SuccessCount)
	assert.False(t, stats.LastFailureTime.IsZero())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := storeBreaker(1, time.Hour)
	ctx := context.Background()

	_ = cb.Execute(ctx, outage)
	require.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Execute(ctx, func() error { return nil }))
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := storeBreaker(1000, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = cb.Execute(ctx, func() error {
				if i%3 == 0 {
					return outage()
				}
				return nil
			})
			_ = cb.GetStats()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5, cfg.FailureThreshold)
	assert.Equal(t, 2, cfg.SuccessThreshold)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRequestsHalfOpen)
	assert.Nil(t, cfg.IsFailure)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}
