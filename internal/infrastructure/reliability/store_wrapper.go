package reliability

import (
	"context"
	"errors"
	"fmt"

	"streamhub/internal/core/domain"
	"streamhub/internal/core/ports"
	"streamhub/pkg/circuitbreaker"
	"streamhub/pkg/retry"

	"go.uber.org/zap"
)

// BreakerObserver is notified when a store breaker changes state.
type BreakerObserver interface {
	RecordCircuitBreakerState(store string, state int)
}

// guard runs store calls through a circuit breaker that only counts
// ErrStoreUnavailable, and retries reads that failed the same way.
type guard struct {
	name           string
	retryConfig    retry.Config
	circuitBreaker *circuitbreaker.CircuitBreaker
}

func newGuard(name string, retryConfig retry.Config, cbConfig circuitbreaker.Config, logger *zap.SugaredLogger, observer BreakerObserver) *guard {
	cbConfig.IsFailure = func(err error) bool {
		return errors.Is(err, domain.ErrStoreUnavailable)
	}

	retryConfig.RetryableErrors = []error{domain.ErrStoreUnavailable}
	retryConfig.NonRetryableErrors = []error{circuitbreaker.ErrOpen}

	g := &guard{
		name:           name,
		retryConfig:    retryConfig,
		circuitBreaker: circuitbreaker.New(cbConfig),
	}

	g.circuitBreaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("store circuit breaker state changed",
			"store", name,
			"from", from.String(),
			"to", to.String(),
		)
		if observer != nil {
			observer.RecordCircuitBreakerState(name, int(to))
		}
	})

	return g
}

func (g *guard) stats() circuitbreaker.Stats {
	return g.circuitBreaker.GetStats()
}

func guardedWrite[T any](ctx context.Context, g *guard, fn func() (T, error)) (T, error) {
	v, err := circuitbreaker.Do(ctx, g.circuitBreaker, fn)
	return v, g.unavailable(err)
}

func guardedRead[T any](ctx context.Context, g *guard, fn func() (T, error)) (T, error) {
	v, err := retry.RetryWithResult(ctx, g.retryConfig, func() (T, error) {
		return guardedWrite(ctx, g, fn)
	})
	return v, g.unavailable(err)
}

// unavailable classifies an open breaker and an expired or cancelled context
// as ErrStoreUnavailable. Store errors that already carry a kind pass through.
func (g *guard) unavailable(err error) error {
	if err == nil || errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, circuitbreaker.ErrOpen) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s store: %w: %w", g.name, domain.ErrStoreUnavailable, err)
	}
	return err
}

// StreamRepositoryWrapper wraps a StreamRepository with retry logic and circuit breaker
type StreamRepositoryWrapper struct {
	repo  ports.StreamRepository
	guard *guard
}

// NewStreamRepositoryWrapper creates a new wrapper with retry and circuit breaker
func NewStreamRepositoryWrapper(
	repo ports.StreamRepository,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	logger *zap.SugaredLogger,
	observer BreakerObserver,
) *StreamRepositoryWrapper {
	return &StreamRepositoryWrapper{
		repo:  repo,
		guard: newGuard("stream", retryConfig, cbConfig, logger, observer),
	}
}

func (w *StreamRepositoryWrapper) Create(ctx context.Context, stream *domain.Stream) (*domain.Stream, error) {
	return guardedWrite(ctx, w.guard, func() (*domain.Stream, error) {
		return w.repo.Create(ctx, stream)
	})
}

func (w *StreamRepositoryWrapper) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	return guardedRead(ctx, w.guard, func() (*domain.Stream, error) {
		return w.repo.GetByID(ctx, id)
	})
}

func (w *StreamRepositoryWrapper) ListAll(ctx context.Context) ([]*domain.Stream, error) {
	return guardedRead(ctx, w.guard, func() ([]*domain.Stream, error) {
		return w.repo.ListAll(ctx)
	})
}

func (w *StreamRepositoryWrapper) Update(ctx context.Context, id domain.StreamID, patch domain.StreamPatch) (*domain.Stream, error) {
	return guardedWrite(ctx, w.guard, func() (*domain.Stream, error) {
		return w.repo.Update(ctx, id, patch)
	})
}

func (w *StreamRepositoryWrapper) Delete(ctx context.Context, id domain.StreamID) (bool, error) {
	return guardedWrite(ctx, w.guard, func() (bool, error) {
		return w.repo.Delete(ctx, id)
	})
}

// GetCircuitBreakerStats returns statistics for the stream store breaker
func (w *StreamRepositoryWrapper) GetCircuitBreakerStats() circuitbreaker.Stats {
	return w.guard.stats()
}

// UserRepositoryWrapper wraps a UserRepository with retry logic and circuit breaker
type UserRepositoryWrapper struct {
	repo  ports.UserRepository
	guard *guard
}

// NewUserRepositoryWrapper creates a new wrapper with retry and circuit breaker
func NewUserRepositoryWrapper(
	repo ports.UserRepository,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	logger *zap.SugaredLogger,
	observer BreakerObserver,
) *UserRepositoryWrapper {
	return &UserRepositoryWrapper{
		repo:  repo,
		guard: newGuard("user", retryConfig, cbConfig, logger, observer),
	}
}

func (w *UserRepositoryWrapper) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return guardedRead(ctx, w.guard, func() (*domain.User, error) {
		return w.repo.GetByEmail(ctx, email)
	})
}

func (w *UserRepositoryWrapper) Add(ctx context.Context, user *domain.User) error {
	_, err := guardedWrite(ctx, w.guard, func() (struct{}, error) {
		return struct{}{}, w.repo.Add(ctx, user)
	})
	return err
}

// GetCircuitBreakerStats returns statistics for the user store breaker
func (w *UserRepositoryWrapper) GetCircuitBreakerStats() circuitbreaker.Stats {
	return w.guard.stats()
}

var (
	_ ports.StreamRepository = (*StreamRepositoryWrapper)(nil)
	_ ports.UserRepository   = (*UserRepositoryWrapper)(nil)
)
