package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Config holds retry configuration
type Config struct {
	Enabled            bool          `yaml:"enabled"`       // Enable/disable retry logic
	MaxAttempts        int           `yaml:"max_attempts"`  // Maximum number of retry attempts after the first call
	InitialDelay       time.Duration `yaml:"initial_delay"` // Initial delay before first retry
	MaxDelay           time.Duration `yaml:"max_delay"`     // Maximum delay between retries
	Multiplier         float64       `yaml:"multiplier"`    // Exponential backoff multiplier (typically 2.0)
	Jitter             bool          `yaml:"jitter"`        // Add up to ±25% random variation
	RetryableErrors    []error       `yaml:"-"`             // Errors (matched with errors.Is) that trigger retry; nil = all errors
	NonRetryableErrors []error       `yaml:"-"`             // Errors (matched with errors.Is) that stop immediately
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Retry executes a function with exponential backoff retry logic
func Retry(ctx context.Context, cfg Config, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult executes a function that returns a result with exponential backoff retry logic.
// Errors that must not be retried are returned unwrapped.
func RetryWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T

	if !cfg.Enabled {
		return fn()
	}

	var lastErr error

	for attempt := 0; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, cancelled("retry cancelled", ctx.Err(), lastErr)
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if matchesAny(err, cfg.NonRetryableErrors) {
			return zero, err
		}
		if len(cfg.RetryableErrors) > 0 && !matchesAny(err, cfg.RetryableErrors) {
			return zero, err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, cancelled("retry cancelled during wait", ctx.Err(), lastErr)
		case <-time.After(calculateDelay(cfg, attempt)):
		}
	}

	return zero, fmt.Errorf("max attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

// cancelled keeps the last attempt's error in the chain so callers can still
// classify the failure with errors.Is.
func cancelled(msg string, ctxErr, lastErr error) error {
	if lastErr == nil {
		return fmt.Errorf("%s: %w", msg, ctxErr)
	}
	return fmt.Errorf("%s: %w: %w", msg, ctxErr, lastErr)
}

// calculateDelay calculates the delay for exponential backoff
func calculateDelay(cfg Config, attempt int) time.Duration {
	// initialDelay * (multiplier ^ attempt)
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt))

	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.Jitter {
		// Uniform in [0.75, 1.25) of the computed delay.
		delay *= 0.75 + rand.Float64()*0.5
	}

	return time.Duration(delay)
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
