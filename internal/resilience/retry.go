package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls a fixed-delay retry loop.
type RetryConfig struct {
	// Attempts is the total number of calls including the first. Values
	// below 1 mean a single call.
	Attempts int

	// Delay is the pause between attempts.
	Delay time.Duration

	// ShouldRetry filters which errors are retried. Nil retries every error.
	ShouldRetry func(err error) bool

	// OnRetry is called before each pause with the attempt that failed.
	OnRetry func(attempt int, err error)
}

// RetryOnce is the store-write policy: one retry after delay.
func RetryOnce(delay time.Duration) RetryConfig {
	return RetryConfig{Attempts: 2, Delay: delay}
}

// Do calls fn until it succeeds, the attempts run out, ShouldRetry rejects
// the error, or ctx is done. It returns the last error.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if attempt == attempts || ctx.Err() != nil {
			break
		}
		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err) {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		if !sleep(ctx, cfg.Delay) {
			break
		}
	}
	return zero, lastErr
}

// sleep waits for d or until ctx is done. It reports whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(operation string, fields ...zap.Field) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			append([]zap.Field{
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			}, fields...)...,
		)
	}
}
