// Package retry wraps fallible remote calls with bounded, fixed-delay retry.
//
// Every error is retried uniformly, including ones that will never succeed
// (bad ticket id, bad credentials). That mirrors the tool's long-standing
// behavior; callers that care map the final error to a kind afterwards.
package retry

import (
	"context"
	"time"
)

// Config controls retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int
	// Delay is the fixed pause between attempts. No backoff is applied.
	Delay time.Duration
	// OnRetry, if set, is called before each sleep with the attempt number
	// that just failed (1-based) and its error.
	OnRetry func(attempt int, err error)
}

// Do runs fn up to cfg.MaxAttempts times, sleeping cfg.Delay between
// attempts. The last error is returned unchanged once attempts are
// exhausted. A canceled context aborts the wait and returns ctx.Err().
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		timer := time.NewTimer(cfg.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// DoFunc runs a function that returns only an error.
func DoFunc(ctx context.Context, cfg Config, fn func() error) error {
	_, err := Do(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
