// Package retry runs fallible operations with exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/starford/bilimsoz/internal/apperr"
)

// Config holds retry behaviour.
type Config struct {
	MaxRetries int           // additional attempts after the first
	BaseDelay  time.Duration // delay before the first retry, doubled each time
	MaxDelay   time.Duration // upper bound on a single delay
}

// DefaultConfig returns the synchronizer's default retry policy.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   4 * time.Second,
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, the
// retries are exhausted or ctx is done. Only errors for which
// apperr.IsRetryable is true are retried.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !apperr.IsRetryable(err) || attempt == cfg.MaxRetries {
			break
		}

		t := time.NewTimer(backoff(cfg, attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, lastErr
		case <-t.C:
		}
	}

	return zero, lastErr
}

func backoff(cfg Config, attempt int) time.Duration {
	d := cfg.BaseDelay * time.Duration(1<<attempt)
	if cfg.MaxDelay > 0 && d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	return d
}
