package async

import (
	"context"
	"time"
)

// WithRetry runs op up to attempts times, sleeping base × 2^(n-1) between
// attempt n and n+1. No jitter, no total-time cap; the last error is returned
// on exhaustion. The wait is context-aware so cancellation cuts it short.
func WithRetry[T any](ctx context.Context, attempts int, base time.Duration, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		delay := base << (attempt - 1)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
