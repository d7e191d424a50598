package llm

import (
	"context"
	"time"
)

// Retry policy defaults: up to 3 attempts with exponential backoff starting
// at one second. No jitter, no circuit breaker; every call pays its own
// retry cost independently.
const (
	DefaultRetryAttempts = 3
	DefaultRetryBaseWait = time.Second
)

// WithRetry invokes op up to maxAttempts times, sleeping baseWait*2^attempt
// (attempt zero-indexed) between failures. The last error is propagated once
// attempts are exhausted. The sleep respects context cancellation.
func WithRetry[T any](ctx context.Context, maxAttempts int, baseWait time.Duration, op func() (T, error)) (T, error) {
	var zero T
	if maxAttempts <= 0 {
		maxAttempts = DefaultRetryAttempts
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := baseWait << (attempt - 1)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(wait):
			}
		}

		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return zero, lastErr
}
