package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrMalformedReply marks a reply that could not be decoded into the
// requested structure. Such replies are retried like transient failures.
var ErrMalformedReply = errors.New("malformed model reply")

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr) || errors.Is(err, ErrMalformedReply)
}

// RetryPolicy bounds attempts at a model call and spaces them with jittered
// exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	base := p.BaseDelay * time.Duration(1<<uint(attempt))
	if p.MaxDelay > 0 && base > p.MaxDelay {
		base = p.MaxDelay
	}
	if base <= 1 {
		return base
	}
	return base + time.Duration(rand.Int64N(int64(base)/2))
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempts run out. onRetry, when set, is told about each failed attempt
// that will be retried.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	attempts := max(p.MaxAttempts, 1)
	var lastErr error
	for attempt := range attempts {
		lastErr = fn(ctx)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}
		if onRetry != nil {
			onRetry(attempt, lastErr)
		}
		select {
		case <-time.After(p.Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
