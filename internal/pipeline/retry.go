package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/storysignals/internal/draftsink"
)

const (
	MaxRetries = 3
	maxBackoff = 30 * time.Second
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *draftsink.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns the wait before retry n (0-indexed): one second doubling
// per attempt, capped at 30s, plus up to 50% jitter.
func Backoff(attempt int) time.Duration {
	return scaledBackoff(time.Second, attempt)
}

func scaledBackoff(unit time.Duration, attempt int) time.Duration {
	base := unit << uint(min(attempt, 16))
	if base > maxBackoff {
		base = maxBackoff
	}
	if base <= 1 {
		return base
	}
	return base + time.Duration(rand.Int64N(int64(base)/2))
}

// withRetry calls fn up to MaxRetries times while it fails retryably. It
// returns the attempt count and the last error.
func withRetry(ctx context.Context, backoff func(int) time.Duration, fn func() error) (int, error) {
	var err error
	for attempt := range MaxRetries {
		if err = fn(); err == nil || !IsRetryable(err) {
			return attempt + 1, err
		}
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return attempt + 1, ctx.Err()
		}
	}
	return MaxRetries, err
}
