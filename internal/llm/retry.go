package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"time"
)

// RetryConfig defines retry behavior for provider calls.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts
	BaseDelay  time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries
}

// DefaultRetryConfig provides sensible defaults for retry behavior.
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 3,
	BaseDelay:  100 * time.Millisecond,
	MaxDelay:   5 * time.Second,
}

// CompleteWithRetry calls the client, retrying transient failures with
// exponential backoff and jitter. Non-retryable kinds (bad credentials,
// malformed requests) fail immediately.
func CompleteWithRetry(ctx context.Context, client Client, req CompletionRequest, config RetryConfig) (*CompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		resp, err := client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, err
		}
		if attempt == config.MaxRetries {
			break
		}

		delay := calculateBackoff(attempt, config.BaseDelay, config.MaxDelay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("request cancelled during retry: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", config.MaxRetries, lastErr)
}

// isRetryableError reports whether an error is transient. Classification
// rides on the tagged kinds the provider clients produce plus network error
// types; messages are never inspected.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if stderrors.Is(err, ErrRateLimited) || stderrors.Is(err, ErrServerError) {
		return true
	}
	if stderrors.Is(err, ErrUnauthorized) || stderrors.Is(err, ErrBadRequest) {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	return false
}

// calculateBackoff calculates the delay before the next retry attempt,
// using exponential backoff with jitter to avoid thundering herd.
func calculateBackoff(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt))) * baseDelay

	if delay > maxDelay {
		delay = maxDelay
	}

	// Jitter: random factor between 0.5 and 1.5.
	jitter := 0.5 + rand.Float64()
	delay = time.Duration(float64(delay) * jitter)

	return delay
}
