package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "rate limit should be retryable",
			err:      fmt.Errorf("%w: too many requests", ErrRateLimited),
			expected: true,
		},
		{
			name:     "server error should be retryable",
			err:      fmt.Errorf("%w (status 503): overloaded", ErrServerError),
			expected: true,
		},
		{
			name:     "deadline exceeded should be retryable",
			err:      fmt.Errorf("request failed: %w", context.DeadlineExceeded),
			expected: true,
		},
		{
			name:     "network error should be retryable",
			err:      &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			expected: true,
		},
		{
			name:     "unauthorized should not be retryable",
			err:      fmt.Errorf("%w: invalid key", ErrUnauthorized),
			expected: false,
		},
		{
			name:     "bad request should not be retryable",
			err:      fmt.Errorf("%w: invalid parameters", ErrBadRequest),
			expected: false,
		},
		{
			name:     "unknown error should not be retryable",
			err:      errors.New("something unexpected"),
			expected: false,
		},
		{
			name:     "nil should not be retryable",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.expected {
				t.Errorf("isRetryableError() = %v, expected %v for error: %v", got, tt.expected, tt.err)
			}
		})
	}
}

// scriptedClient returns canned results in order.
type scriptedClient struct {
	results []error
	resp    *CompletionResponse
	calls   int
}

func (s *scriptedClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.results) && s.results[idx] != nil {
		return nil, s.results[idx]
	}
	return s.resp, nil
}

func (s *scriptedClient) Provider() string { return "scripted" }

func TestCompleteWithRetry_RecoversFromTransientFailures(t *testing.T) {
	client := &scriptedClient{
		results: []error{
			fmt.Errorf("%w: busy", ErrRateLimited),
			fmt.Errorf("%w (status 500): oops", ErrServerError),
			nil,
		},
		resp: &CompletionResponse{Text: "done"},
	}

	config := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	resp, err := CompleteWithRetry(context.Background(), client, CompletionRequest{}, config)

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if resp.Text != "done" {
		t.Errorf("unexpected response text: %q", resp.Text)
	}
	if client.calls != 3 {
		t.Errorf("expected 3 calls, got %d", client.calls)
	}
}

func TestCompleteWithRetry_FailsFastOnNonRetryable(t *testing.T) {
	client := &scriptedClient{
		results: []error{fmt.Errorf("%w: bad key", ErrUnauthorized)},
	}

	config := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	_, err := CompleteWithRetry(context.Background(), client, CompletionRequest{}, config)

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if client.calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", client.calls)
	}
}

func TestCompleteWithRetry_ExhaustsBudget(t *testing.T) {
	rateLimited := fmt.Errorf("%w: busy", ErrRateLimited)
	client := &scriptedClient{
		results: []error{rateLimited, rateLimited, rateLimited, rateLimited},
	}

	config := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	_, err := CompleteWithRetry(context.Background(), client, CompletionRequest{}, config)

	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected the last error to be preserved, got %v", err)
	}
	if client.calls != 4 {
		t.Errorf("expected 4 calls (1 + 3 retries), got %d", client.calls)
	}
}

func TestCalculateBackoff(t *testing.T) {
	baseDelay := 100 * time.Millisecond
	maxDelay := 5 * time.Second

	tests := []struct {
		name        string
		attempt     int
		expectedMin time.Duration
		expectedMax time.Duration
	}{
		{
			name:        "first retry (attempt 0)",
			attempt:     0,
			expectedMin: 50 * time.Millisecond,
			expectedMax: 150 * time.Millisecond,
		},
		{
			name:        "second retry (attempt 1)",
			attempt:     1,
			expectedMin: 100 * time.Millisecond,
			expectedMax: 300 * time.Millisecond,
		},
		{
			name:        "third retry (attempt 2)",
			attempt:     2,
			expectedMin: 200 * time.Millisecond,
			expectedMax: 600 * time.Millisecond,
		},
		{
			name:        "large attempt caps at maxDelay",
			attempt:     10,
			expectedMin: 2500 * time.Millisecond,
			expectedMax: 7500 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Run multiple times to account for jitter.
			for i := 0; i < 10; i++ {
				delay := calculateBackoff(tt.attempt, baseDelay, maxDelay)
				if delay < tt.expectedMin {
					t.Errorf("calculateBackoff() = %v, expected >= %v", delay, tt.expectedMin)
				}
				if delay > tt.expectedMax {
					t.Errorf("calculateBackoff() = %v, expected <= %v", delay, tt.expectedMax)
				}
			}
		})
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	if DefaultRetryConfig.MaxRetries != 3 {
		t.Errorf("DefaultRetryConfig.MaxRetries = %d, expected 3", DefaultRetryConfig.MaxRetries)
	}
	if DefaultRetryConfig.BaseDelay != 100*time.Millisecond {
		t.Errorf("DefaultRetryConfig.BaseDelay = %v, expected 100ms", DefaultRetryConfig.BaseDelay)
	}
	if DefaultRetryConfig.MaxDelay != 5*time.Second {
		t.Errorf("DefaultRetryConfig.MaxDelay = %v, expected 5s", DefaultRetryConfig.MaxDelay)
	}
}
