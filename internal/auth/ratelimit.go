package auth

import (
	"sync"
	"time"
)

// RateLimiter is an in-memory sliding-window limiter keyed by client ID.
// Buckets idle for more than five minutes are dropped on the next sweep.
type RateLimiter struct {
	buckets map[string]*window
	mu      sync.Mutex
	swept   time.Time
}

type window struct {
	requests []time.Time
	lastSeen time.Time
}

// NewRateLimiter creates an empty limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*window),
		swept:   time.Now(),
	}
}

// Allow records a request for the client and reports whether it fits within
// limitPerMinute over the trailing minute.
func (rl *RateLimiter) Allow(clientID string, limitPerMinute int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.maybeSweep(now)

	bucket, exists := rl.buckets[clientID]
	if !exists {
		bucket = &window{}
		rl.buckets[clientID] = bucket
	}
	bucket.lastSeen = now

	// Drop requests outside the window.
	windowStart := now.Add(-time.Minute)
	kept := bucket.requests[:0]
	for _, at := range bucket.requests {
		if at.After(windowStart) {
			kept = append(kept, at)
		}
	}
	bucket.requests = kept

	if len(bucket.requests) >= limitPerMinute {
		return false
	}

	bucket.requests = append(bucket.requests, now)
	return true
}

// ActiveClients reports how many clients currently hold a bucket.
func (rl *RateLimiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *RateLimiter) maybeSweep(now time.Time) {
	if now.Sub(rl.swept) < 5*time.Minute {
		return
	}
	cutoff := now.Add(-5 * time.Minute)
	for clientID, bucket := range rl.buckets {
		if bucket.lastSeen.Before(cutoff) {
			delete(rl.buckets, clientID)
		}
	}
	rl.swept = now
}
