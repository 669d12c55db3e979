package generator

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket limiter over a one-minute window.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	tokens            float64
	lastUpdate        time.Time
}

// NewRateLimiter creates a limiter. rpm <= 0 uses a generous default.
func NewRateLimiter(rpm int) *RateLimiter {
	if rpm <= 0 {
		rpm = 150
	}
	return &RateLimiter{
		requestsPerMinute: rpm,
		tokens:            float64(rpm),
		lastUpdate:        time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if r.tryConsume() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.timeUntilToken()):
		}
	}
}

func (r *RateLimiter) tryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

func (r *RateLimiter) timeUntilToken() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	if r.tokens >= 1 {
		return 0
	}
	perToken := time.Minute / time.Duration(r.requestsPerMinute)
	deficit := 1 - r.tokens
	return time.Duration(deficit * float64(perToken))
}

// refill adds tokens for elapsed time. Caller holds the lock.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Minutes()
	r.lastUpdate = now
	r.tokens += elapsed * float64(r.requestsPerMinute)
	if max := float64(r.requestsPerMinute); r.tokens > max {
		r.tokens = max
	}
}
