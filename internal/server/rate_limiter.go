// Package server implements a token bucket limiter for per-connection
// event throttling, protecting the router from abusive senders.
package server

import (
	"sync"
	"time"
)

// rateLimiter is a token bucket refilled continuously at capacity tokens
// per interval. Each inbound event costs one token; events arriving with
// an empty bucket are discarded by the read pump.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	perSecond  float64
	lastRefill time.Time
	now        func() time.Time
}

func newRateLimiter(capacity int, interval time.Duration) *rateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	rl := &rateLimiter{
		tokens:    float64(capacity),
		capacity:  float64(capacity),
		perSecond: float64(capacity) / interval.Seconds(),
		now:       time.Now,
	}
	rl.lastRefill = rl.now()
	return rl
}

func (rl *rateLimiter) refill(now time.Time) {
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now
	if elapsed <= 0 {
		return
	}
	rl.tokens += elapsed * rl.perSecond
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
}

// allow consumes one token if available.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill(rl.now())
	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}
