package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenLimiter enforces a token budget per minute. Wait blocks until the requested
// number of tokens fits in the current window.
type TokenLimiter struct {
	mu          sync.Mutex
	maxPerMin   int
	used        int
	windowStart time.Time
}

// NewTokenLimiter creates a TokenLimiter with the given per-minute budget.
func NewTokenLimiter(maxPerMinute int) *TokenLimiter {
	return &TokenLimiter{
		maxPerMin:   maxPerMinute,
		windowStart: time.Now(),
	}
}

// GetRemaining returns the tokens left in the current window.
func (t *TokenLimiter) GetRemaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rotate()
	return t.maxPerMin - t.used
}

// Wait blocks until `tokens` can be consumed or the context is canceled.
func (t *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	for {
		t.mu.Lock()
		t.rotate()
		if t.used+tokens <= t.maxPerMin {
			t.used += tokens
			t.mu.Unlock()
			return nil
		}
		sleepFor := time.Minute - time.Since(t.windowStart)
		t.mu.Unlock()

		if sleepFor < 0 {
			sleepFor = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
	}
}

// rotate resets the window when a minute has elapsed. Caller must hold mu.
func (t *TokenLimiter) rotate() {
	if time.Since(t.windowStart) >= time.Minute {
		t.used = 0
		t.windowStart = time.Now()
	}
}
