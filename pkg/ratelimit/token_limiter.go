package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenLimiter caps the number of tokens consumed within a rolling one
// minute window. Callers Wait before sending a request sized in tokens.
type TokenLimiter struct {
	mu        sync.Mutex
	limit     int
	remaining int
	resetAt   time.Time
}

// NewTokenLimiter creates a TokenLimiter with the given tokens-per-minute
// budget.
func NewTokenLimiter(limitPerMinute int) *TokenLimiter {
	return &TokenLimiter{
		limit:     limitPerMinute,
		remaining: limitPerMinute,
		resetAt:   time.Now().Add(time.Minute),
	}
}

// GetRemaining reports how many tokens are left in the current window.
func (l *TokenLimiter) GetRemaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refresh()
	return l.remaining
}

// Wait blocks until n tokens are available or the context is done. Requests
// larger than the whole budget are allowed through once the window is fresh.
func (l *TokenLimiter) Wait(ctx context.Context, n int) error {
	for {
		l.mu.Lock()
		l.refresh()
		if l.remaining >= n || l.remaining == l.limit {
			l.remaining -= n
			if l.remaining < 0 {
				l.remaining = 0
			}
			l.mu.Unlock()
			return nil
		}
		wait := time.Until(l.resetAt)
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (l *TokenLimiter) refresh() {
	if time.Now().After(l.resetAt) {
		l.remaining = l.limit
		l.resetAt = time.Now().Add(time.Minute)
	}
}
