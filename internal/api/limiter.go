package api

import (
	"sync"

	"golang.org/x/time/rate"
)

// KeyLimiter applies a per-API-key token bucket to ingest requests.
// A nil *KeyLimiter admits everything, so callers can leave limiting
// unconfigured without branching.
type KeyLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewKeyLimiter creates a limiter admitting r requests per second with
// the given burst, per API key.
func NewKeyLimiter(r float64, burst int) *KeyLimiter {
	return &KeyLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(r),
		burst:    burst,
	}
}

// Allow reports whether a request carrying the given key may proceed.
func (l *KeyLimiter) Allow(apiKey string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	lim, ok := l.limiters[apiKey]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[apiKey] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
