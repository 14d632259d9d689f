// Package ratelimit enforces a minimum interval between outbound calls to
// each external provider. Providers publish conservative request budgets
// (MusicBrainz asks for 1 req/s); bursting past them gets the whole
// instance throttled or banned, so the wait and the stamp must behave as
// one atomic step even under concurrent callers.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval applies to providers without a configured rate
const DefaultInterval = time.Second

// Limiter tracks one pacing state per provider name. A token bucket with
// burst 1 yields exactly the min-interval semantics we need: two
// consecutive Waits for the same provider always resolve at least one
// interval apart, and the token accounting is atomic under concurrency.
type Limiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	intervals map[string]time.Duration
}

// NewLimiter creates an empty per-provider limiter
func NewLimiter() *Limiter {
	return &Limiter{
		limiters:  make(map[string]*rate.Limiter),
		intervals: make(map[string]time.Duration),
	}
}

func (l *Limiter) limiterFor(provider string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[provider]; ok {
		return lim
	}
	interval, ok := l.intervals[provider]
	if !ok {
		interval = DefaultInterval
	}
	lim := rate.NewLimiter(rate.Every(interval), 1)
	l.limiters[provider] = lim
	return lim
}

// WaitForRateLimit blocks until the provider's minimum interval has elapsed
// since the previous permitted call, then claims the new slot. Returns the
// context error if ctx expires first.
func (l *Limiter) WaitForRateLimit(ctx context.Context, provider string) error {
	return l.limiterFor(provider).Wait(ctx)
}

// SetRateLimit overrides a provider's pacing to requestsPerSecond. The
// interval is ceil(1000/rps) milliseconds, matching provider documentation
// that quotes whole-millisecond minimum gaps.
func (l *Limiter) SetRateLimit(provider string, requestsPerSecond float64) {
	if requestsPerSecond <= 0 {
		return
	}
	intervalMs := math.Ceil(1000 / requestsPerSecond)
	interval := time.Duration(intervalMs) * time.Millisecond

	l.mu.Lock()
	defer l.mu.Unlock()
	l.intervals[provider] = interval
	if lim, ok := l.limiters[provider]; ok {
		lim.SetLimit(rate.Every(interval))
	}
}

// Interval reports the configured minimum interval for a provider
func (l *Limiter) Interval(provider string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if interval, ok := l.intervals[provider]; ok {
		return interval
	}
	return DefaultInterval
}

// Reset clears a provider's pacing state so the next call proceeds
// immediately. Used in tests and after credential rotation.
func (l *Limiter) Reset(provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, provider)
}

// ResetAll clears pacing state for every provider
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters = make(map[string]*rate.Limiter)
}
