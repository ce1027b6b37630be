// Package ratelimit provides per-provider token-bucket rate limiters,
// shared process-wide so concurrent callers across the pipeline never
// exceed a provider's polite-use rate. Built on golang.org/x/time/rate,
// the token-bucket library used elsewhere in the retrieval pack
// (blampe-rreading-glasses) for the same purpose.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Registry holds one limiter per provider name.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewRegistry creates an empty limiter registry.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*rate.Limiter)}
}

// Register installs (or replaces) the limiter for a provider, sized at
// ratePerSecond with a burst equal to the whole-number part of that rate
// (at least one). A rate of zero or below is treated as one per second.
func (r *Registry) Register(provider string, ratePerSecond float64) {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters[provider] = rate.NewLimiter(rate.Limit(ratePerSecond), burstFor(ratePerSecond))
}

func burstFor(ratePerSecond float64) int {
	b := int(ratePerSecond)
	if b < 1 {
		b = 1
	}
	return b
}

// Wait blocks until the named provider's bucket has a token available or
// ctx is done. A provider with no registered limiter is unthrottled.
func (r *Registry) Wait(ctx context.Context, provider string) error {
	r.mu.RLock()
	l, ok := r.limiters[provider]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}
