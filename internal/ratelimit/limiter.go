package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// AirlineLimiter throttles searches per airline so fallback traffic does
// not escalate anti-bot attention on a single target.
type AirlineLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	defaults RateLimitConfig
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 1,
		BurstSize:         3,
	}
}

func NewAirlineLimiter(config RateLimitConfig) *AirlineLimiter {
	return &AirlineLimiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: config,
	}
}

func NewAirlineLimiterWithDefaults() *AirlineLimiter {
	return NewAirlineLimiter(DefaultConfig())
}

func (p *AirlineLimiter) GetLimiter(airline string) *rate.Limiter {
	p.mu.RLock()
	limiter, exists := p.limiters[airline]
	p.mu.RUnlock()

	if exists {
		return limiter
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if limiter, exists = p.limiters[airline]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(p.defaults.RequestsPerSecond), p.defaults.BurstSize)
	p.limiters[airline] = limiter
	return limiter
}

func (p *AirlineLimiter) SetAirlineLimit(airline string, rps float64, burst int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.limiters[airline] = rate.NewLimiter(rate.Limit(rps), burst)
}

func (p *AirlineLimiter) Wait(ctx context.Context, airline string) error {
	return p.GetLimiter(airline).Wait(ctx)
}
