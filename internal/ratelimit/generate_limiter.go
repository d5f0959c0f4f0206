package ratelimit

import (
	"context"

	"github.com/cluo0901/roomgpt/internal/config"
)

// GenerateLimiter caps generation requests per client IP. A nil limiter
// (rate limiting disabled) allows everything.
type GenerateLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewGenerateLimiter(bucket *TokenBucket, cfg config.RateLimitConfig) *GenerateLimiter {
	if bucket == nil || !cfg.Enabled {
		return nil
	}
	return &GenerateLimiter{
		bucket: bucket,
		rate:   cfg.GenerateRate,
		burst:  cfg.GenerateBurst,
	}
}

func (l *GenerateLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *GenerateLimiter) Allow(ctx context.Context, clientIP string) (*Result, error) {
	return l.bucket.Allow(ctx, "ratelimit:generate:"+clientIP, l.rate, l.burst)
}
