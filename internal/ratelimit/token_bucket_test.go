package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/cluo0901/roomgpt/internal/config"
	redis "github.com/redis/go-redis/v9"
)

func newTestBucket(t *testing.T) *TokenBucket {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewTokenBucket(client)
}

func TestAllowExhaustsBurst(t *testing.T) {
	ctx := context.Background()
	bucket := newTestBucket(t)

	// A very slow refill so the burst dominates the window.
	rate := 5.0 / 86400
	burst := 5

	for i := 0; i < burst; i++ {
		result, err := bucket.Allow(ctx, "ratelimit:generate:10.0.0.1", rate, burst)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
		if result.Limit != burst {
			t.Fatalf("expected limit %d, got %d", burst, result.Limit)
		}
	}

	result, err := bucket.Allow(ctx, "ratelimit:generate:10.0.0.1", rate, burst)
	if err != nil {
		t.Fatalf("allow after burst: %v", err)
	}
	if result.Allowed {
		t.Fatalf("expected sixth request to be denied")
	}
	if result.Remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", result.Remaining)
	}
	if result.RetryAfter <= 0 {
		t.Fatalf("expected a retry-after hint, got %v", result.RetryAfter)
	}
}

func TestAllowIsPerKey(t *testing.T) {
	ctx := context.Background()
	bucket := newTestBucket(t)

	if result, err := bucket.Allow(ctx, "ratelimit:generate:10.0.0.1", 1, 1); err != nil || !result.Allowed {
		t.Fatalf("first key should be allowed, got %+v err %v", result, err)
	}
	if result, err := bucket.Allow(ctx, "ratelimit:generate:10.0.0.2", 1, 1); err != nil || !result.Allowed {
		t.Fatalf("second key should be allowed, got %+v err %v", result, err)
	}
}

func TestAllowValidation(t *testing.T) {
	ctx := context.Background()
	bucket := newTestBucket(t)

	if _, err := bucket.Allow(ctx, "", 1, 1); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := bucket.Allow(ctx, "key", 0, 1); err == nil {
		t.Fatalf("expected error for zero rate")
	}

	var nilBucket *TokenBucket
	if _, err := nilBucket.Allow(ctx, "key", 1, 1); err == nil {
		t.Fatalf("expected error for nil bucket")
	}
}

func TestGenerateLimiterDisabled(t *testing.T) {
	limiter := NewGenerateLimiter(nil, config.RateLimitConfig{Enabled: true})
	if limiter.Enabled() {
		t.Fatalf("expected limiter without redis to be disabled")
	}

	limiter = NewGenerateLimiter(newTestBucket(t), config.RateLimitConfig{Enabled: false})
	if limiter.Enabled() {
		t.Fatalf("expected limiter with disabled config to be off")
	}
}
