package ratelimit

import (
	"github.com/cluo0901/roomgpt/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("ratelimit",
	fx.Provide(provideRedis),
	fx.Provide(provideBucket),
	fx.Provide(provideGenerateLimiter),
)

func provideRedis(cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RedisAddr == "" {
		log.Info("rate limiting disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
}

func provideBucket(client *redis.Client) *TokenBucket {
	return NewTokenBucket(client)
}

func provideGenerateLimiter(bucket *TokenBucket, cfg config.Config) *GenerateLimiter {
	return NewGenerateLimiter(bucket, cfg.RateLimit)
}
