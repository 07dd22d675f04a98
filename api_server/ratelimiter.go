package main

import (
	"context"
	_ "embed"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

//go:embed token_bucket.lua
var tokenBucketScript string

type RateLimiter struct {
	client redis.UniversalClient
	script *redis.Script
	rules  map[string]models.Rule
	clock  clockwork.Clock
}

// NewRateLimiter connects to a single redis node, or to a cluster when
// several addresses are configured.
func NewRateLimiter(ctx context.Context, config models.RateLimitingConfig, clock clockwork.Clock) (*RateLimiter, error) {
	c := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    config.RedisAddrs,
		Password: config.Password,
		PoolSize: config.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		log.Println("Error in Connection to redis: ", err)
		c.Close()
		return nil, err
	}
	return newRateLimiter(c, config.Rules, clock), nil
}

func newRateLimiter(c redis.UniversalClient, rules map[string]models.Rule, clock clockwork.Clock) *RateLimiter {
	return &RateLimiter{
		client: c,
		script: redis.NewScript(tokenBucketScript),
		rules:  rules,
		clock:  clock,
	}
}

// Allow takes a token from the bucket of key. When redis cannot be reached
// the request is let through and the error returned.
func (rl *RateLimiter) Allow(ctx context.Context, key string, rule models.Rule) (bool, error) {
	keys := []string{"rate_limit:" + key}
	args := []interface{}{rule.RefillRate, rule.Limit, rl.clock.Now().Unix()}
	res, err := rl.script.Run(ctx, rl.client, keys, args...).Result()
	if err != nil {
		return true, err
	}
	if v, ok := res.(int64); ok {
		return v == 1, nil
	}
	return true, nil
}

func (rl *RateLimiter) close() {
	if err := rl.client.Close(); err != nil {
		log.Println("Closing rateLimiter Error: ", err.Error())
	}
}
