package ratelimit

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/storefront/internal/config"
)

const checkoutKeyPrefix = "storefront:checkout:client:"

// CheckoutLimiter throttles checkout session creation per client key. A nil
// limiter allows everything.
type CheckoutLimiter struct {
	bucket *tokenBucket
	rate   float64
	burst  int
}

func NewCheckoutLimiter(cfg config.Config, client *redis.Client) *CheckoutLimiter {
	if client == nil || cfg.RateLimit.CheckoutRate <= 0 || cfg.RateLimit.CheckoutBurst <= 0 {
		return nil
	}
	return &CheckoutLimiter{
		bucket: newTokenBucket(client),
		rate:   cfg.RateLimit.CheckoutRate,
		burst:  cfg.RateLimit.CheckoutBurst,
	}
}

func (l *CheckoutLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *CheckoutLimiter) Allow(ctx context.Context, clientKey string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		clientKey = "anonymous"
	}
	return l.bucket.take(ctx, checkoutKeyPrefix+clientKey, l.rate, l.burst)
}
