package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/storefront/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutLimiterDisabledWithoutRedis(t *testing.T) {
	limiter := NewCheckoutLimiter(config.Config{RateLimit: config.RateLimitConfig{CheckoutRate: 1, CheckoutBurst: 1}}, nil)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.Allow(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNilLocker(t *testing.T) {
	var locker *Locker
	assert.False(t, locker.Enabled())

	lease, err := locker.Acquire(context.Background(), "k", time.Second)
	assert.Error(t, err)
	assert.Nil(t, lease)

	var held *Lease
	assert.NoError(t, held.Release(context.Background()))
}

func TestDecisionRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 0, Decision{Allowed: true, RetryAfter: 3 * time.Second}.RetryAfterSeconds())
	assert.Equal(t, 1, Decision{}.RetryAfterSeconds())
	assert.Equal(t, 1, Decision{RetryAfter: 250 * time.Millisecond}.RetryAfterSeconds())
	assert.Equal(t, 2, Decision{RetryAfter: 1001 * time.Millisecond}.RetryAfterSeconds())
	assert.Equal(t, 4, Decision{RetryAfter: 4 * time.Second}.RetryAfterSeconds())
}

func TestTokenBucketRejectsBadInput(t *testing.T) {
	b := newTokenBucket(nil)
	_, err := b.take(context.Background(), "", 1, 1)
	assert.Error(t, err)
	_, err = b.take(context.Background(), "k", 0, 1)
	assert.Error(t, err)
	_, err = b.take(context.Background(), "k", 1, 0)
	assert.Error(t, err)
}
