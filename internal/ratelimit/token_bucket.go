package ratelimit

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// takeTokenScript refills the bucket from Redis server time, takes one token
// when available and returns {allowed, remaining, wait_ms}. The key expires
// after twice the full refill time.
const takeTokenScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])

local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
if now > ts then
  tokens = math.min(burst, tokens + (now - ts) * rate / 1000)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.ceil((1 - tokens) * 1000 / rate)
end

local ttl = math.max(1000, math.ceil(burst / rate * 2000))
redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, math.floor(tokens), wait}
`

// Decision is the outcome of taking one token from a bucket.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the wait up to whole seconds for the Retry-After
// header. It is at least 1 for a denied request.
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed {
		return 0
	}
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

type tokenBucket struct {
	client redis.Scripter
	script *redis.Script
}

func newTokenBucket(client redis.Scripter) *tokenBucket {
	return &tokenBucket{client: client, script: redis.NewScript(takeTokenScript)}
}

func (b *tokenBucket) take(ctx context.Context, key string, rate float64, burst int) (Decision, error) {
	if key == "" {
		return Decision{}, errors.New("rate limit key is empty")
	}
	if rate <= 0 || burst <= 0 {
		return Decision{}, errors.New("rate limit rate and burst must be positive")
	}

	out, err := b.script.Run(ctx, b.client, []string{key}, rate, burst).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(out) != 3 {
		return Decision{}, errors.New("unexpected rate limit script reply")
	}
	return Decision{
		Allowed:    out[0] == 1,
		Remaining:  int(out[1]),
		RetryAfter: time.Duration(out[2]) * time.Millisecond,
	}, nil
}
