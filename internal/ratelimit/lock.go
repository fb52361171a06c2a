package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// compareAndDelete removes the key only while it still holds our token, so a
// lease that outlived its TTL cannot drop another holder's lock.
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out single-holder Redis leases. A nil Locker is valid and
// reports itself disabled.
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

func (l *Locker) Enabled() bool {
	return l != nil && l.client != nil
}

// Lease is a held lock. It expires on its own after the TTL.
type Lease struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes the lock for key. It returns a nil lease and no error when
// another holder has it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if !l.Enabled() {
		return nil, errors.New("lock client not configured")
	}
	if key == "" || ttl <= 0 {
		return nil, errors.New("lock key and ttl are required")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, err
	}
	return &Lease{client: l.client, key: key, token: token}, nil
}

func (ls *Lease) Release(ctx context.Context) error {
	if ls == nil {
		return nil
	}
	return compareAndDelete.Run(ctx, ls.client, []string{ls.key}, ls.token).Err()
}
