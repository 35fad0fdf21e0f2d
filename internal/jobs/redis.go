package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/utc"
)

const leaseKeyPrefix = "lineup:lease:"

var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisLocker keeps leases as expiring Redis keys.
type RedisLocker struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisLocker returns a Redis-backed locker.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, now: func() time.Time { return utc.Now().Time }}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, name, holder string, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, leaseKeyPrefix+name, holder, ttl).Result()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	err = l.Renew(ctx, name, holder, ttl)
	var held *pkgerrors.LeaseHeldError
	if errors.As(err, &held) && held.Holder == "" {
		// expired between SETNX and renew
		if ok, err := l.client.SetNX(ctx, leaseKeyPrefix+name, holder, ttl).Result(); err != nil || ok {
			return err
		}
		return l.held(ctx, name)
	}
	return err
}

// Renew implements Locker.
func (l *RedisLocker) Renew(ctx context.Context, name, holder string, ttl time.Duration) error {
	n, err := renewScript.Run(ctx, l.client, []string{leaseKeyPrefix + name}, holder, ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return l.held(ctx, name)
	}
	return nil
}

// Release implements Locker.
func (l *RedisLocker) Release(ctx context.Context, name, holder string) error {
	return releaseScript.Run(ctx, l.client, []string{leaseKeyPrefix + name}, holder).Err()
}

// ForceRelease implements Locker.
func (l *RedisLocker) ForceRelease(ctx context.Context, name string) error {
	return l.client.Del(ctx, leaseKeyPrefix+name).Err()
}

// Current implements Locker.
func (l *RedisLocker) Current(ctx context.Context, name string) (*Lease, error) {
	key := leaseKeyPrefix + name
	holder, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ttl, err := l.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	lease := &Lease{Name: name, Holder: holder}
	if ttl > 0 {
		lease.ExpiresAt = l.now().Add(ttl)
	}
	return lease, nil
}

func (l *RedisLocker) held(ctx context.Context, name string) error {
	current, err := l.Current(ctx, name)
	if err != nil {
		return err
	}
	held := &pkgerrors.LeaseHeldError{Name: name}
	if current != nil {
		held.Holder, held.ExpiresAt = current.Holder, current.ExpiresAt
	}
	return held
}
