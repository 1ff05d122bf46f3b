package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// LoginLockout implements ports.LoginGuard. Each key counts failed logins;
// the count expires after the cool-off, and once it reaches the limit the
// key stays locked until it expires.
type LoginLockout struct {
	client  goredis.UniversalClient
	prefix  string
	limit   int64
	cooloff time.Duration
}

// NewLoginLockout creates a lockout that locks a key after limit failures
// for cooloff. A limit below one disables locking.
func NewLoginLockout(client goredis.UniversalClient, limit int, cooloff time.Duration) *LoginLockout {
	return &LoginLockout{
		client:  client,
		prefix:  "wlg:login:failures:",
		limit:   int64(limit),
		cooloff: cooloff,
	}
}

// Locked reports whether key has reached the failure limit and the time left.
func (l *LoginLockout) Locked(ctx context.Context, key string) (bool, time.Duration, error) {
	if l.limit < 1 {
		return false, 0, nil
	}
	redisKey := l.prefix + key

	count, err := l.client.Get(ctx, redisKey).Int64()
	if err == goredis.Nil {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("redis lockout get: %w", err)
	}
	if count < l.limit {
		return false, 0, nil
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return true, l.cooloff, fmt.Errorf("redis lockout ttl: %w", err)
	}
	if ttl < 0 {
		ttl = l.cooloff
	}
	return true, ttl, nil
}

// RecordFailure counts one failure and returns the new count. The cool-off
// window restarts with every failure.
func (l *LoginLockout) RecordFailure(ctx context.Context, key string) (int64, error) {
	redisKey := l.prefix + key

	var incr *goredis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.cooloff)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis lockout incr: %w", err)
	}
	return incr.Val(), nil
}

// Reset clears the failures of key after a successful login.
func (l *LoginLockout) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis lockout reset: %w", err)
	}
	return nil
}
