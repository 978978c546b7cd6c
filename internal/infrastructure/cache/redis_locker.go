// Package cache provides Redis-backed coordination between server instances.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"facturier/internal/core/id"
	"facturier/internal/core/lock"
	"facturier/pkg/logger"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var errLockHeld = errors.New("lock held")

const lockKeyPrefix = "lock:"

// RedisLocker is a lock.Locker shared by every instance using the same Redis.
// A lock expires after ttl even if its holder dies without unlocking.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	poll   time.Duration
}

// RedisLockerOption configures a RedisLocker.
type RedisLockerOption func(*RedisLocker)

// WithPollInterval sets how often a waiting Lock retries.
func WithPollInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) { l.poll = d }
}

// NewRedisLocker creates a locker whose locks live at most ttl.
func NewRedisLocker(client *redis.Client, ttl time.Duration, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client: client,
		ttl:    ttl,
		poll:   25 * time.Millisecond,
	}
	if l.ttl <= 0 {
		l.ttl = 10 * time.Second
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ lock.Locker = (*RedisLocker)(nil)

// Lock implements lock.Locker. It polls SET NX until the key is free or ctx ends.
func (l *RedisLocker) Lock(ctx context.Context, key string) (lock.Unlock, error) {
	redisKey := lockKeyPrefix + key
	token := id.New().String()

	acquire := func() error {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("set %s: %w", redisKey, err))
		}
		if !ok {
			return errLockHeld
		}
		return nil
	}

	if err := backoff.Retry(acquire, backoff.WithContext(backoff.NewConstantBackOff(l.poll), ctx)); err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	return func() {
		// ctx may already be cancelled when the caller unlocks
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			logger.Warn(ctx, "failed to release redis lock", "key", redisKey, "error", err)
		}
	}, nil
}

// Ping reports whether Redis is reachable. Used by the readiness probe.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
