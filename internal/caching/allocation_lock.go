package caching

import (
	"context"
	"fmt"
	"time"

	"constructerp/internal/models"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisAllocationLocker holds a short Redis lock per purchase or change order while its
// advance payments are being allocated.
type RedisAllocationLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

func NewRedisAllocationLocker(client *redis.Client, ttl time.Duration) *RedisAllocationLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisAllocationLocker{
		locker: redislock.New(client),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 30),
	}
}

// AllocationLockKey is the Redis key guarding one order's advance payments.
func AllocationLockKey(ref models.OrderRef) string {
	return fmt.Sprintf("%s:alloc:%s:%s", keyPrefix, ref.Kind, ref.UUID)
}

// Lock obtains the order's lock, waiting briefly for a concurrent allocation to finish.
// It returns redislock.ErrNotObtained when the wait runs out.
func (l *RedisAllocationLocker) Lock(ctx context.Context, ref models.OrderRef) (func(), error) {
	lock, err := l.locker.Obtain(ctx, AllocationLockKey(ref), l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if err != nil {
		return nil, err
	}
	return func() {
		// a lock that already expired has nothing left to release
		_ = lock.Release(context.WithoutCancel(ctx))
	}, nil
}
