package lock

import (
	"bulk-auction/internal/biddingerrors"
	"bulk-auction/utils"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "listing_lock:"
	redisRetryFloor  = 5 * time.Millisecond
	redisRetryCeil   = 100 * time.Millisecond
	redisReleaseWait = 2 * time.Second
)

// releaseScript deletes the lock only if the caller still owns it
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker is a Locker shared by every instance pointing at the same Redis.
// A holder that outlives ttl loses the lock; critical sections must stay short.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker connects to Redis and verifies the connection
func NewRedisLocker(addr, password string, db int, ttl, wait time.Duration) (*RedisLocker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisLocker{client: rdb, ttl: ttl, wait: wait}, nil
}

// Acquire polls SET NX until the lock is taken or the wait expires
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	delay := redisRetryFloor
	for {
		ok, err := l.client.SetNX(waitCtx, redisKey, token, l.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("lock %s: failed to set key: %w", key, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("lock %s: %w", key, biddingerrors.ErrLockTimeout)
		case <-time.After(delay):
		}
		if delay *= 2; delay > redisRetryCeil {
			delay = redisRetryCeil
		}
	}
}

func (l *RedisLocker) releaser(redisKey, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), redisReleaseWait)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			utils.Warn("RedisLocker: failed to release lock", map[string]any{
				"key":   redisKey,
				"error": err.Error(),
			})
		}
	}
}

// Close closes the Redis connection
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
