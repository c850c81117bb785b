package lock

import (
	"context"
	"fmt"
	"spotbook/pkg/logger"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token, so a
// holder whose TTL lapsed cannot free someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client   *redis.Client
	ttl      time.Duration
	interval time.Duration
	log      *logger.Logger
}

func NewRedisLocker(client *redis.Client, ttl, interval time.Duration, log *logger.Logger) *RedisLocker {
	return &RedisLocker{
		client:   client,
		ttl:      ttl,
		interval: interval,
		log:      log.Component("redis_lock"),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, spotID string) (Unlock, error) {
	key := lockKey(spotID)
	token := uuid.NewString()

	err := acquire(ctx, l.interval, func(ctx context.Context) (bool, error) {
		return l.client.SetNX(ctx, key, token, l.ttl).Result()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to lock spot %s: %w", spotID, err)
	}

	return releaseOnce(func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.ttl)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn("failed to release spot lock", "spot_id", spotID, "error", err)
		}
	}), nil
}
