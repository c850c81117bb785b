package lock

import (
	"context"
	"fmt"
	"spotbook/internal/bookings/repository"
	"spotbook/pkg/logger"
	"spotbook/pkg/model"
	"time"

	"github.com/google/uuid"
)

// MongoLocker holds an advisory lock document per spot in Booking_locks.
// A TTL index on expires_at reaps documents left by crashed holders.
type MongoLocker struct {
	repo     repository.SpotLockRepository
	ttl      time.Duration
	interval time.Duration
	log      *logger.Logger
}

func NewMongoLocker(repo repository.SpotLockRepository, ttl, interval time.Duration, log *logger.Logger) *MongoLocker {
	return &MongoLocker{
		repo:     repo,
		ttl:      ttl,
		interval: interval,
		log:      log.Component("mongo_lock"),
	}
}

func (l *MongoLocker) Lock(ctx context.Context, spotID string) (Unlock, error) {
	id := lockKey(spotID)
	owner := uuid.NewString()

	err := acquire(ctx, l.interval, func(ctx context.Context) (bool, error) {
		return l.repo.TryAcquire(ctx, &model.SpotLock{
			ID:        id,
			Owner:     owner,
			ExpiresAt: time.Now().UTC().Add(l.ttl),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to lock spot %s: %w", spotID, err)
	}

	return releaseOnce(func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.ttl)
		defer cancel()
		if err := l.repo.Release(ctx, id, owner); err != nil {
			l.log.Warn("failed to release spot lock", "spot_id", spotID, "error", err)
		}
	}), nil
}
