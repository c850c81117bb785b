package repository

import (
	"context"
	"fmt"
	"spotbook/pkg/config"
	"spotbook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LocksCollection = "Booking_locks"

// SpotLockRepository stores advisory lock documents, one per spot being
// written. The unique _id is what makes acquisition exclusive.
type SpotLockRepository interface {
	TryAcquire(ctx context.Context, lock *model.SpotLock) (bool, error)
	Release(ctx context.Context, lockID, owner string) error
}

type mongoSpotLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewSpotLockRepository(cfg *config.Config) SpotLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSpotLockRepository{
		cfg:        cfg,
		collection: db.Collection(LocksCollection),
	}
}

// TryAcquire inserts the lock document. A duplicate key means someone else
// holds it; an expired holder is evicted once and the insert retried.
func (r *mongoSpotLockRepository) TryAcquire(ctx context.Context, lock *model.SpotLock) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	lock.CreatedAt = time.Now().UTC()

	acquired, err := r.insert(ctx, lock)
	if err != nil || acquired {
		return acquired, err
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":        lock.ID,
		"expires_at": bson.M{"$lt": lock.CreatedAt},
	})
	if err != nil {
		return false, fmt.Errorf("failed to evict expired lock %s: %w", lock.ID, err)
	}
	if res.DeletedCount == 0 {
		return false, nil
	}
	return r.insert(ctx, lock)
}

func (r *mongoSpotLockRepository) insert(ctx context.Context, lock *model.SpotLock) (bool, error) {
	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return true, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to insert lock %s: %w", lock.ID, err)
}

// Release removes the lock only if it is still held by owner.
func (r *mongoSpotLockRepository) Release(ctx context.Context, lockID, owner string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "owner": owner})
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", lockID, err)
	}
	return nil
}
