package repository

import (
	"context"
	"fmt"
	bookingserrors "spotbook/internal/bookings/errors"
	"spotbook/pkg/config"
	"spotbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	SpotsCollection = "Spots"
	UsersCollection = "Users"
)

// SpotRepository answers the two questions the ledger asks about a spot:
// does it exist, and who owns it.
type SpotRepository interface {
	FindByID(ctx context.Context, id string) (*model.Spot, error)
}

// UserRepository resolves renter display names for owner listings.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type mongoSpotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSpotRepository(cfg *config.Config) SpotRepository {
	return &mongoSpotRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(SpotsCollection),
	}
}

func (r *mongoSpotRepository) FindByID(ctx context.Context, id string) (*model.Spot, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var spot model.Spot
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&spot); err != nil {
		if isNoDocuments(err) {
			return nil, bookingserrors.ErrSpotNotFound
		}
		return nil, fmt.Errorf("failed to find spot: %w", err)
	}
	return &spot, nil
}

type mongoUserRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoUserRepository(cfg *config.Config) UserRepository {
	return &mongoUserRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(UsersCollection),
	}
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var user model.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if isNoDocuments(err) {
			return nil, bookingserrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}
