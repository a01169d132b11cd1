package mongodb

import (
	"context"
	"fmt"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewUserRepository(db *mongo.Database, cache services.CacheService) interfaces.UserRepository {
	return &userRepository{
		collection: db.Collection("users"),
		cache:      cache,
	}
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if r.cache != nil {
		var cached models.User
		if err := r.cache.Get(ctx, "user:"+id.Hex(), &cached); err == nil {
			return &cached, nil
		}
	}

	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if r.cache != nil {
		r.cache.Set(ctx, "user:"+id.Hex(), &user, 15*time.Minute)
	}

	return &user, nil
}
