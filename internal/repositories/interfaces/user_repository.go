package interfaces

import (
	"context"

	"lifeline/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository is a read-only view over identity data owned by the
// auth collaborator; the coordinator uses it to resolve roles.
type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}
