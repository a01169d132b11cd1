package interfaces

import (
	"context"

	"lifeline/internal/models"
	"lifeline/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmergencyRequestRepository is the durable request store. All lifecycle
// transitions are conditional updates filtered on the prior state, so
// concurrent writers against the same request serialize to exactly one
// winner; losers get ErrStateConflict, never a silently stale write.
type EmergencyRequestRepository interface {
	Create(ctx context.Context, req *models.EmergencyRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error)
	GetByStatus(ctx context.Context, status models.RequestStatus, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error)
	GetByAssignedAmbulance(ctx context.Context, ambulanceID primitive.ObjectID) ([]*models.EmergencyRequest, error)

	// Verify moves pending -> verified, sets police_verified and the
	// priority chosen by the verifying authority. A non-empty case number
	// is recorded; an empty one leaves any patient-supplied value intact.
	Verify(ctx context.Context, id primitive.ObjectID, priority models.Priority, policeCaseNo string) (*models.EmergencyRequest, error)

	// Assign moves verified -> dispatched and records the ambulance,
	// guarded on the request having no assignment yet.
	Assign(ctx context.Context, id, ambulanceID primitive.ObjectID) (*models.EmergencyRequest, error)

	// Complete moves dispatched -> completed, guarded on the assignment
	// being held by exactly the given ambulance, and clears it.
	Complete(ctx context.Context, id, ambulanceID primitive.ObjectID) (*models.EmergencyRequest, error)

	// ForceComplete terminates the request from any non-terminal status
	// and clears the assignment. It returns the record as it was before
	// the update so the caller can release a linked ambulance.
	ForceComplete(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error)
}
