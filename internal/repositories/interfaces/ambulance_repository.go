package interfaces

import (
	"context"

	"lifeline/internal/models"
	"lifeline/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AmbulanceRepository is the durable unit registry, one record per driver.
type AmbulanceRepository interface {
	// Create registers a unit; ErrDuplicateDriver if the driver already
	// has one.
	Create(ctx context.Context, ambulance *models.Ambulance) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error)
	GetAvailable(ctx context.Context, params *utils.PaginationParams) ([]*models.AmbulanceWithDriver, int64, error)

	// UpdateLocation upserts coordinates and last_updated for the unit
	// owned by driverID; a non-nil status is applied as well.
	UpdateLocation(ctx context.Context, driverID primitive.ObjectID, location models.Coordinates, status *models.AmbulanceStatus) (*models.Ambulance, error)

	// Engage links the unit to an emergency, guarded on it being
	// available and unassigned.
	Engage(ctx context.Context, id, emergencyID primitive.ObjectID) (*models.Ambulance, error)

	// Release clears the link, guarded on the unit holding exactly the
	// given emergency, and marks it available again.
	Release(ctx context.Context, id, emergencyID primitive.ObjectID) (*models.Ambulance, error)
}
