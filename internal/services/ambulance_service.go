package services

import (
	"context"
	"errors"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/utils"
	"lifeline/internal/validators"
	"lifeline/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AmbulanceService interface {
	Register(ctx context.Context, driverID primitive.ObjectID, input *models.RegisterAmbulanceInput) (*models.Ambulance, error)
	UpdateLocation(ctx context.Context, driverID primitive.ObjectID, input *models.LocationUpdateInput) (*models.Ambulance, error)
	UpdateDriverLocation(ctx context.Context, driverID primitive.ObjectID, latitude, longitude float64, status string) error
	ListAvailable(ctx context.Context, params *utils.PaginationParams) ([]*models.AmbulanceWithDriver, int64, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error)
}

type ambulanceService struct {
	ambulanceRepo interfaces.AmbulanceRepository
	userRepo      interfaces.UserRepository
	broadcast     BroadcastService
	logger        *logger.Logger
}

func NewAmbulanceService(
	ambulanceRepo interfaces.AmbulanceRepository,
	userRepo interfaces.UserRepository,
	broadcast BroadcastService,
	log *logger.Logger,
) AmbulanceService {
	return &ambulanceService{
		ambulanceRepo: ambulanceRepo,
		userRepo:      userRepo,
		broadcast:     broadcast,
		logger:        log,
	}
}

func (s *ambulanceService) Register(ctx context.Context, driverID primitive.ObjectID, input *models.RegisterAmbulanceInput) (*models.Ambulance, error) {
	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	driver, err := s.userRepo.GetByID(storeCtx, driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, utils.NewNotFoundError("driver")
		}
		return nil, utils.NewPersistenceError("get driver", err)
	}
	if driver.Role != models.RoleAmbulanceDriver {
		return nil, utils.NewForbiddenError("only ambulance drivers can register an ambulance")
	}

	hospital := driver.Hospital
	if input != nil && input.Hospital != "" {
		hospital = input.Hospital
	}

	ambulance := &models.Ambulance{
		DriverID: driverID,
		Hospital: hospital,
	}

	if err := s.ambulanceRepo.Create(storeCtx, ambulance); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateDriver) {
			return nil, utils.NewConflictError("driver already has a registered ambulance")
		}
		return nil, utils.NewPersistenceError("create ambulance", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"ambulance_id": ambulance.ID.Hex(),
		"driver_id":    driverID.Hex(),
	}).Info("Ambulance registered")

	return ambulance, nil
}

func (s *ambulanceService) UpdateLocation(ctx context.Context, driverID primitive.ObjectID, input *models.LocationUpdateInput) (*models.Ambulance, error) {
	if violations := validators.ValidateLocationUpdate(input); len(violations) > 0 {
		return nil, utils.NewValidationError(utils.ErrValidationFailed, violations)
	}

	var status *models.AmbulanceStatus
	if input.Status != "" {
		st := models.AmbulanceStatus(input.Status)
		status = &st
	}

	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	location := models.NewCoordinates(input.Latitude, input.Longitude)
	ambulance, err := s.ambulanceRepo.UpdateLocation(storeCtx, driverID, location, status)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, utils.NewNotFoundError("ambulance")
		}
		return nil, utils.NewPersistenceError("update ambulance location", err)
	}

	s.broadcast.Publish(utils.TopicAmbulanceLocation, map[string]interface{}{
		"ambulanceId": ambulance.ID.Hex(),
		"latitude":    input.Latitude,
		"longitude":   input.Longitude,
		"status":      ambulance.Status,
	})

	return ambulance, nil
}

// UpdateDriverLocation adapts realtime driver_location frames onto the
// same guarded write path the REST endpoint uses.
func (s *ambulanceService) UpdateDriverLocation(ctx context.Context, driverID primitive.ObjectID, latitude, longitude float64, status string) error {
	input := &models.LocationUpdateInput{
		Latitude:  latitude,
		Longitude: longitude,
		Status:    status,
	}
	_, err := s.UpdateLocation(ctx, driverID, input)
	return err
}

func (s *ambulanceService) ListAvailable(ctx context.Context, params *utils.PaginationParams) ([]*models.AmbulanceWithDriver, int64, error) {
	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	ambulances, total, err := s.ambulanceRepo.GetAvailable(storeCtx, params)
	if err != nil {
		return nil, 0, utils.NewPersistenceError("list available ambulances", err)
	}
	return ambulances, total, nil
}

func (s *ambulanceService) GetByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error) {
	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	ambulance, err := s.ambulanceRepo.GetByDriver(storeCtx, driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, utils.NewNotFoundError("ambulance")
		}
		return nil, utils.NewPersistenceError("get ambulance", err)
	}
	return ambulance, nil
}
