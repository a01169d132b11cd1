package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/utils"
	"lifeline/internal/validators"
	"lifeline/pkg/logger"
	"lifeline/pkg/maps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmergencyService is the lifecycle coordinator. Every mutation, REST or
// realtime, funnels through it, and every transition is applied as a
// conditional update in the store so concurrent attempts resolve to one
// winner. Cross-entity transitions (dispatch, completion) run as ordered
// compensating updates: the ambulance is engaged first and released again
// if the request-side update loses its race.
type EmergencyService interface {
	CreateRequest(ctx context.Context, requesterID primitive.ObjectID, input *models.EmergencyRequestInput) (*models.EmergencyRequest, error)
	CreateGuestRequest(ctx context.Context, input *models.GuestRequestInput) (*models.EmergencyRequest, error)
	GetRequest(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error)
	GetPending(ctx context.Context, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error)
	GetVerified(ctx context.Context, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error)
	GetAssigned(ctx context.Context, driverID primitive.ObjectID) ([]*models.EmergencyRequest, error)
	Verify(ctx context.Context, id primitive.ObjectID, input *models.VerifyInput) (*models.EmergencyRequest, error)
	Dispatch(ctx context.Context, id, driverID primitive.ObjectID) (*models.EmergencyRequest, error)
	AssignAmbulance(ctx context.Context, ambulanceID, emergencyID primitive.ObjectID) (*models.EmergencyRequest, error)
	DriverMarkCompleted(ctx context.Context, id, callerDriverID primitive.ObjectID) (*models.EmergencyRequest, error)
	DriverReleaseAmbulance(ctx context.Context, ambulanceID, callerDriverID primitive.ObjectID) (*models.EmergencyRequest, error)
	ConfirmArrival(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error)
}

type emergencyService struct {
	requestRepo   interfaces.EmergencyRequestRepository
	ambulanceRepo interfaces.AmbulanceRepository
	userRepo      interfaces.UserRepository
	broadcast     BroadcastService
	geocoder      maps.Geocoder
	logger        *logger.Logger
}

func NewEmergencyService(
	requestRepo interfaces.EmergencyRequestRepository,
	ambulanceRepo interfaces.AmbulanceRepository,
	userRepo interfaces.UserRepository,
	broadcast BroadcastService,
	geocoder maps.Geocoder,
	log *logger.Logger,
) EmergencyService {
	return &emergencyService{
		requestRepo:   requestRepo,
		ambulanceRepo: ambulanceRepo,
		userRepo:      userRepo,
		broadcast:     broadcast,
		geocoder:      geocoder,
		logger:        log,
	}
}

func (s *emergencyService) CreateRequest(ctx context.Context, requesterID primitive.ObjectID, input *models.EmergencyRequestInput) (*models.EmergencyRequest, error) {
	if violations := validators.ValidateEmergencyRequest(input); len(violations) > 0 {
		return nil, utils.NewValidationError(utils.ErrValidationFailed, violations)
	}

	req := &models.EmergencyRequest{
		RequesterID:         &requesterID,
		Location:            input.Location,
		Coordinates:         models.Coordinates{Latitude: input.Latitude, Longitude: input.Longitude},
		PlusCode:            input.PlusCode,
		EmergencyType:       models.EmergencyType(input.EmergencyType),
		VictimName:          input.VictimName,
		VictimAge:           input.VictimAge,
		VictimSex:           input.VictimSex,
		IncidentDescription: input.IncidentDescription,
		PoliceCaseNo:        input.PoliceCaseNo,
		Notes:               input.Notes,
	}

	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()
	if err := s.requestRepo.Create(storeCtx, req); err != nil {
		return nil, utils.NewPersistenceError("create emergency request", err)
	}

	s.logger.WithField("request_id", req.ID.Hex()).Info("Emergency request created")
	s.broadcast.Publish(utils.TopicNewAccidentReport, entityPayload(req))
	s.broadcast.PublishToUser(requesterID, utils.TopicPatientUpdatePrefix+requesterID.Hex(), entityPayload(req))

	return req, nil
}

func (s *emergencyService) CreateGuestRequest(ctx context.Context, input *models.GuestRequestInput) (*models.EmergencyRequest, error) {
	if violations := validators.ValidateGuestRequest(input); len(violations) > 0 {
		return nil, utils.NewValidationError(utils.ErrValidationFailed, violations)
	}

	req := &models.EmergencyRequest{
		Location:            s.lookupAddress(ctx, input.Latitude, input.Longitude),
		Coordinates:         models.Coordinates{Latitude: input.Latitude, Longitude: input.Longitude},
		EmergencyType:       models.EmergencyType(input.EmergencyType),
		VictimName:          "Unknown",
		IncidentDescription: "Guest emergency request",
		IsGuest:             true,
	}

	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()
	if err := s.requestRepo.Create(storeCtx, req); err != nil {
		return nil, utils.NewPersistenceError("create guest request", err)
	}

	s.logger.WithField("request_id", req.ID.Hex()).Info("Guest emergency request created")
	s.broadcast.Publish(utils.TopicNewAccidentReport, entityPayload(req))

	return req, nil
}

// lookupAddress reverse-geocodes guest coordinates. The lookup is
// best-effort and never fatal to the create.
func (s *emergencyService) lookupAddress(ctx context.Context, lat, lng float64) string {
	if s.geocoder == nil {
		return utils.GuestLocationPlaceholder
	}

	geoCtx, cancel := context.WithTimeout(ctx, utils.GeocodeTimeout)
	defer cancel()

	resp, err := s.geocoder.ReverseGeocode(geoCtx, lat, lng)
	if err != nil {
		s.logger.WithError(err).Warn("Reverse geocode failed, using placeholder")
		return utils.GuestLocationPlaceholder
	}
	if addr := resp.BestAddress(); addr != "" {
		return addr
	}
	return utils.GuestLocationPlaceholder
}

func (s *emergencyService) GetRequest(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error) {
	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	req, err := s.requestRepo.GetByID(storeCtx, id)
	if err != nil {
		return nil, s.translateStoreError(err, "emergency request", "")
	}
	return req, nil
}

func (s *emergencyService) GetPending(ctx context.Context, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error) {
	return s.listByStatus(ctx, models.RequestStatusPending, params)
}

func (s *emergencyService) GetVerified(ctx context.Context, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error) {
	return s.listByStatus(ctx, models.RequestStatusVerified, params)
}

func (s *emergencyService) listByStatus(ctx context.Context, status models.RequestStatus, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error) {
	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	requests, total, err := s.requestRepo.GetByStatus(storeCtx, status, params)
	if err != nil {
		return nil, 0, utils.NewPersistenceError("list emergency requests", err)
	}
	return requests, total, nil
}

func (s *emergencyService) GetAssigned(ctx context.Context, driverID primitive.ObjectID) ([]*models.EmergencyRequest, error) {
	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	ambulance, err := s.ambulanceRepo.GetByDriver(storeCtx, driverID)
	if err != nil {
		return nil, s.translateStoreError(err, "ambulance", "")
	}

	requests, err := s.requestRepo.GetByAssignedAmbulance(storeCtx, ambulance.ID)
	if err != nil {
		return nil, utils.NewPersistenceError("list assigned requests", err)
	}
	return requests, nil
}

func (s *emergencyService) Verify(ctx context.Context, id primitive.ObjectID, input *models.VerifyInput) (*models.EmergencyRequest, error) {
	priority := models.PriorityMedium
	policeCaseNo := ""
	if input != nil {
		if input.Priority != "" {
			priority = models.Priority(input.Priority)
			if !priority.Valid() {
				return nil, utils.NewValidationError(utils.ErrValidationFailed, map[string]string{
					"priority": "priority must be one of: High, Medium, Low",
				})
			}
		}
		policeCaseNo = input.PoliceCaseNo
	}

	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	req, err := s.requestRepo.Verify(storeCtx, id, priority, policeCaseNo)
	if err != nil {
		return nil, s.conflictWithActual(storeCtx, err, id, "emergency request",
			models.RequestStatusPending, "verify")
	}

	s.logger.WithField("request_id", id.Hex()).Info("Emergency request verified")
	s.broadcast.Publish(utils.TopicAccidentVerified, entityPayload(req))
	s.broadcast.Publish(utils.TopicNewVerifiedEmergency, entityPayload(req))
	s.notifyRequester(req)

	return req, nil
}

func (s *emergencyService) Dispatch(ctx context.Context, id, driverID primitive.ObjectID) (*models.EmergencyRequest, error) {
	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	driver, err := s.userRepo.GetByID(storeCtx, driverID)
	if err != nil {
		return nil, s.translateStoreError(err, "driver", "")
	}
	if driver.Role != models.RoleAmbulanceDriver {
		return nil, utils.NewValidationError("dispatch target is not an ambulance driver", nil)
	}

	ambulance, err := s.ambulanceRepo.GetByDriver(storeCtx, driverID)
	if err != nil {
		return nil, s.translateStoreError(err, "ambulance", "")
	}

	req, err := s.dispatchTo(storeCtx, id, ambulance.ID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"request_id":   id.Hex(),
		"ambulance_id": ambulance.ID.Hex(),
		"driver_id":    driverID.Hex(),
	}).Info("Emergency request dispatched")

	s.broadcast.Publish(utils.TopicAmbulanceDispatched, linkPayload(req, ambulance.ID))
	s.notifyRequester(req)

	return req, nil
}

func (s *emergencyService) AssignAmbulance(ctx context.Context, ambulanceID, emergencyID primitive.ObjectID) (*models.EmergencyRequest, error) {
	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	// Existence check up front so a missing ambulance reads as 404, not
	// as a lost race.
	if _, err := s.ambulanceRepo.GetByID(storeCtx, ambulanceID); err != nil {
		return nil, s.translateStoreError(err, "ambulance", "")
	}

	req, err := s.dispatchTo(storeCtx, emergencyID, ambulanceID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"request_id":   emergencyID.Hex(),
		"ambulance_id": ambulanceID.Hex(),
	}).Info("Ambulance assigned to emergency")

	s.broadcast.Publish(utils.TopicAmbulanceAssigned, linkPayload(req, ambulanceID))
	s.notifyRequester(req)

	return req, nil
}

// dispatchTo is the shared dispatch effect: engage the ambulance, then
// assign the request, releasing the ambulance again if the request-side
// update loses. The request-side conditional update is the serialization
// point that guarantees at most one successful dispatch per request.
func (s *emergencyService) dispatchTo(ctx context.Context, requestID, ambulanceID primitive.ObjectID) (*models.EmergencyRequest, error) {
	if _, err := s.ambulanceRepo.Engage(ctx, ambulanceID, requestID); err != nil {
		if errors.Is(err, interfaces.ErrStateConflict) {
			return nil, utils.NewConflictError("ambulance is not available: it already holds an active assignment")
		}
		return nil, s.translateStoreError(err, "ambulance", "")
	}

	req, err := s.requestRepo.Assign(ctx, requestID, ambulanceID)
	if err != nil {
		// Compensate: free the ambulance we just engaged.
		if _, relErr := s.ambulanceRepo.Release(ctx, ambulanceID, requestID); relErr != nil {
			s.logger.WithError(relErr).WithField("ambulance_id", ambulanceID.Hex()).
				Error("Failed to release ambulance after dispatch conflict")
		}
		return nil, s.conflictWithActual(ctx, err, requestID, "emergency request",
			models.RequestStatusVerified, "dispatch")
	}

	return req, nil
}

func (s *emergencyService) DriverMarkCompleted(ctx context.Context, id, callerDriverID primitive.ObjectID) (*models.EmergencyRequest, error) {
	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	ambulance, err := s.ambulanceRepo.GetByDriver(storeCtx, callerDriverID)
	if err != nil {
		return nil, s.translateStoreError(err, "ambulance", "")
	}

	req, err := s.requestRepo.Complete(storeCtx, id, ambulance.ID)
	if err != nil {
		if errors.Is(err, interfaces.ErrStateConflict) {
			return nil, s.classifyCompletionConflict(storeCtx, id, ambulance.ID)
		}
		return nil, s.translateStoreError(err, "emergency request", "")
	}

	s.releaseAfterCompletion(storeCtx, ambulance.ID, id)
	s.emitCompleted(req, ambulance.ID, utils.TopicEmergencyCompleted)

	return req, nil
}

func (s *emergencyService) DriverReleaseAmbulance(ctx context.Context, ambulanceID, callerDriverID primitive.ObjectID) (*models.EmergencyRequest, error) {
	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	ambulance, err := s.ambulanceRepo.GetByID(storeCtx, ambulanceID)
	if err != nil {
		return nil, s.translateStoreError(err, "ambulance", "")
	}
	if ambulance.DriverID != callerDriverID {
		return nil, utils.NewForbiddenError("ambulance is not owned by the calling driver")
	}
	if ambulance.AssignedEmergency == nil {
		return nil, utils.NewConflictError("no emergency is assigned to this ambulance")
	}

	requestID := *ambulance.AssignedEmergency
	req, err := s.requestRepo.Complete(storeCtx, requestID, ambulance.ID)
	if err != nil {
		if errors.Is(err, interfaces.ErrStateConflict) {
			return nil, s.classifyCompletionConflict(storeCtx, requestID, ambulance.ID)
		}
		return nil, s.translateStoreError(err, "emergency request", "")
	}

	s.releaseAfterCompletion(storeCtx, ambulance.ID, requestID)
	s.emitCompleted(req, ambulance.ID, utils.TopicEmergencyCompleted)

	return req, nil
}

// ConfirmArrival is the hospital-side completion path. Per the current
// API contract it overrides from any non-terminal status; whether it
// should be gated like the driver path is a pending product decision.
func (s *emergencyService) ConfirmArrival(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error) {
	storeCtx, cancel := context.WithTimeout(ctx, utils.DefaultPersistenceTimeout)
	defer cancel()

	prior, err := s.requestRepo.ForceComplete(storeCtx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrStateConflict) {
			return nil, utils.NewConflictError("emergency request is already completed")
		}
		return nil, s.translateStoreError(err, "emergency request", "")
	}

	var ambulanceID primitive.ObjectID
	if prior.AssignedAmbulance != nil {
		ambulanceID = *prior.AssignedAmbulance
		s.releaseAfterCompletion(storeCtx, ambulanceID, id)
	}

	now := time.Now()
	req := *prior
	req.Status = models.RequestStatusCompleted
	req.AssignedAmbulance = nil
	req.CompletedAt = &now
	req.UpdatedAt = now

	s.emitCompleted(&req, ambulanceID, utils.TopicPatientArrived)
	return &req, nil
}

// releaseAfterCompletion frees the ambulance once its request reached the
// terminal state. The request-side update already decided the winner, so
// a conflict here only means the link was cleared by someone else.
func (s *emergencyService) releaseAfterCompletion(ctx context.Context, ambulanceID, requestID primitive.ObjectID) {
	if _, err := s.ambulanceRepo.Release(ctx, ambulanceID, requestID); err != nil {
		if !errors.Is(err, interfaces.ErrStateConflict) && !errors.Is(err, interfaces.ErrNotFound) {
			s.logger.WithError(err).WithField("ambulance_id", ambulanceID.Hex()).
				Error("Failed to release ambulance after completion")
		}
	}
}

func (s *emergencyService) emitCompleted(req *models.EmergencyRequest, ambulanceID primitive.ObjectID, topic string) {
	fields := map[string]interface{}{"request_id": req.ID.Hex()}
	if !ambulanceID.IsZero() {
		fields["ambulance_id"] = ambulanceID.Hex()
	}
	s.logger.WithFields(fields).Info("Emergency request completed")

	s.broadcast.Publish(topic, linkPayload(req, ambulanceID))
	if topic != utils.TopicEmergencyCompleted {
		s.broadcast.Publish(utils.TopicEmergencyCompleted, linkPayload(req, ambulanceID))
	}
	s.notifyRequester(req)
}

// classifyCompletionConflict separates "someone else holds the
// assignment" (authorization failure) from "wrong status" (state
// conflict) after a completion CAS miss.
func (s *emergencyService) classifyCompletionConflict(ctx context.Context, requestID, ambulanceID primitive.ObjectID) error {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return s.translateStoreError(err, "emergency request", "")
	}

	if req.Status == models.RequestStatusDispatched &&
		req.AssignedAmbulance != nil && *req.AssignedAmbulance != ambulanceID {
		return utils.NewForbiddenError("emergency is assigned to a different ambulance")
	}

	return utils.NewConflictError(fmt.Sprintf(
		"cannot complete emergency request: expected status %q, actual %q",
		models.RequestStatusDispatched, req.Status))
}

// conflictWithActual renders a CAS miss as a conflict naming expected vs
// actual state, or as not-found when the record never existed.
func (s *emergencyService) conflictWithActual(ctx context.Context, err error, id primitive.ObjectID, resource string, expected models.RequestStatus, op string) error {
	if !errors.Is(err, interfaces.ErrStateConflict) {
		return s.translateStoreError(err, resource, "")
	}

	req, getErr := s.requestRepo.GetByID(ctx, id)
	if getErr != nil {
		return utils.NewConflictError(fmt.Sprintf("cannot %s %s: expected status %q", op, resource, expected))
	}

	if op == "dispatch" && req.AssignedAmbulance != nil {
		return utils.NewConflictError("emergency request is already assigned to another ambulance")
	}
	return utils.NewConflictError(fmt.Sprintf(
		"cannot %s %s: expected status %q, actual %q", op, resource, expected, req.Status))
}

func (s *emergencyService) translateStoreError(err error, resource, conflictMsg string) error {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		return utils.NewNotFoundError(resource)
	case errors.Is(err, interfaces.ErrStateConflict):
		if conflictMsg == "" {
			conflictMsg = resource + " is not in a state that permits this transition"
		}
		return utils.NewConflictError(conflictMsg)
	default:
		return utils.NewPersistenceError(resource, err)
	}
}

func (s *emergencyService) notifyRequester(req *models.EmergencyRequest) {
	if req.RequesterID == nil {
		return
	}
	s.broadcast.PublishToUser(*req.RequesterID,
		utils.TopicPatientUpdatePrefix+req.RequesterID.Hex(), entityPayload(req))
}

func entityPayload(req *models.EmergencyRequest) map[string]interface{} {
	return map[string]interface{}{"request": req}
}

// linkPayload omits ambulanceId when no unit was involved, e.g. a
// hospital completing a request that was never dispatched.
func linkPayload(req *models.EmergencyRequest, ambulanceID primitive.ObjectID) map[string]interface{} {
	payload := map[string]interface{}{
		"requestId": req.ID.Hex(),
		"request":   req,
	}
	if !ambulanceID.IsZero() {
		payload["ambulanceId"] = ambulanceID.Hex()
	}
	return payload
}
