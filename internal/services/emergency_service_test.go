package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lifeline/internal/models"
	"lifeline/internal/utils"
	"lifeline/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type emergencyFixture struct {
	service       EmergencyService
	requestRepo   *fakeRequestRepo
	ambulanceRepo *fakeAmbulanceRepo
	userRepo      *fakeUserRepo
	broadcast     *recordingBroadcast
	geocoder      *fakeGeocoder
}

func newEmergencyFixture() *emergencyFixture {
	f := &emergencyFixture{
		requestRepo:   newFakeRequestRepo(),
		ambulanceRepo: newFakeAmbulanceRepo(),
		userRepo:      newFakeUserRepo(),
		broadcast:     &recordingBroadcast{},
		geocoder:      &fakeGeocoder{address: "123 Main Street"},
	}
	f.service = NewEmergencyService(
		f.requestRepo, f.ambulanceRepo, f.userRepo,
		f.broadcast, f.geocoder, logger.NewNopLogger(),
	)
	return f
}

func (f *emergencyFixture) addDriverWithAmbulance(t *testing.T) (driverID, ambulanceID primitive.ObjectID) {
	t.Helper()
	driverID = f.userRepo.add(models.RoleAmbulanceDriver)
	ambulance := &models.Ambulance{DriverID: driverID, Hospital: "General Hospital"}
	require.NoError(t, f.ambulanceRepo.Create(context.Background(), ambulance))
	return driverID, ambulance.ID
}

func (f *emergencyFixture) createVerifiedRequest(t *testing.T) *models.EmergencyRequest {
	t.Helper()
	req := f.createPendingRequest(t)
	verified, err := f.service.Verify(context.Background(), req.ID, &models.VerifyInput{Priority: "High"})
	require.NoError(t, err)
	return verified
}

func (f *emergencyFixture) createPendingRequest(t *testing.T) *models.EmergencyRequest {
	t.Helper()
	requesterID := f.userRepo.add(models.RolePatient)
	req, err := f.service.CreateRequest(context.Background(), requesterID, &models.EmergencyRequestInput{
		Location:            "Corner of 5th and Oak",
		EmergencyType:       "accident",
		Latitude:            6.9271,
		Longitude:           79.8612,
		VictimName:          "John Doe",
		IncidentDescription: "Vehicle collision with injuries",
	})
	require.NoError(t, err)
	return req
}

func TestCreateRequest(t *testing.T) {
	f := newEmergencyFixture()

	req := f.createPendingRequest(t)

	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.False(t, req.IsGuest)
	assert.NotNil(t, req.RequesterID)
	assert.Nil(t, req.AssignedAmbulance)
	assert.True(t, f.broadcast.published(utils.TopicNewAccidentReport))
}

func TestCreateRequestValidation(t *testing.T) {
	f := newEmergencyFixture()
	requesterID := f.userRepo.add(models.RolePatient)

	_, err := f.service.CreateRequest(context.Background(), requesterID, &models.EmergencyRequestInput{
		EmergencyType: "accident",
	})

	require.Error(t, err)
	appErr := utils.AsAppError(err)
	assert.Equal(t, utils.ErrKindValidation, appErr.Kind)
	assert.Contains(t, appErr.Details, "victim_name")
}

func TestCreateGuestRequest(t *testing.T) {
	f := newEmergencyFixture()

	req, err := f.service.CreateGuestRequest(context.Background(), &models.GuestRequestInput{
		Latitude:      6.9271,
		Longitude:     79.8612,
		EmergencyType: "medical",
	})

	require.NoError(t, err)
	assert.True(t, req.IsGuest)
	assert.Nil(t, req.RequesterID)
	assert.Equal(t, "123 Main Street", req.Location)
}

func TestCreateGuestRequestOnEquator(t *testing.T) {
	f := newEmergencyFixture()

	req, err := f.service.CreateGuestRequest(context.Background(), &models.GuestRequestInput{
		Latitude:      0,
		Longitude:     6.6101,
		EmergencyType: "accident",
	})

	require.NoError(t, err)
	assert.Equal(t, 0.0, req.Coordinates.Latitude)
	assert.Equal(t, 6.6101, req.Coordinates.Longitude)
}

func TestCreateGuestRequestMissingCoordinates(t *testing.T) {
	f := newEmergencyFixture()

	_, err := f.service.CreateGuestRequest(context.Background(), &models.GuestRequestInput{
		EmergencyType: "accident",
	})

	require.Error(t, err)
	appErr := utils.AsAppError(err)
	assert.Equal(t, utils.ErrKindValidation, appErr.Kind)
	assert.Contains(t, appErr.Details, "coordinates")
}

func TestCreateGuestRequestGeocodeFailure(t *testing.T) {
	f := newEmergencyFixture()
	f.geocoder.err = errors.New("service unavailable")

	req, err := f.service.CreateGuestRequest(context.Background(), &models.GuestRequestInput{
		Latitude:      6.9271,
		Longitude:     79.8612,
		EmergencyType: "medical",
	})

	require.NoError(t, err)
	assert.Equal(t, utils.GuestLocationPlaceholder, req.Location)
}

func TestVerify(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createPendingRequest(t)

	verified, err := f.service.Verify(context.Background(), req.ID, &models.VerifyInput{Priority: "High"})

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusVerified, verified.Status)
	assert.True(t, verified.PoliceVerified)
	assert.Equal(t, models.PriorityHigh, verified.Priority)
	assert.NotNil(t, verified.VerifiedAt)
	assert.True(t, f.broadcast.published(utils.TopicAccidentVerified))
	assert.True(t, f.broadcast.published(utils.TopicNewVerifiedEmergency))
}

func TestVerifyRecordsPoliceCaseNumber(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createPendingRequest(t)

	verified, err := f.service.Verify(context.Background(), req.ID, &models.VerifyInput{
		Priority:     "Low",
		PoliceCaseNo: "CASE-2024-0042",
	})

	require.NoError(t, err)
	assert.Equal(t, "CASE-2024-0042", verified.PoliceCaseNo)
	assert.Equal(t, models.PriorityLow, verified.Priority)
}

func TestVerifyDefaultsPriority(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createPendingRequest(t)

	verified, err := f.service.Verify(context.Background(), req.ID, &models.VerifyInput{})

	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, verified.Priority)
}

func TestVerifyAlreadyVerified(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createVerifiedRequest(t)

	_, err := f.service.Verify(context.Background(), req.ID, &models.VerifyInput{})

	require.Error(t, err)
	assert.Equal(t, utils.ErrKindConflict, utils.AsAppError(err).Kind)
}

func TestVerifyNotFound(t *testing.T) {
	f := newEmergencyFixture()

	_, err := f.service.Verify(context.Background(), primitive.NewObjectID(), &models.VerifyInput{})

	require.Error(t, err)
	assert.Equal(t, utils.ErrKindNotFound, utils.AsAppError(err).Kind)
}

func TestDispatch(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createVerifiedRequest(t)
	driverID, ambulanceID := f.addDriverWithAmbulance(t)

	dispatched, err := f.service.Dispatch(context.Background(), req.ID, driverID)

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusDispatched, dispatched.Status)
	require.NotNil(t, dispatched.AssignedAmbulance)
	assert.Equal(t, ambulanceID, *dispatched.AssignedAmbulance)

	ambulance, err := f.ambulanceRepo.GetByID(context.Background(), ambulanceID)
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceStatusEnRoute, ambulance.Status)
	require.NotNil(t, ambulance.AssignedEmergency)
	assert.Equal(t, req.ID, *ambulance.AssignedEmergency)
	assert.True(t, f.broadcast.published(utils.TopicAmbulanceDispatched))
}

func TestDispatchRejectsNonDriver(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createVerifiedRequest(t)
	policeID := f.userRepo.add(models.RolePolice)

	_, err := f.service.Dispatch(context.Background(), req.ID, policeID)

	require.Error(t, err)
	assert.Equal(t, utils.ErrKindValidation, utils.AsAppError(err).Kind)
}

func TestDispatchUnverifiedRequest(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createPendingRequest(t)
	driverID, ambulanceID := f.addDriverWithAmbulance(t)

	_, err := f.service.Dispatch(context.Background(), req.ID, driverID)

	require.Error(t, err)
	assert.Equal(t, utils.ErrKindConflict, utils.AsAppError(err).Kind)

	// Compensation must have freed the engaged ambulance.
	ambulance, getErr := f.ambulanceRepo.GetByID(context.Background(), ambulanceID)
	require.NoError(t, getErr)
	assert.Equal(t, models.AmbulanceStatusAvailable, ambulance.Status)
	assert.Nil(t, ambulance.AssignedEmergency)
}

func TestDispatchBusyAmbulance(t *testing.T) {
	f := newEmergencyFixture()
	first := f.createVerifiedRequest(t)
	second := f.createVerifiedRequest(t)
	driverID, _ := f.addDriverWithAmbulance(t)

	_, err := f.service.Dispatch(context.Background(), first.ID, driverID)
	require.NoError(t, err)

	_, err = f.service.Dispatch(context.Background(), second.ID, driverID)
	require.Error(t, err)
	assert.Equal(t, utils.ErrKindConflict, utils.AsAppError(err).Kind)
}

func TestConcurrentDispatchSingleWinner(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createVerifiedRequest(t)

	const attempts = 8
	driverIDs := make([]primitive.ObjectID, attempts)
	for i := range driverIDs {
		driverIDs[i], _ = f.addDriverWithAmbulance(t)
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Dispatch(context.Background(), req.ID, driverIDs[i])
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.Equal(t, utils.ErrKindConflict, utils.AsAppError(err).Kind)
		}
	}
	assert.Equal(t, 1, winners)

	// Every losing driver's ambulance must be available again.
	engaged := 0
	for _, driverID := range driverIDs {
		ambulance, err := f.ambulanceRepo.GetByDriver(context.Background(), driverID)
		require.NoError(t, err)
		if ambulance.AssignedEmergency != nil {
			engaged++
			assert.Equal(t, req.ID, *ambulance.AssignedEmergency)
		}
	}
	assert.Equal(t, 1, engaged)
}

func TestAssignAmbulance(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createVerifiedRequest(t)
	_, ambulanceID := f.addDriverWithAmbulance(t)

	assigned, err := f.service.AssignAmbulance(context.Background(), ambulanceID, req.ID)

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusDispatched, assigned.Status)
	require.NotNil(t, assigned.AssignedAmbulance)
	assert.Equal(t, ambulanceID, *assigned.AssignedAmbulance)
	assert.True(t, f.broadcast.published(utils.TopicAmbulanceAssigned))
}

func TestAssignAmbulanceNotFound(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createVerifiedRequest(t)

	_, err := f.service.AssignAmbulance(context.Background(), primitive.NewObjectID(), req.ID)

	require.Error(t, err)
	assert.Equal(t, utils.ErrKindNotFound, utils.AsAppError(err).Kind)
}

func TestDriverMarkCompleted(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createVerifiedRequest(t)
	driverID, ambulanceID := f.addDriverWithAmbulance(t)

	_, err := f.service.Dispatch(context.Background(), req.ID, driverID)
	require.NoError(t, err)

	completed, err := f.service.DriverMarkCompleted(context.Background(), req.ID, driverID)

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, completed.Status)
	assert.Nil(t, completed.AssignedAmbulance)
	assert.NotNil(t, completed.CompletedAt)

	ambulance, err := f.ambulanceRepo.GetByID(context.Background(), ambulanceID)
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceStatusAvailable, ambulance.Status)
	assert.Nil(t, ambulance.AssignedEmergency)
	assert.True(t, f.broadcast.published(utils.TopicEmergencyCompleted))
}

func TestDriverMarkCompletedNotOwner(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createVerifiedRequest(t)
	ownerID, _ := f.addDriverWithAmbulance(t)
	otherID, _ := f.addDriverWithAmbulance(t)

	_, err := f.service.Dispatch(context.Background(), req.ID, ownerID)
	require.NoError(t, err)

	_, err = f.service.DriverMarkCompleted(context.Background(), req.ID, otherID)

	require.Error(t, err)
	assert.Equal(t, utils.ErrKindForbidden, utils.AsAppError(err).Kind)
}

func TestDriverMarkCompletedNotDispatched(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createVerifiedRequest(t)
	driverID, _ := f.addDriverWithAmbulance(t)

	_, err := f.service.DriverMarkCompleted(context.Background(), req.ID, driverID)

	require.Error(t, err)
	assert.Equal(t, utils.ErrKindConflict, utils.AsAppError(err).Kind)
}

func TestConfirmArrivalFromDispatched(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createVerifiedRequest(t)
	driverID, ambulanceID := f.addDriverWithAmbulance(t)

	_, err := f.service.Dispatch(context.Background(), req.ID, driverID)
	require.NoError(t, err)

	completed, err := f.service.ConfirmArrival(context.Background(), req.ID)

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, completed.Status)
	assert.Nil(t, completed.AssignedAmbulance)

	ambulance, err := f.ambulanceRepo.GetByID(context.Background(), ambulanceID)
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceStatusAvailable, ambulance.Status)

	payload := f.broadcast.lastPayload(utils.TopicPatientArrived)
	require.NotNil(t, payload)
	assert.Equal(t, ambulanceID.Hex(), payload["ambulanceId"])
}

func TestConfirmArrivalFromPending(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createPendingRequest(t)

	completed, err := f.service.ConfirmArrival(context.Background(), req.ID)

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, completed.Status)

	// No unit was ever involved, so the event must not name one.
	payload := f.broadcast.lastPayload(utils.TopicPatientArrived)
	require.NotNil(t, payload)
	assert.NotContains(t, payload, "ambulanceId")
}

func TestConfirmArrivalAlreadyCompleted(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createPendingRequest(t)

	_, err := f.service.ConfirmArrival(context.Background(), req.ID)
	require.NoError(t, err)

	_, err = f.service.ConfirmArrival(context.Background(), req.ID)
	require.Error(t, err)
	assert.Equal(t, utils.ErrKindConflict, utils.AsAppError(err).Kind)
}

func TestGetPendingNewestFirst(t *testing.T) {
	f := newEmergencyFixture()
	f.createPendingRequest(t)
	f.createPendingRequest(t)

	params := &utils.PaginationParams{Page: 1, PageSize: 20, Sort: "created_at", Order: "desc"}
	requests, total, err := f.service.GetPending(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, requests, 2)
	assert.False(t, requests[0].CreatedAt.Before(requests[1].CreatedAt))
}

func TestGetAssigned(t *testing.T) {
	f := newEmergencyFixture()
	req := f.createVerifiedRequest(t)
	driverID, _ := f.addDriverWithAmbulance(t)

	_, err := f.service.Dispatch(context.Background(), req.ID, driverID)
	require.NoError(t, err)

	requests, err := f.service.GetAssigned(context.Background(), driverID)

	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, req.ID, requests[0].ID)
}

func TestGetAssignedNoAmbulance(t *testing.T) {
	f := newEmergencyFixture()
	driverID := f.userRepo.add(models.RoleAmbulanceDriver)

	_, err := f.service.GetAssigned(context.Background(), driverID)

	require.Error(t, err)
	assert.Equal(t, utils.ErrKindNotFound, utils.AsAppError(err).Kind)
}
