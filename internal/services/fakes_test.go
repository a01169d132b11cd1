package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/utils"
	"lifeline/pkg/maps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory stores with the same conditional-update semantics as the
// MongoDB repositories, safe for concurrent use.

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.EmergencyRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[primitive.ObjectID]*models.EmergencyRequest)}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *models.EmergencyRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	req.ID = primitive.NewObjectID()
	req.Status = models.RequestStatusPending
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	req.CreatedAt = now
	req.UpdatedAt = now

	clone := *req
	r.requests[req.ID] = &clone
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (r *fakeRequestRepo) GetByStatus(_ context.Context, status models.RequestStatus, _ *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.EmergencyRequest
	for _, req := range r.requests {
		if req.Status == status {
			clone := *req
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *fakeRequestRepo) GetByAssignedAmbulance(_ context.Context, ambulanceID primitive.ObjectID) ([]*models.EmergencyRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.EmergencyRequest
	for _, req := range r.requests {
		if req.Status == models.RequestStatusDispatched &&
			req.AssignedAmbulance != nil && *req.AssignedAmbulance == ambulanceID {
			clone := *req
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) Verify(_ context.Context, id primitive.ObjectID, priority models.Priority, policeCaseNo string) (*models.EmergencyRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if req.Status != models.RequestStatusPending {
		return nil, interfaces.ErrStateConflict
	}

	now := time.Now()
	req.Status = models.RequestStatusVerified
	req.PoliceVerified = true
	req.Priority = priority
	if policeCaseNo != "" {
		req.PoliceCaseNo = policeCaseNo
	}
	req.VerifiedAt = &now
	req.UpdatedAt = now

	clone := *req
	return &clone, nil
}

func (r *fakeRequestRepo) Assign(_ context.Context, id, ambulanceID primitive.ObjectID) (*models.EmergencyRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if req.Status != models.RequestStatusVerified || req.AssignedAmbulance != nil {
		return nil, interfaces.ErrStateConflict
	}

	now := time.Now()
	req.Status = models.RequestStatusDispatched
	req.AssignedAmbulance = &ambulanceID
	req.DispatchedAt = &now
	req.UpdatedAt = now

	clone := *req
	return &clone, nil
}

func (r *fakeRequestRepo) Complete(_ context.Context, id, ambulanceID primitive.ObjectID) (*models.EmergencyRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if req.Status != models.RequestStatusDispatched ||
		req.AssignedAmbulance == nil || *req.AssignedAmbulance != ambulanceID {
		return nil, interfaces.ErrStateConflict
	}

	now := time.Now()
	req.Status = models.RequestStatusCompleted
	req.AssignedAmbulance = nil
	req.CompletedAt = &now
	req.UpdatedAt = now

	clone := *req
	return &clone, nil
}

func (r *fakeRequestRepo) ForceComplete(_ context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if req.Status == models.RequestStatusCompleted {
		return nil, interfaces.ErrStateConflict
	}

	prior := *req

	now := time.Now()
	req.Status = models.RequestStatusCompleted
	req.AssignedAmbulance = nil
	req.CompletedAt = &now
	req.UpdatedAt = now

	return &prior, nil
}

type fakeAmbulanceRepo struct {
	mu         sync.Mutex
	ambulances map[primitive.ObjectID]*models.Ambulance
}

func newFakeAmbulanceRepo() *fakeAmbulanceRepo {
	return &fakeAmbulanceRepo{ambulances: make(map[primitive.ObjectID]*models.Ambulance)}
}

func (r *fakeAmbulanceRepo) Create(_ context.Context, ambulance *models.Ambulance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.ambulances {
		if existing.DriverID == ambulance.DriverID {
			return interfaces.ErrDuplicateDriver
		}
	}

	now := time.Now()
	ambulance.ID = primitive.NewObjectID()
	ambulance.Status = models.AmbulanceStatusAvailable
	ambulance.AssignedEmergency = nil
	ambulance.LastUpdated = now
	ambulance.CreatedAt = now

	clone := *ambulance
	r.ambulances[ambulance.ID] = &clone
	return nil
}

func (r *fakeAmbulanceRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	amb, ok := r.ambulances[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	clone := *amb
	return &clone, nil
}

func (r *fakeAmbulanceRepo) GetByDriver(_ context.Context, driverID primitive.ObjectID) (*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, amb := range r.ambulances {
		if amb.DriverID == driverID {
			clone := *amb
			return &clone, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeAmbulanceRepo) GetAvailable(_ context.Context, _ *utils.PaginationParams) ([]*models.AmbulanceWithDriver, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.AmbulanceWithDriver
	for _, amb := range r.ambulances {
		if amb.Status == models.AmbulanceStatusAvailable {
			clone := *amb
			out = append(out, &models.AmbulanceWithDriver{Ambulance: clone})
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAmbulanceRepo) UpdateLocation(_ context.Context, driverID primitive.ObjectID, location models.Coordinates, status *models.AmbulanceStatus) (*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, amb := range r.ambulances {
		if amb.DriverID == driverID {
			amb.CurrentLocation = location
			amb.LastUpdated = time.Now()
			if status != nil {
				amb.Status = *status
			}
			clone := *amb
			return &clone, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeAmbulanceRepo) Engage(_ context.Context, id, emergencyID primitive.ObjectID) (*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	amb, ok := r.ambulances[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if amb.Status != models.AmbulanceStatusAvailable || amb.AssignedEmergency != nil {
		return nil, interfaces.ErrStateConflict
	}

	amb.Status = models.AmbulanceStatusEnRoute
	amb.AssignedEmergency = &emergencyID
	amb.LastUpdated = time.Now()

	clone := *amb
	return &clone, nil
}

func (r *fakeAmbulanceRepo) Release(_ context.Context, id, emergencyID primitive.ObjectID) (*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	amb, ok := r.ambulances[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if amb.AssignedEmergency == nil || *amb.AssignedEmergency != emergencyID {
		return nil, interfaces.ErrStateConflict
	}

	amb.Status = models.AmbulanceStatusAvailable
	amb.AssignedEmergency = nil
	amb.LastUpdated = time.Now()

	clone := *amb
	return &clone, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUserRepo) add(role models.Role) primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := primitive.NewObjectID()
	r.users[id] = &models.User{ID: id, Name: "Test User", Role: role}
	return id
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

// recordingBroadcast captures emitted events synchronously so tests can
// assert on topics and payloads without racing goroutines.
type recordingBroadcast struct {
	mu     sync.Mutex
	events []broadcastEvent
}

type broadcastEvent struct {
	topic   string
	payload map[string]interface{}
}

func (b *recordingBroadcast) Publish(topic string, payload map[string]interface{}) {
	b.record(topic, payload)
}

func (b *recordingBroadcast) PublishToUser(_ primitive.ObjectID, topic string, payload map[string]interface{}) {
	b.record(topic, payload)
}

func (b *recordingBroadcast) record(topic string, payload map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{topic: topic, payload: payload})
}

func (b *recordingBroadcast) published(topic string) bool {
	return b.lastPayload(topic) != nil
}

func (b *recordingBroadcast) lastPayload(topic string) map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].topic == topic {
			return b.events[i].payload
		}
	}
	return nil
}

type fakeGeocoder struct {
	address string
	err     error
}

func (g *fakeGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (*maps.GeocodeResponse, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &maps.GeocodeResponse{Results: []maps.GeocodeResult{{Address: g.address}}}, nil
}

func (g *fakeGeocoder) Geocode(_ context.Context, _ string) (*maps.GeocodeResponse, error) {
	return nil, errors.New("not implemented")
}
