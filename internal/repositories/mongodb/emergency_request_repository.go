package mongodb

import (
	"context"
	"fmt"
	"time"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/services"
	"lifeline/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type emergencyRequestRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewEmergencyRequestRepository(db *mongo.Database, cache services.CacheService) interfaces.EmergencyRequestRepository {
	return &emergencyRequestRepository{
		collection: db.Collection("emergency_requests"),
		cache:      cache,
	}
}

func (r *emergencyRequestRepository) Create(ctx context.Context, req *models.EmergencyRequest) error {
	now := time.Now()
	req.ID = primitive.NewObjectID()
	req.Status = models.RequestStatusPending
	req.PoliceVerified = false
	req.AssignedAmbulance = nil
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	req.CreatedAt = now
	req.UpdatedAt = now

	// Cache before the insert: the id is not visible to any other actor
	// yet, so no transition can invalidate the entry before it lands. The
	// reverse order would let a transition racing the Set leave a stale
	// pre-transition entry behind.
	r.cacheRequest(ctx, req)

	_, err := r.collection.InsertOne(ctx, req)
	if err != nil {
		r.invalidateRequestCache(ctx, req.ID.Hex())
		return fmt.Errorf("failed to create emergency request: %w", err)
	}

	return nil
}

func (r *emergencyRequestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error) {
	if req := r.getRequestFromCache(ctx, id.Hex()); req != nil {
		return req, nil
	}

	var req models.EmergencyRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get emergency request: %w", err)
	}

	// Reads never re-populate the cache: the entry is written on create
	// and invalidated on every transition, so a read racing a concurrent
	// transition cannot resurrect a stale status.

	return &req, nil
}

func (r *emergencyRequestRepository) GetByStatus(ctx context.Context, status models.RequestStatus, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error) {
	filter := bson.M{"status": status}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count emergency requests: %w", err)
	}

	if cursorFilter := params.GetCursorFilter(); cursorFilter != nil {
		filter = bson.M{"$and": []bson.M{filter, cursorFilter}}
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find emergency requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*models.EmergencyRequest
	for cursor.Next(ctx) {
		var req models.EmergencyRequest
		if err := cursor.Decode(&req); err != nil {
			return nil, 0, fmt.Errorf("failed to decode emergency request: %w", err)
		}
		requests = append(requests, &req)
	}

	return requests, total, nil
}

func (r *emergencyRequestRepository) GetByAssignedAmbulance(ctx context.Context, ambulanceID primitive.ObjectID) ([]*models.EmergencyRequest, error) {
	filter := bson.M{
		"assigned_ambulance": ambulanceID,
		"status":             models.RequestStatusDispatched,
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find assigned emergency requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*models.EmergencyRequest
	for cursor.Next(ctx) {
		var req models.EmergencyRequest
		if err := cursor.Decode(&req); err != nil {
			return nil, fmt.Errorf("failed to decode emergency request: %w", err)
		}
		requests = append(requests, &req)
	}

	return requests, nil
}

func (r *emergencyRequestRepository) Verify(ctx context.Context, id primitive.ObjectID, priority models.Priority, policeCaseNo string) (*models.EmergencyRequest, error) {
	now := time.Now()
	filter := bson.M{
		"_id":    id,
		"status": models.RequestStatusPending,
	}
	set := bson.M{
		"status":          models.RequestStatusVerified,
		"police_verified": true,
		"priority":        priority,
		"verified_at":     now,
		"updated_at":      now,
	}
	if policeCaseNo != "" {
		set["police_case_no"] = policeCaseNo
	}

	return r.conditionalUpdate(ctx, id, filter, bson.M{"$set": set})
}

func (r *emergencyRequestRepository) Assign(ctx context.Context, id, ambulanceID primitive.ObjectID) (*models.EmergencyRequest, error) {
	now := time.Now()
	filter := bson.M{
		"_id":                id,
		"status":             models.RequestStatusVerified,
		"assigned_ambulance": nil,
	}
	update := bson.M{"$set": bson.M{
		"status":             models.RequestStatusDispatched,
		"assigned_ambulance": ambulanceID,
		"dispatched_at":      now,
		"updated_at":         now,
	}}

	return r.conditionalUpdate(ctx, id, filter, update)
}

func (r *emergencyRequestRepository) Complete(ctx context.Context, id, ambulanceID primitive.ObjectID) (*models.EmergencyRequest, error) {
	now := time.Now()
	filter := bson.M{
		"_id":                id,
		"status":             models.RequestStatusDispatched,
		"assigned_ambulance": ambulanceID,
	}
	update := bson.M{"$set": bson.M{
		"status":             models.RequestStatusCompleted,
		"assigned_ambulance": nil,
		"completed_at":       now,
		"updated_at":         now,
	}}

	return r.conditionalUpdate(ctx, id, filter, update)
}

func (r *emergencyRequestRepository) ForceComplete(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error) {
	now := time.Now()
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$ne": models.RequestStatusCompleted},
	}
	update := bson.M{"$set": bson.M{
		"status":             models.RequestStatusCompleted,
		"assigned_ambulance": nil,
		"completed_at":       now,
		"updated_at":         now,
	}}

	// Return the pre-image so the caller can release a linked ambulance.
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var prior models.EmergencyRequest
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&prior)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, r.classifyMiss(ctx, id)
		}
		return nil, fmt.Errorf("failed to complete emergency request: %w", err)
	}

	r.invalidateRequestCache(ctx, id.Hex())
	return &prior, nil
}

// conditionalUpdate applies a guarded transition and returns the updated
// document. A zero-match outcome is disambiguated into not-found vs
// state-conflict with a follow-up read.
func (r *emergencyRequestRepository) conditionalUpdate(ctx context.Context, id primitive.ObjectID, filter, update bson.M) (*models.EmergencyRequest, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var req models.EmergencyRequest
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, r.classifyMiss(ctx, id)
		}
		return nil, fmt.Errorf("failed to update emergency request: %w", err)
	}

	r.invalidateRequestCache(ctx, id.Hex())
	return &req, nil
}

func (r *emergencyRequestRepository) classifyMiss(ctx context.Context, id primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to classify update miss: %w", err)
	}
	if count == 0 {
		return interfaces.ErrNotFound
	}
	return interfaces.ErrStateConflict
}

// Cache operations
func (r *emergencyRequestRepository) cacheRequest(ctx context.Context, req *models.EmergencyRequest) {
	if r.cache != nil {
		r.cache.Set(ctx, "request:"+req.ID.Hex(), req, 15*time.Minute)
	}
}

func (r *emergencyRequestRepository) getRequestFromCache(ctx context.Context, id string) *models.EmergencyRequest {
	if r.cache == nil {
		return nil
	}

	var req models.EmergencyRequest
	if err := r.cache.Get(ctx, "request:"+id, &req); err != nil {
		return nil
	}
	return &req
}

func (r *emergencyRequestRepository) invalidateRequestCache(ctx context.Context, id string) {
	if r.cache != nil {
		r.cache.Delete(ctx, "request:"+id)
	}
}
