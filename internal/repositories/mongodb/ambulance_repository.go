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

type ambulanceRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewAmbulanceRepository(db *mongo.Database, cache services.CacheService) interfaces.AmbulanceRepository {
	return &ambulanceRepository{
		collection: db.Collection("ambulances"),
		cache:      cache,
	}
}

func (r *ambulanceRepository) Create(ctx context.Context, ambulance *models.Ambulance) error {
	now := time.Now()
	ambulance.ID = primitive.NewObjectID()
	ambulance.Status = models.AmbulanceStatusAvailable
	ambulance.AssignedEmergency = nil
	ambulance.LastUpdated = now
	ambulance.CreatedAt = now

	_, err := r.collection.InsertOne(ctx, ambulance)
	if err != nil {
		// The unique driver_id index catches registrations racing past
		// the application-level existence check.
		if mongo.IsDuplicateKeyError(err) {
			return interfaces.ErrDuplicateDriver
		}
		return fmt.Errorf("failed to create ambulance: %w", err)
	}

	return nil
}

func (r *ambulanceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	var ambulance models.Ambulance
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ambulance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ambulance: %w", err)
	}

	return &ambulance, nil
}

func (r *ambulanceRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error) {
	var ambulance models.Ambulance
	err := r.collection.FindOne(ctx, bson.M{"driver_id": driverID}).Decode(&ambulance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ambulance by driver: %w", err)
	}

	return &ambulance, nil
}

func (r *ambulanceRepository) GetAvailable(ctx context.Context, params *utils.PaginationParams) ([]*models.AmbulanceWithDriver, int64, error) {
	filter := bson.M{"status": models.AmbulanceStatusAvailable}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count available ambulances: %w", err)
	}

	match := filter
	if cursorFilter := params.GetCursorFilter(); cursorFilter != nil {
		match = bson.M{"$and": []bson.M{filter, cursorFilter}}
	}

	sortOrder := -1
	if params.Order == "asc" {
		sortOrder = 1
	}

	// Join each unit with its driver identity for the dispatch view.
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: params.Sort, Value: sortOrder}}}},
		{{Key: "$skip", Value: params.GetSkip()}},
		{{Key: "$limit", Value: params.GetLimit()}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "driver_id",
			"foreignField": "_id",
			"as":           "driver",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$driver", "preserveNullAndEmptyArrays": true}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find available ambulances: %w", err)
	}
	defer cursor.Close(ctx)

	var ambulances []*models.AmbulanceWithDriver
	for cursor.Next(ctx) {
		var amb models.AmbulanceWithDriver
		if err := cursor.Decode(&amb); err != nil {
			return nil, 0, fmt.Errorf("failed to decode ambulance: %w", err)
		}
		ambulances = append(ambulances, &amb)
	}

	return ambulances, total, nil
}

func (r *ambulanceRepository) UpdateLocation(ctx context.Context, driverID primitive.ObjectID, location models.Coordinates, status *models.AmbulanceStatus) (*models.Ambulance, error) {
	now := time.Now()
	set := bson.M{
		"current_location": location,
		"last_updated":     now,
	}
	if status != nil {
		set["status"] = *status
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ambulance models.Ambulance
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"driver_id": driverID}, bson.M{"$set": set}, opts).Decode(&ambulance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update ambulance location: %w", err)
	}

	r.invalidateAmbulanceCache(ctx, ambulance.ID.Hex())
	return &ambulance, nil
}

func (r *ambulanceRepository) Engage(ctx context.Context, id, emergencyID primitive.ObjectID) (*models.Ambulance, error) {
	filter := bson.M{
		"_id":                id,
		"status":             models.AmbulanceStatusAvailable,
		"assigned_emergency": nil,
	}
	update := bson.M{"$set": bson.M{
		"status":             models.AmbulanceStatusEnRoute,
		"assigned_emergency": emergencyID,
		"last_updated":       time.Now(),
	}}

	return r.conditionalUpdate(ctx, id, filter, update)
}

func (r *ambulanceRepository) Release(ctx context.Context, id, emergencyID primitive.ObjectID) (*models.Ambulance, error) {
	filter := bson.M{
		"_id":                id,
		"assigned_emergency": emergencyID,
	}
	update := bson.M{"$set": bson.M{
		"status":             models.AmbulanceStatusAvailable,
		"assigned_emergency": nil,
		"last_updated":       time.Now(),
	}}

	return r.conditionalUpdate(ctx, id, filter, update)
}

func (r *ambulanceRepository) conditionalUpdate(ctx context.Context, id primitive.ObjectID, filter, update bson.M) (*models.Ambulance, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ambulance models.Ambulance
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ambulance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, r.classifyMiss(ctx, id)
		}
		return nil, fmt.Errorf("failed to update ambulance: %w", err)
	}

	r.invalidateAmbulanceCache(ctx, id.Hex())
	return &ambulance, nil
}

func (r *ambulanceRepository) classifyMiss(ctx context.Context, id primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to classify update miss: %w", err)
	}
	if count == 0 {
		return interfaces.ErrNotFound
	}
	return interfaces.ErrStateConflict
}

func (r *ambulanceRepository) invalidateAmbulanceCache(ctx context.Context, id string) {
	if r.cache != nil {
		r.cache.Delete(ctx, "ambulance:"+id)
	}
}
