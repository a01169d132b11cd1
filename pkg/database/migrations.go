package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the coordinator relies on. The unique
// driver_id index is load-bearing: it backs the one-ambulance-per-driver
// invariant even if two registrations race past the application check.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	requestIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "assigned_ambulance", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "requester_id", Value: 1}},
		},
	}
	if _, err := db.Collection("emergency_requests").Indexes().CreateMany(ctx, requestIndexes); err != nil {
		return fmt.Errorf("failed to create emergency_requests indexes: %w", err)
	}

	ambulanceIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "driver_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	}
	if _, err := db.Collection("ambulances").Indexes().CreateMany(ctx, ambulanceIndexes); err != nil {
		return fmt.Errorf("failed to create ambulances indexes: %w", err)
	}

	return nil
}
