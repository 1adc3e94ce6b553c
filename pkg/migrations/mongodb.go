package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DestinationsCollection = "destinations"
	OutcomesCollection     = "delivery_outcomes"
)

// EnsureMongoIndexes creates the indexes used by destination and outcome
// queries. Collections are created on first insert.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	destinationIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "feed_id", Value: 1}, {Key: "disabled", Value: 1}},
			Options: options.Index().SetName("idx_destinations_feed_disabled"),
		},
	}
	if err := createIndexes(ctx, db.Collection(DestinationsCollection), destinationIndexes); err != nil {
		return err
	}

	outcomeIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "feed_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_delivery_outcomes_feed_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "destination_id", Value: 1}},
			Options: options.Index().SetName("idx_delivery_outcomes_destination"),
		},
	}
	return createIndexes(ctx, db.Collection(OutcomesCollection), outcomeIndexes)
}

func createIndexes(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel) error {
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create indexes on %s: %w", collection.Name(), err)
	}
	return nil
}
