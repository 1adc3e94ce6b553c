package outcomes

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"monitorss/pkg/metrics"
)

// CollectionName is the mongo collection holding outcomes.
const CollectionName = "delivery_outcomes"

type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(CollectionName)}
}

func (s *MongoStore) Record(ctx context.Context, o *Outcome) error {
	start := time.Now()
	err := s.record(ctx, o)
	metrics.ObserveStoreQuery("mongodb", "outcomes.record", start, err)
	return err
}

func (s *MongoStore) record(ctx context.Context, o *Outcome) error {
	prepare(o)

	if _, err := s.collection.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("failed to record delivery outcome: %w", err)
	}
	return nil
}

func (s *MongoStore) ListByFeed(ctx context.Context, feedID string, since time.Time) ([]Outcome, error) {
	start := time.Now()
	out, err := s.listByFeed(ctx, feedID, since)
	metrics.ObserveStoreQuery("mongodb", "outcomes.list_by_feed", start, err)
	return out, err
}

func (s *MongoStore) listByFeed(ctx context.Context, feedID string, since time.Time) ([]Outcome, error) {
	filter := bson.M{
		"feed_id":   feedID,
		"timestamp": bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery outcomes: %w", err)
	}
	defer cursor.Close(ctx)

	var out []Outcome
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode delivery outcomes: %w", err)
	}
	for i := range out {
		out[i].Timestamp = out[i].Timestamp.UTC()
	}
	return out, nil
}
