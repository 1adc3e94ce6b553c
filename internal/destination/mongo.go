package destination

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "monitorss/pkg/errors"
	"monitorss/pkg/metrics"
)

// CollectionName is the mongo collection holding destinations.
const CollectionName = "destinations"

// mongoDocument stores Settings as JSON text since filter expressions and
// placeholder steps are tagged unions.
type mongoDocument struct {
	Destination  `bson:",inline"`
	SettingsJSON string `bson:"settings_json"`
}

type MongoSource struct {
	collection *mongo.Collection
}

func NewMongoSource(db *mongo.Database) *MongoSource {
	return &MongoSource{collection: db.Collection(CollectionName)}
}

func (s *MongoSource) LoadAll(ctx context.Context) ([]*Destination, error) {
	start := time.Now()
	out, err := s.loadAll(ctx)
	metrics.ObserveStoreQuery("mongodb", "destinations.load_all", start, err)
	return out, err
}

func (s *MongoSource) loadAll(ctx context.Context) ([]*Destination, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode destinations: %w", err)
	}

	out := make([]*Destination, 0, len(docs))
	for i := range docs {
		dest, err := docs[i].decode()
		if err != nil {
			return nil, err
		}
		out = append(out, dest)
	}
	return out, nil
}

func (s *MongoSource) Get(ctx context.Context, id string) (*Destination, error) {
	var doc mongoDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.ErrDestinationMissing.WithDetail("destination_id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get destination: %w", err)
	}
	dest, err := doc.decode()
	if err != nil {
		return nil, err
	}
	if err := dest.Validate(); err != nil {
		return nil, err
	}
	return dest, nil
}

// Upsert inserts or replaces a destination.
func (s *MongoSource) Upsert(ctx context.Context, dest *Destination) error {
	if err := dest.Validate(); err != nil {
		return err
	}

	settings, err := json.Marshal(dest.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode destination settings: %w", err)
	}

	doc := mongoDocument{Destination: *dest, SettingsJSON: string(settings)}
	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": dest.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert destination: %w", err)
	}
	return nil
}

func (d *mongoDocument) decode() (*Destination, error) {
	dest := d.Destination
	if d.SettingsJSON != "" {
		if err := json.Unmarshal([]byte(d.SettingsJSON), &dest.Settings); err != nil {
			return nil, fmt.Errorf("failed to decode settings of destination %s: %w", dest.ID, err)
		}
	}
	return &dest, nil
}
