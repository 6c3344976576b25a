package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"maro_automation/comfort-studio/models"
)

const recordsCollection = "content_records"

// ErrNotFound is returned when no record has the requested ID
var ErrNotFound = errors.New("record not found")

// MongoStore keeps the run history in MongoDB
type MongoStore struct {
	client  *mongo.Client
	records *mongo.Collection
	logger  logrus.FieldLogger
}

// NewMongoStore connects, pings and makes sure the indexes exist
func NewMongoStore(ctx context.Context, uri, database string, logger logrus.FieldLogger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &MongoStore{
		client:  client,
		records: client.Database(database).Collection(recordsCollection),
		logger:  logger,
	}
	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.WithField("database", database).Info("✓ MongoDB connected successfully")
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "content_type", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

// Save upserts record by ID
func (s *MongoStore) Save(ctx context.Context, record *models.ContentRecord) error {
	_, err := s.records.ReplaceOne(ctx,
		bson.M{"_id": record.ID},
		record,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", record.ID, err)
	}
	return nil
}

// FindByID loads one record
func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.ContentRecord, error) {
	record := &models.ContentRecord{}
	err := s.records.FindOne(ctx, bson.M{"_id": id}).Decode(record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	if err := record.RestoreTimeline(); err != nil {
		s.logger.WithError(err).Warn("stored record has an invalid timeline")
	}
	return record, nil
}

// List returns the newest records first
func (s *MongoStore) List(ctx context.Context, limit int) ([]*models.ContentRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.records.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.ContentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
