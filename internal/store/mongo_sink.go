package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"actiontag/internal/constants"
	"actiontag/pkg/classifier"
	"actiontag/pkg/errors"
	"actiontag/pkg/metrics"
	"actiontag/pkg/models"
)

// MongoSink upserts annotated documents keyed by name. Overwrite off turns
// the upsert into an insert that fails on an existing name.
type MongoSink struct {
	collection *mongo.Collection
	overwrite  bool
	classifier *classifier.Classifier
}

func NewMongoSink(db *mongo.Database, collection string, overwrite bool, c *classifier.Classifier) *MongoSink {
	if c == nil {
		c = classifier.Default()
	}
	return &MongoSink{
		collection: db.Collection(collection),
		overwrite:  overwrite,
		classifier: c,
	}
}

type storedDocument struct {
	Name      string    `bson:"_id"`
	Action    string    `bson:"action"`
	Document  bson.M    `bson:"document"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (s *MongoSink) Write(ctx context.Context, name string, doc models.Document) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	annotated, err := s.classifier.Classify(doc)
	if err != nil {
		return "", err
	}

	body, err := toBSON(annotated)
	if err != nil {
		return "", err
	}

	action, _ := annotated.Action()
	record := storedDocument{
		Name:      name,
		Action:    string(action),
		Document:  body,
		UpdatedAt: time.Now().UTC(),
	}

	if s.overwrite {
		_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": name}, record, options.Replace().SetUpsert(true))
	} else {
		_, err = s.collection.InsertOne(ctx, record)
		if mongo.IsDuplicateKeyError(err) {
			metrics.IncSinkWrite(constants.SinkTypeMongoDB, "conflict")
			return "", errors.ErrConflict.WithCause(err).WithDetail("name", name)
		}
	}
	if err != nil {
		metrics.IncSinkWrite(constants.SinkTypeMongoDB, "error")
		return "", errors.ErrInternal.WithCause(fmt.Errorf("mongodb write failed: %w", err))
	}

	metrics.IncSinkWrite(constants.SinkTypeMongoDB, "ok")
	return fmt.Sprintf("mongodb://%s/%s", s.collection.Name(), name), nil
}

// EnsureIndexes lets stored documents be listed by action, newest first.
func (s *MongoSink) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "action", Value: 1}, {Key: "updated_at", Value: -1}},
		Options: options.Index().SetName("action_updated_at"),
	})
	if err != nil {
		return errors.ErrInternal.WithCause(fmt.Errorf("failed to create mongodb index: %w", err))
	}
	return nil
}

// Get loads a stored document, mainly for tests and the HTTP API.
func (s *MongoSink) Get(ctx context.Context, name string) (models.Document, error) {
	var record storedDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrNotFound.WithDetail("name", name)
	}
	if err != nil {
		return nil, errors.ErrInternal.WithCause(fmt.Errorf("mongodb read failed: %w", err))
	}
	return models.Document(record.Document), nil
}

// Close is a no-op; the client belongs to whoever connected it.
func (s *MongoSink) Close(context.Context) error {
	return nil
}

// toBSON goes through JSON so json.Number values and nested arrays land as
// plain BSON numbers and arrays.
func toBSON(doc models.Document) (bson.M, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(fmt.Errorf("failed to encode document: %w", err))
	}

	var out bson.M
	if err := bson.UnmarshalExtJSON(data, false, &out); err != nil {
		return nil, errors.ErrInternal.WithCause(fmt.Errorf("failed to convert document: %w", err))
	}
	return out, nil
}
