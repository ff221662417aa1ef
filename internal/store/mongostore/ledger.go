package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"sentisense/internal/models"
)

type entryDoc struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	UserID       string        `bson:"user_id"`
	AnalysisType string        `bson:"analysis_type"`
	NaturalKey   string        `bson:"natural_key"`
	KeyDigest    string        `bson:"key_digest"`
	Data         bson.Raw      `bson:"analysis_data"`
	Timestamp    time.Time     `bson:"timestamp"`
}

// model converts the stored document back to JSON values so that a
// payload read from Mongo matches one read from any other store.
func (d *entryDoc) model() (*models.AnalysisEntry, error) {
	var data models.Payload
	if len(d.Data) > 0 {
		raw, err := bson.MarshalExtJSON(d.Data, false, false)
		if err != nil {
			return nil, fmt.Errorf("convert analysis data: %w", err)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("convert analysis data: %w", err)
		}
	}
	return &models.AnalysisEntry{
		ID:           d.ID.Hex(),
		UserID:       d.UserID,
		AnalysisType: models.AnalysisType(d.AnalysisType),
		NaturalKey:   d.NaturalKey,
		KeyDigest:    d.KeyDigest,
		Data:         data,
		CreatedAt:    d.Timestamp,
	}, nil
}

type Ledger struct {
	coll *mongo.Collection
}

func NewLedger(db *mongo.Database) *Ledger {
	return &Ledger{coll: db.Collection(historyCollection)}
}

func (s *Ledger) Insert(ctx context.Context, e *models.AnalysisEntry) error {
	payload := map[string]any(e.Data)
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := bson.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal analysis data: %w", err)
	}
	doc := entryDoc{
		ID:           bson.NewObjectID(),
		UserID:       e.UserID,
		AnalysisType: string(e.AnalysisType),
		NaturalKey:   e.NaturalKey,
		KeyDigest:    e.KeyDigest,
		Data:         data,
		Timestamp:    e.CreatedAt,
	}
	_, err = s.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("insert analysis entry: %w", err)
	}
	e.ID = doc.ID.Hex()
	return nil
}

func (s *Ledger) FindByKey(ctx context.Context, userID string, kind models.AnalysisType, digest string) (*models.AnalysisEntry, error) {
	var doc entryDoc
	err := s.coll.FindOne(ctx, bson.M{
		"user_id":       userID,
		"analysis_type": string(kind),
		"key_digest":    digest,
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find analysis entry: %w", err)
	}
	return doc.model()
}

func (s *Ledger) ListByUser(ctx context.Context, userID string) ([]models.AnalysisEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list analysis entries: %w", err)
	}
	var docs []entryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode analysis entries: %w", err)
	}
	entries := make([]models.AnalysisEntry, 0, len(docs))
	for i := range docs {
		e, err := docs[i].model()
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}
