package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"sentisense/internal/models"
)

type quotaDoc struct {
	Email           string    `bson:"email"`
	EmailsSentToday int       `bson:"emails_sent_today"`
	LastSentDate    time.Time `bson:"last_sent_date"`
}

type Quotas struct {
	coll *mongo.Collection
}

func NewQuotas(db *mongo.Database) *Quotas {
	return &Quotas{coll: db.Collection(quotaCollection)}
}

func (s *Quotas) Get(ctx context.Context, email string) (*models.EmailQuota, error) {
	var doc quotaDoc
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find email quota: %w", err)
	}
	return &models.EmailQuota{
		Email:           doc.Email,
		EmailsSentToday: doc.EmailsSentToday,
		LastSentDate:    doc.LastSentDate,
	}, nil
}

func (s *Quotas) Create(ctx context.Context, q *models.EmailQuota) error {
	_, err := s.coll.InsertOne(ctx, quotaDoc{
		Email:           q.Email,
		EmailsSentToday: q.EmailsSentToday,
		LastSentDate:    q.LastSentDate,
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert email quota: %w", err)
	}
	return nil
}

func (s *Quotas) Save(ctx context.Context, q *models.EmailQuota) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"email": q.Email},
		bson.M{"$set": bson.M{
			"emails_sent_today": q.EmailsSentToday,
			"last_sent_date":    q.LastSentDate,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save email quota: %w", err)
	}
	return nil
}
