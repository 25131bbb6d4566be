package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SaeedRasheed12/rent-app/internal/models"
)

// MongoAuditLog keeps the admin action trail in MongoDB.
type MongoAuditLog struct {
	col *mongo.Collection
}

func NewMongoAuditLog(db *mongo.Database) *MongoAuditLog {
	return &MongoAuditLog{col: db.Collection("admin_audit")}
}

func (s *MongoAuditLog) Record(ctx context.Context, e models.AuditEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if _, err := s.col.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("mongo audit insert: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *MongoAuditLog) Recent(ctx context.Context, limit int64) ([]models.AuditEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo audit find: %w", err)
	}
	defer cur.Close(ctx)

	entries := []models.AuditEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("mongo audit decode: %w", err)
	}
	return entries, nil
}

// ForTarget returns every entry about one target, newest first.
func (s *MongoAuditLog) ForTarget(ctx context.Context, targetType string, targetID int64) ([]models.AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"target_type": targetType, "target_id": targetID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo audit find: %w", err)
	}
	defer cur.Close(ctx)

	entries := []models.AuditEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("mongo audit decode: %w", err)
	}
	return entries, nil
}
