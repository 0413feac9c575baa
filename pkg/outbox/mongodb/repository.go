// Package mongodb stores outbox events in a MongoDB collection
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bakery-platform/inventory/pkg/outbox"
)

const (
	CollectionName = "outbox_events"

	// published rows are removed by a TTL index after this long
	publishedRetention = 7 * 24 * time.Hour
)

// OutboxRepository implements outbox.Repository
type OutboxRepository struct {
	collection *mongo.Collection
}

func NewOutboxRepository(db *mongo.Database) *OutboxRepository {
	return &OutboxRepository{collection: db.Collection(CollectionName)}
}

func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.Event) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]any, 0, len(events))
	for _, e := range events {
		docs = append(docs, e)
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert %d outbox events: %w", len(events), err)
	}
	return nil
}

func (r *OutboxRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*outbox.Event, error) {
	filter := bson.M{
		"publishedAt":   bson.M{"$exists": false},
		"nextAttemptAt": bson.M{"$lte": now},
		"$expr":         bson.M{"$lt": bson.A{"$attempts", "$maxAttempts"}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string, at time.Time) error {
	return r.update(ctx, eventID, bson.M{"$set": bson.M{"publishedAt": at.UTC()}})
}

func (r *OutboxRepository) RecordFailure(ctx context.Context, eventID, errMsg string, nextAttemptAt time.Time) error {
	return r.update(ctx, eventID, bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"lastError": errMsg, "nextAttemptAt": nextAttemptAt.UTC()},
	})
}

func (r *OutboxRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return r.find(ctx, bson.M{"aggregateId": aggregateID}, opts)
}

func (r *OutboxRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*outbox.Event, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*outbox.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode outbox events: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) update(ctx context.Context, eventID string, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": eventID}, update)
	if err != nil {
		return fmt.Errorf("update outbox event %s: %w", eventID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("outbox event %s not found", eventID)
	}
	return nil
}

// EnsureIndexes creates the relay polling index, the aggregate lookup index
// and the TTL index on publishedAt
func (r *OutboxRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "publishedAt", Value: 1}, {Key: "nextAttemptAt", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_due"),
		},
		{
			Keys:    bson.D{{Key: "aggregateId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_aggregate"),
		},
		{
			Keys: bson.D{{Key: "publishedAt", Value: 1}},
			Options: options.Index().
				SetName("idx_published_ttl").
				SetExpireAfterSeconds(int32(publishedRetention.Seconds())),
		},
	})
	if err != nil {
		return fmt.Errorf("create outbox indexes: %w", err)
	}
	return nil
}
