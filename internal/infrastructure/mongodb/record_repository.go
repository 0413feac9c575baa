package mongodb

import (
	"context"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/cloudevents"
	pkgmongo "github.com/bakery-platform/inventory/pkg/mongodb"
	outboxMongo "github.com/bakery-platform/inventory/pkg/outbox/mongodb"
)

const recordsCollection = "daily_records"

// DailyRecordRepository stores the daily records archive. At most one record
// exists per (date, itemId), enforced by a unique index.
type DailyRecordRepository struct {
	client       *pkgmongo.InstrumentedClient
	collection   *pkgmongo.InstrumentedCollection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewDailyRecordRepository creates a new DailyRecordRepository
func NewDailyRecordRepository(client *pkgmongo.InstrumentedClient, eventFactory *cloudevents.EventFactory) *DailyRecordRepository {
	return &DailyRecordRepository{
		client:       client,
		collection:   client.Collection(recordsCollection),
		outboxRepo:   outboxMongo.NewOutboxRepository(client.Database()),
		eventFactory: eventFactory,
	}
}

// EnsureIndexes creates the record indexes
func (r *DailyRecordRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "date", Value: 1}, {Key: "itemId", Value: 1}},
			Options: options.Index().SetName("uniq_date_item").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "itemId", Value: 1}},
			Options: options.Index().SetName("idx_itemId"),
		},
	}
	if _, err := r.collection.CreateIndexes(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create daily record indexes: %w", err)
	}
	return nil
}

// Insert stores record. It fails with domain.ErrRecordExists when a record
// for the same date and item is already archived.
func (r *DailyRecordRepository) Insert(ctx context.Context, record *domain.DailyRecord) error {
	return r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := r.insertInTx(sessCtx, record); err != nil {
			return err
		}
		return r.saveEvent(sessCtx, record, false)
	})
}

// Replace deletes any record for (date, itemId) and inserts record
func (r *DailyRecordRepository) Replace(ctx context.Context, record *domain.DailyRecord) error {
	return r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		res, err := r.collection.DeleteOne(sessCtx, recordKey(record.Date, record.ItemID))
		if err != nil {
			return fmt.Errorf("failed to delete previous record: %w", err)
		}
		if err := r.insertInTx(sessCtx, record); err != nil {
			return err
		}
		return r.saveEvent(sessCtx, record, res.DeletedCount > 0)
	})
}

// insertInTx writes record without events; callers own the outbox rows
func (r *DailyRecordRepository) insertInTx(ctx context.Context, record *domain.DailyRecord) error {
	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		if pkgmongo.IsDuplicateKey(err) {
			return domain.ErrRecordExists
		}
		return fmt.Errorf("failed to insert daily record: %w", err)
	}
	return nil
}

// deleteAutosaveInTx drops the autosave record for date and item, if any.
// Manual and rollover records are left in place.
func (r *DailyRecordRepository) deleteAutosaveInTx(ctx context.Context, date domain.Date, itemID int64) error {
	filter := recordKey(date, itemID)
	filter["source"] = string(domain.SourceAutosave)
	if _, err := r.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete autosave record: %w", err)
	}
	return nil
}

func (r *DailyRecordRepository) saveEvent(ctx context.Context, record *domain.DailyRecord, replaced bool) error {
	rows, err := outboxEvents(ctx, r.eventFactory,
		record.Date.String()+"/"+strconv.FormatInt(record.ItemID, 10),
		aggregateDailyRecord,
		recordSubject(record.Date, record.ItemID),
		[]domain.DomainEvent{record.ArchivedEvent(replaced)},
	)
	if err != nil {
		return err
	}
	return r.outboxRepo.SaveAll(ctx, rows)
}

// FindOne returns the record for date and item, or nil
func (r *DailyRecordRepository) FindOne(ctx context.Context, date domain.Date, itemID int64) (*domain.DailyRecord, error) {
	var record domain.DailyRecord
	err := r.collection.FindOne(ctx, recordKey(date, itemID)).Decode(&record)
	if pkgmongo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByRange returns records with dates in the inclusive range, ordered by
// date then item id. An empty end leaves that side open. Dates are stored as YYYY-MM-DD so string order is date order.
func (r *DailyRecordRepository) FindByRange(ctx context.Context, dr domain.DateRange) ([]*domain.DailyRecord, error) {
	bounds := bson.M{}
	if !dr.From.IsZero() {
		bounds["$gte"] = dr.From.String()
	}
	if !dr.To.IsZero() {
		bounds["$lte"] = dr.To.String()
	}
	filter := bson.M{}
	if len(bounds) > 0 {
		filter["date"] = bounds
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "itemId", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := make([]*domain.DailyRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Delete removes the record for date and item
func (r *DailyRecordRepository) Delete(ctx context.Context, date domain.Date, itemID int64) error {
	res, err := r.collection.DeleteOne(ctx, recordKey(date, itemID))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func recordKey(date domain.Date, itemID int64) bson.M {
	return bson.M{"date": date.String(), "itemId": itemID}
}
