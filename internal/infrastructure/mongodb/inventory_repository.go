package mongodb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/cloudevents"
	pkgmongo "github.com/bakery-platform/inventory/pkg/mongodb"
	outboxMongo "github.com/bakery-platform/inventory/pkg/outbox/mongodb"
)

const (
	inventoryCollection = "inventory_items"
	countersCollection  = "counters"
	inventoryCounterKey = "inventory_items"
)

// nameCollation compares names case-insensitively
var nameCollation = &options.Collation{Locale: "en", Strength: 2}

// InventoryRepository stores inventory items. Every write also stores the
// item's pending domain events in the outbox within the same transaction.
type InventoryRepository struct {
	client       *pkgmongo.InstrumentedClient
	collection   *pkgmongo.InstrumentedCollection
	counters     *pkgmongo.InstrumentedCollection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewInventoryRepository creates a new InventoryRepository
func NewInventoryRepository(client *pkgmongo.InstrumentedClient, eventFactory *cloudevents.EventFactory) *InventoryRepository {
	return &InventoryRepository{
		client:       client,
		collection:   client.Collection(inventoryCollection),
		counters:     client.Collection(countersCollection),
		outboxRepo:   outboxMongo.NewOutboxRepository(client.Database()),
		eventFactory: eventFactory,
	}
}

// EnsureIndexes creates the item and outbox indexes
func (r *InventoryRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("uniq_name_ci").SetUnique(true).SetCollation(nameCollation),
		},
		{
			Keys:    bson.D{{Key: "currentStock", Value: 1}},
			Options: options.Index().SetName("idx_currentStock"),
		},
	}
	if _, err := r.collection.CreateIndexes(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create inventory indexes: %w", err)
	}
	return r.outboxRepo.EnsureIndexes(ctx)
}

// GetOutboxRepository returns the outbox the repository writes to
func (r *InventoryRepository) GetOutboxRepository() *outboxMongo.OutboxRepository {
	return r.outboxRepo
}

// Save upserts item and its events in one transaction
func (r *InventoryRepository) Save(ctx context.Context, item *domain.InventoryItem) error {
	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return r.saveInTx(sessCtx, item)
	})
	if err != nil {
		return fmt.Errorf("failed to save inventory item %d: %w", item.ID, err)
	}
	item.ClearDomainEvents()
	return nil
}

// SaveAll upserts every item and their events in one transaction
func (r *InventoryRepository) SaveAll(ctx context.Context, items []*domain.InventoryItem) error {
	if len(items) == 0 {
		return nil
	}

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		for _, item := range items {
			if err := r.saveInTx(sessCtx, item); err != nil {
				return fmt.Errorf("item %q: %w", item.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save %d inventory items: %w", len(items), err)
	}

	for _, item := range items {
		item.ClearDomainEvents()
	}
	return nil
}

// saveInTx writes item and its outbox rows using the caller's session
func (r *InventoryRepository) saveInTx(sessCtx mongo.SessionContext, item *domain.InventoryItem) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(sessCtx, bson.M{"_id": item.ID}, item, opts); err != nil {
		if pkgmongo.IsDuplicateKey(err) {
			return domain.ErrDuplicateItemName
		}
		return err
	}

	events := item.GetDomainEvents()
	if len(events) == 0 {
		return nil
	}
	rows, err := outboxEvents(sessCtx, r.eventFactory, strconv.FormatInt(item.ID, 10), aggregateInventoryItem, itemSubject(item.ID), events)
	if err != nil {
		return err
	}
	return r.outboxRepo.SaveAll(sessCtx, rows)
}

// FindByID returns the item with id, or nil
func (r *InventoryRepository) FindByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if pkgmongo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByName returns the item whose name matches case-insensitively, or nil
func (r *InventoryRepository) FindByName(ctx context.Context, name string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	opts := options.FindOne().SetCollation(nameCollation)
	err := r.collection.FindOne(ctx, bson.M{"name": strings.TrimSpace(name)}, opts).Decode(&item)
	if pkgmongo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindAll returns every item ordered by id
func (r *InventoryRepository) FindAll(ctx context.Context) ([]*domain.InventoryItem, error) {
	return r.find(ctx, bson.M{})
}

// FindLowStock returns items with a minimum set and current stock below it
func (r *InventoryRepository) FindLowStock(ctx context.Context) ([]*domain.InventoryItem, error) {
	return r.find(ctx, bson.M{
		"minimumQuantity": bson.M{"$gt": 0},
		"$expr":           bson.M{"$lt": bson.A{"$currentStock", "$minimumQuantity"}},
	})
}

func (r *InventoryRepository) find(ctx context.Context, filter bson.M) ([]*domain.InventoryItem, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(pkgmongo.SortAscending("_id")))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]*domain.InventoryItem, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// NextID allocates the next item id. The counter is first raised to the
// highest existing id, so ids continue from max+1 and are never reused
// after a delete.
func (r *InventoryRepository) NextID(ctx context.Context) (int64, error) {
	var highest struct {
		ID int64 `bson:"_id"`
	}
	err := r.collection.FindOne(ctx, bson.M{}, options.FindOne().
		SetSort(pkgmongo.SortDescending("_id")).
		SetProjection(bson.M{"_id": 1}),
	).Decode(&highest)
	if err != nil && !pkgmongo.IsNotFound(err) {
		return 0, fmt.Errorf("failed to read highest item id: %w", err)
	}

	filter := bson.M{"_id": inventoryCounterKey}
	if _, err := r.counters.UpdateOne(ctx, filter,
		bson.M{"$max": bson.M{"seq": highest.ID}},
		options.Update().SetUpsert(true),
	); err != nil {
		return 0, fmt.Errorf("failed to seed item counter: %w", err)
	}

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err = r.counters.FindOneAndUpdate(ctx, filter,
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate item id: %w", err)
	}
	return counter.Seq, nil
}

// Delete removes an item
func (r *InventoryRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
