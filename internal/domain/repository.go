package domain

import "context"

// InventoryRepository defines the interface for inventory persistence.
// Find methods return nil, nil when nothing matches.
type InventoryRepository interface {
	Save(ctx context.Context, item *InventoryItem) error
	// SaveAll writes every item and its pending events in one transaction.
	// Either all of them are persisted or none is.
	SaveAll(ctx context.Context, items []*InventoryItem) error
	FindByID(ctx context.Context, id int64) (*InventoryItem, error)
	FindByName(ctx context.Context, name string) (*InventoryItem, error)
	FindAll(ctx context.Context) ([]*InventoryItem, error)
	FindLowStock(ctx context.Context) ([]*InventoryItem, error)
	NextID(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// RecipeRepository defines the interface for recipe persistence
type RecipeRepository interface {
	Save(ctx context.Context, recipe *Recipe) error
	FindByID(ctx context.Context, id string) (*Recipe, error)
	FindAll(ctx context.Context) ([]*Recipe, error)
	Delete(ctx context.Context, id string) error
}

// DailyRecordRepository defines the interface for the records archive
type DailyRecordRepository interface {
	// Insert fails with ErrRecordExists when (date, itemId) is taken
	Insert(ctx context.Context, record *DailyRecord) error
	// Replace deletes any record for (date, itemId) and inserts record in one transaction
	Replace(ctx context.Context, record *DailyRecord) error
	FindOne(ctx context.Context, date Date, itemID int64) (*DailyRecord, error)
	FindByRange(ctx context.Context, r DateRange) ([]*DailyRecord, error)
	Delete(ctx context.Context, date Date, itemID int64) error
}

// RolloverUnitOfWork persists one item's rollover atomically
type RolloverUnitOfWork interface {
	// ArchiveAndReset inserts record and saves item in the same transaction
	ArchiveAndReset(ctx context.Context, record *DailyRecord, item *InventoryItem) error
}
