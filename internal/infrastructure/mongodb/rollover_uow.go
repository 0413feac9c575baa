package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bakery-platform/inventory/internal/domain"
	pkgmongo "github.com/bakery-platform/inventory/pkg/mongodb"
)

// RolloverUnitOfWork archives a record and resets its item in one transaction
type RolloverUnitOfWork struct {
	client    *pkgmongo.InstrumentedClient
	inventory *InventoryRepository
	records   *DailyRecordRepository
}

// NewRolloverUnitOfWork creates a new RolloverUnitOfWork
func NewRolloverUnitOfWork(client *pkgmongo.InstrumentedClient, inventory *InventoryRepository, records *DailyRecordRepository) *RolloverUnitOfWork {
	return &RolloverUnitOfWork{client: client, inventory: inventory, records: records}
}

// ArchiveAndReset inserts record and saves item, including the item's pending
// events. An autosave record for the same date and item is replaced. If a
// manual or rollover record already exists nothing is written and
// domain.ErrRecordExists is returned.
func (u *RolloverUnitOfWork) ArchiveAndReset(ctx context.Context, record *domain.DailyRecord, item *domain.InventoryItem) error {
	err := u.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := u.records.deleteAutosaveInTx(sessCtx, record.Date, record.ItemID); err != nil {
			return err
		}
		if err := u.records.insertInTx(sessCtx, record); err != nil {
			return err
		}
		return u.inventory.saveInTx(sessCtx, item)
	})
	if err != nil {
		return fmt.Errorf("rollover of item %d for %s: %w", item.ID, record.Date, err)
	}
	item.ClearDomainEvents()
	return nil
}
