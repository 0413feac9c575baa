package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/errors"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/metrics"
)

// InventoryApplicationService handles inventory item use cases
type InventoryApplicationService struct {
	repo    domain.InventoryRepository
	lock    *LedgerLock
	metrics *metrics.Metrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewInventoryApplicationService creates a new InventoryApplicationService
func NewInventoryApplicationService(
	repo domain.InventoryRepository,
	lock *LedgerLock,
	m *metrics.Metrics,
	logger *logging.Logger,
) *InventoryApplicationService {
	return &InventoryApplicationService{
		repo:    repo,
		lock:    lock,
		metrics: m,
		logger:  logger.WithComponent("inventory"),
		now:     time.Now,
	}
}

// ListItems returns every inventory item
func (s *InventoryApplicationService) ListItems(ctx context.Context) ([]InventoryItemDTO, error) {
	items, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list items", "error", err)
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	s.setLowStockGauge(items)
	return ToInventoryItemDTOs(items), nil
}

// ListLowStock returns items whose current stock is below their minimum
func (s *InventoryApplicationService) ListLowStock(ctx context.Context) ([]InventoryItemDTO, error) {
	items, err := s.repo.FindLowStock(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list low stock items", "error", err)
		return nil, fmt.Errorf("failed to list low stock items: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SetLowStockItems(len(items))
	}
	return ToInventoryItemDTOs(items), nil
}

// GetItem retrieves an inventory item by id
func (s *InventoryApplicationService) GetItem(ctx context.Context, id int64) (*InventoryItemDTO, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get item", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return nil, errors.ErrNotFoundWithID("inventory item", strconv.FormatInt(id, 10))
	}
	return ToInventoryItemDTO(item), nil
}

// CreateItem adds an inventory item with the next free id
func (s *InventoryApplicationService) CreateItem(ctx context.Context, cmd CreateItemCommand) (*InventoryItemDTO, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.ensureUniqueName(ctx, cmd.Name, 0); err != nil {
		return nil, err
	}

	id, err := s.repo.NextID(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to allocate item id", "error", err)
		return nil, fmt.Errorf("failed to allocate item id: %w", err)
	}

	item, err := domain.NewInventoryItem(id, cmd.Name, cmd.PrimaryUnit, cmd.CustomPrimaryUnit, cmd.SecondaryUnit, cmd.QuantityPerSecondaryUnit, cmd.MinimumQuantity)
	if err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}

	var ledger domain.LedgerInputs
	if cmd.Ledger != nil {
		ledger = *cmd.Ledger
	}
	*item = domain.ApplyLedgerInputs(*item, ledger)

	if err := s.repo.Save(ctx, item); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create item", "name", cmd.Name, "error", err)
		return nil, errors.ErrPersistence("inventory item was not saved").Wrap(err)
	}

	s.logger.InfoContext(ctx, "Created inventory item", "id", item.ID, "name", item.Name)
	return ToInventoryItemDTO(item), nil
}

// UpdateItem replaces an item's configuration and ledger inputs, derives
// the rest and returns the persisted version.
func (s *InventoryApplicationService) UpdateItem(ctx context.Context, cmd UpdateItemCommand) (*InventoryItemDTO, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	item, err := s.repo.FindByID(ctx, cmd.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get item", "id", cmd.ID, "error", err)
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return nil, errors.ErrNotFoundWithID("inventory item", strconv.FormatInt(cmd.ID, 10))
	}

	if domain.NameKey(cmd.Name) != domain.NameKey(item.Name) {
		if err := s.ensureUniqueName(ctx, cmd.Name, item.ID); err != nil {
			return nil, err
		}
	}

	wasLow := item.IsLowStock()
	next := *item
	if err := next.Reconfigure(cmd.Name, cmd.PrimaryUnit, cmd.CustomPrimaryUnit, cmd.SecondaryUnit, cmd.QuantityPerSecondaryUnit, cmd.MinimumQuantity); err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}

	next = domain.ApplyLedgerInputs(next, cmd.Ledger)
	now := s.now().UTC()
	next.Touch(now)
	next.ClearDomainEvents()
	next.RecordLedgerUpdate("manual_edit", wasLow, now)

	if err := s.repo.Save(ctx, &next); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save item", "id", cmd.ID, "error", err)
		return nil, errors.ErrPersistence("inventory item was not saved").Wrap(err)
	}

	s.logger.InfoContext(ctx, "Updated inventory item", "id", next.ID, "currentStock", next.CurrentStock)
	return ToInventoryItemDTO(&next), nil
}

// DeleteItem removes an item. Archived records are left untouched.
func (s *InventoryApplicationService) DeleteItem(ctx context.Context, id int64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return errors.ErrNotFoundWithID("inventory item", strconv.FormatInt(id, 10))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete item", "id", id, "error", err)
		return fmt.Errorf("failed to delete item: %w", err)
	}

	s.logger.InfoContext(ctx, "Deleted inventory item", "id", id, "name", item.Name)
	return nil
}

func (s *InventoryApplicationService) ensureUniqueName(ctx context.Context, name string, selfID int64) error {
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check item name: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return errors.ErrConflict(domain.ErrDuplicateItemName.Error()).WithDetail("name", existing.Name)
	}
	return nil
}

func (s *InventoryApplicationService) setLowStockGauge(items []*domain.InventoryItem) {
	if s.metrics == nil {
		return
	}
	low := 0
	for _, item := range items {
		if item.IsLowStock() {
			low++
		}
	}
	s.metrics.SetLowStockItems(low)
}
