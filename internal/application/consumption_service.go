package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/errors"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/metrics"
)

// ConsumptionError reports a production order whose stock changes could not
// be persisted. Nothing from the order was saved.
type ConsumptionError struct {
	OrderID string
	Items   []string
	Err     error
}

func (e *ConsumptionError) Error() string {
	return fmt.Sprintf("production order %s not saved (items: %s): %v", e.OrderID, strings.Join(e.Items, ", "), e.Err)
}

func (e *ConsumptionError) Unwrap() error {
	return e.Err
}

// ConsumptionService applies production orders to the inventory ledger
type ConsumptionService struct {
	inventory domain.InventoryRepository
	recipes   domain.RecipeRepository
	lock      *LedgerLock
	observer  ConsumptionObserver
	metrics   *metrics.Metrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewConsumptionService creates a new ConsumptionService. observer may be nil.
func NewConsumptionService(
	inventory domain.InventoryRepository,
	recipes domain.RecipeRepository,
	lock *LedgerLock,
	observer ConsumptionObserver,
	m *metrics.Metrics,
	logger *logging.Logger,
) *ConsumptionService {
	return &ConsumptionService{
		inventory: inventory,
		recipes:   recipes,
		lock:      lock,
		observer:  observer,
		metrics:   m,
		logger:    logger.WithComponent("consumption"),
		now:       time.Now,
	}
}

// ApplyOrder deducts recipe × orderQty from stock and persists every touched
// item in one transaction. Missing ingredients and misconfigured split units
// are reported in the result, not as errors.
func (s *ConsumptionService) ApplyOrder(ctx context.Context, cmd ApplyOrderCommand) (*ConsumptionResultDTO, error) {
	if cmd.OrderQty <= 0 {
		return nil, errors.ErrValidation(domain.ErrInvalidOrderQuantity.Error())
	}

	recipe, err := s.resolveRecipe(ctx, cmd)
	if err != nil {
		return nil, err
	}

	orderID := cmd.OrderID
	if orderID == "" {
		orderID = uuid.NewString()
	}
	ctx = logging.ContextWithOrderID(ctx, orderID)

	// the cooldown only starts once a write was attempted
	wrote := false
	if s.observer != nil {
		s.observer.NotifyConsumptionStarted()
		defer func() {
			if wrote {
				s.observer.NotifyConsumptionFinished(s.now())
				return
			}
			s.observer.NotifyConsumptionAborted()
		}()
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	stored, err := s.inventory.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load inventory", "error", err)
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	items := make([]domain.InventoryItem, 0, len(stored))
	wasLow := make(map[int64]bool, len(stored))
	for _, item := range stored {
		items = append(items, *item)
		wasLow[item.ID] = item.IsLowStock()
	}

	result, err := domain.ApplyRecipe(*recipe, cmd.OrderQty, items)
	if err != nil {
		s.recordOrder(false)
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}

	now := s.now().UTC()
	updated := s.attachEvents(result, orderID, recipe.Name, wasLow, now)

	if len(updated) > 0 {
		wrote = true
		if err := s.inventory.SaveAll(ctx, updated); err != nil {
			s.recordOrder(false)
			names := make([]string, 0, len(updated))
			for _, item := range updated {
				names = append(names, item.Name)
			}
			cause := &ConsumptionError{OrderID: orderID, Items: names, Err: err}
			s.logger.WithError(cause).ErrorContext(ctx, "Production order rolled back", "recipe", recipe.Name)
			return nil, errors.ErrPersistence("production order was not saved; no stock was deducted").
				WithDetail("orderId", orderID).
				WithDetail("items", strings.Join(names, ", ")).
				Wrap(cause)
		}
	}

	s.recordOrder(true)
	s.report(ctx, result, orderID)
	s.refreshLowStock(stored, updated)

	dto := &ConsumptionResultDTO{
		OrderID:    orderID,
		RecipeName: recipe.Name,
		OrderQty:   cmd.OrderQty,
		Log:        result.Log,
		Missing:    result.Missing(),
		Items:      ToInventoryItemDTOs(updated),
		AppliedAt:  now,
	}
	for _, w := range result.Warnings() {
		dto.Warnings = append(dto.Warnings, fmt.Sprintf("%s: %s", w.IngredientName, w.Warning))
	}

	s.logger.InfoContext(ctx, "Applied production order",
		"recipe", recipe.Name,
		"orderQty", cmd.OrderQty,
		"itemsUpdated", len(updated),
		"missing", len(dto.Missing),
	)
	return dto, nil
}

func (s *ConsumptionService) resolveRecipe(ctx context.Context, cmd ApplyOrderCommand) (*domain.Recipe, error) {
	if cmd.Recipe != nil {
		if err := cmd.Recipe.Validate(); err != nil {
			return nil, errors.ErrValidation(err.Error()).Wrap(err)
		}
		return cmd.Recipe, nil
	}
	if cmd.RecipeID == "" {
		return nil, errors.ErrValidation("recipeId or recipe is required")
	}

	recipe, err := s.recipes.FindByID(ctx, cmd.RecipeID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get recipe", "recipeId", cmd.RecipeID, "error", err)
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if recipe == nil {
		return nil, errors.ErrNotFoundWithID("recipe", cmd.RecipeID)
	}
	return recipe, nil
}

// attachEvents turns the applier's copies into items ready to save, each
// carrying the events for what this order did to it.
func (s *ConsumptionService) attachEvents(result domain.ConsumptionResult, orderID, recipeName string, wasLow map[int64]bool, now time.Time) []*domain.InventoryItem {
	updated := make([]*domain.InventoryItem, 0, len(result.Items))
	byID := make(map[int64]*domain.InventoryItem, len(result.Items))
	for i := range result.Items {
		item := result.Items[i]
		item.ClearDomainEvents()
		item.Touch(now)
		updated = append(updated, &item)
		byID[item.ID] = &item
	}

	for _, entry := range result.Log {
		item, ok := byID[entry.ItemID]
		if entry.Outcome == domain.OutcomeMissing || !ok {
			continue
		}
		item.AddDomainEvent(&domain.StockConsumedEvent{
			ItemID:            item.ID,
			Name:              item.Name,
			OrderID:           orderID,
			RecipeName:        recipeName,
			RequestedQty:      entry.RequestedQty,
			ConsumedPrimary:   entry.ConsumedPrimary,
			ConsumedSecondary: entry.ConsumedSecondary,
			OverConsumed:      entry.OverConsumed,
			Shortfall:         entry.Shortfall,
			RemainingStock:    entry.RemainingStock,
			Warning:           entry.Warning,
			ConsumedAt:        now,
		})
	}

	for _, item := range updated {
		item.RecordLedgerUpdate("consumption", wasLow[item.ID], now)
	}
	return updated
}

func (s *ConsumptionService) report(ctx context.Context, result domain.ConsumptionResult, orderID string) {
	for _, entry := range result.Log {
		if s.metrics != nil {
			s.metrics.RecordIngredientConsumption(entry.IngredientName, entry.Unit, string(entry.Outcome), entry.RequestedQty, entry.OverConsumed)
		}

		switch {
		case entry.Outcome == domain.OutcomeMissing:
			s.logger.StockWarning(ctx, entry.IngredientName, "ingredient not in inventory", map[string]any{
				"orderId":      orderID,
				"requestedQty": entry.RequestedQty,
			})
		case entry.Warning != "":
			s.logger.StockWarning(ctx, entry.IngredientName, entry.Warning, map[string]any{
				"orderId": orderID,
				"itemId":  entry.ItemID,
			})
		case entry.OverConsumed > 0:
			s.logger.StockWarning(ctx, entry.IngredientName, "whole secondary units drawn beyond request", map[string]any{
				"orderId":      orderID,
				"overConsumed": entry.OverConsumed,
			})
		}
		if entry.Shortfall > 0 {
			s.logger.StockWarning(ctx, entry.IngredientName, "insufficient physical stock", map[string]any{
				"orderId":   orderID,
				"shortfall": entry.Shortfall,
			})
		}
	}
}

func (s *ConsumptionService) refreshLowStock(stored, updated []*domain.InventoryItem) {
	if s.metrics == nil {
		return
	}
	current := make(map[int64]*domain.InventoryItem, len(stored))
	for _, item := range stored {
		current[item.ID] = item
	}
	for _, item := range updated {
		current[item.ID] = item
	}
	low := 0
	for _, item := range current {
		if item.IsLowStock() {
			low++
		}
	}
	s.metrics.SetLowStockItems(low)
}

func (s *ConsumptionService) recordOrder(success bool) {
	if s.metrics != nil {
		s.metrics.RecordProductionOrder(success)
	}
}
