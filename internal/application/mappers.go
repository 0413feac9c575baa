package application

import "github.com/bakery-platform/inventory/internal/domain"

// ToInventoryItemDTO converts a domain InventoryItem to InventoryItemDTO
func ToInventoryItemDTO(item *domain.InventoryItem) *InventoryItemDTO {
	if item == nil {
		return nil
	}

	dto := &InventoryItemDTO{
		ID:                       item.ID,
		Name:                     item.Name,
		PrimaryUnit:              string(item.PrimaryUnit),
		CustomPrimaryUnit:        item.CustomPrimaryUnit,
		SecondaryUnit:            string(item.SecondaryUnit),
		QuantityPerSecondaryUnit: item.QuantityPerSecondaryUnit,
		OpeningStock:             item.OpeningStock,
		Received:                 item.Received,
		Consumed:                 item.Consumed,
		Received2:                item.Received2,
		Consumed2:                item.Consumed2,
		Total:                    item.Total,
		Balance:                  item.Balance,
		Total2:                   item.Total2,
		FinalStock:               item.FinalStock,
		CurrentStock:             item.CurrentStock,
		MinimumQuantity:          item.MinimumQuantity,
		LowStock:                 item.IsLowStock(),
		LastRolloverDate:         item.LastRolloverDate.String(),
		CreatedAt:                item.CreatedAt,
		UpdatedAt:                item.UpdatedAt,
	}

	if item.SecondaryUnit.IsSet() {
		dto.Split = &SplitLedgerDTO{
			OpeningStockPrimary:   item.OpeningStockPrimary,
			OpeningStockSecondary: item.OpeningStockSecondary,
			ReceivedPrimary:       item.ReceivedPrimary,
			ReceivedSecondary:     item.ReceivedSecondary,
			ConsumedPrimary:       item.ConsumedPrimary,
			ConsumedSecondary:     item.ConsumedSecondary,
			Received2Primary:      item.Received2Primary,
			Received2Secondary:    item.Received2Secondary,
			Consumed2Primary:      item.Consumed2Primary,
			Consumed2Secondary:    item.Consumed2Secondary,
			BalancePrimary:        item.BalancePrimary,
			BalanceSecondary:      item.BalanceSecondary,
			FinalStockPrimary:     item.FinalStockPrimary,
			FinalStockSecondary:   item.FinalStockSecondary,
		}
	}

	return dto
}

// ToInventoryItemDTOs converts a list of items
func ToInventoryItemDTOs(items []*domain.InventoryItem) []InventoryItemDTO {
	out := make([]InventoryItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, *ToInventoryItemDTO(item))
	}
	return out
}

// ToRecipeDTO converts a domain Recipe to RecipeDTO
func ToRecipeDTO(r *domain.Recipe) *RecipeDTO {
	if r == nil {
		return nil
	}
	return &RecipeDTO{
		ID:          r.ID,
		Name:        r.Name,
		SubCategory: r.SubCategory,
		Ingredients: append([]domain.Ingredient(nil), r.Ingredients...),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ToDailyRecordDTO converts a domain DailyRecord to DailyRecordDTO
func ToDailyRecordDTO(r *domain.DailyRecord) *DailyRecordDTO {
	if r == nil {
		return nil
	}
	return &DailyRecordDTO{
		ID:                  r.ID,
		Date:                r.Date.String(),
		ItemID:              r.ItemID,
		ItemName:            r.ItemName,
		Unit:                r.Unit,
		OpeningStock:        r.OpeningStock,
		Received:            r.Received,
		Consumed:            r.Consumed,
		Received2:           r.Received2,
		Consumed2:           r.Consumed2,
		Total:               r.Total,
		Balance:             r.Balance,
		Total2:              r.Total2,
		FinalStock:          r.FinalStock,
		SecondaryUnit:       string(r.SecondaryUnit),
		FinalStockPrimary:   r.FinalStockPrimary,
		FinalStockSecondary: r.FinalStockSecondary,
		Source:              string(r.Source),
		CreatedAt:           r.CreatedAt,
	}
}
