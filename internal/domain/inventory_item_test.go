package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInventoryItem(t *testing.T) {
	item, err := NewInventoryItem(3, "  Flour ", UnitKilogram, "ignored", SecondaryBag, 50, 20)

	require.NoError(t, err)
	assert.Equal(t, int64(3), item.ID)
	assert.Equal(t, "Flour", item.Name)
	assert.Empty(t, item.CustomPrimaryUnit)
	assert.True(t, item.HasSplitUnit())
	assert.False(t, item.SplitMisconfigured())
	assert.NotZero(t, item.CreatedAt)

	events := item.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeItemCreated, events[0].EventType())

	item.ClearDomainEvents()
	assert.Empty(t, item.GetDomainEvents())
}

func TestNewInventoryItem_Validation(t *testing.T) {
	tests := []struct {
		name      string
		itemName  string
		unit      PrimaryUnit
		custom    string
		perUnit   float64
		minimum   float64
		expectErr error
	}{
		{name: "Blank name", itemName: " ", unit: UnitKilogram, expectErr: ErrInvalidItemName},
		{name: "Custom unit without label", itemName: "Eggs", unit: UnitCustom, expectErr: ErrCustomUnitRequired},
		{name: "Negative factor", itemName: "Eggs", unit: UnitPiece, perUnit: -1, expectErr: ErrNegativeQuantity},
		{name: "Negative minimum", itemName: "Eggs", unit: UnitPiece, minimum: -5, expectErr: ErrNegativeQuantity},
		{name: "Custom unit with label", itemName: "Eggs", unit: UnitCustom, custom: "tray"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := NewInventoryItem(1, tt.itemName, tt.unit, tt.custom, SecondaryNone, tt.perUnit, tt.minimum)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				assert.Nil(t, item)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "tray", item.UnitLabel())
		})
	}
}

func TestInventoryItemIsLowStock(t *testing.T) {
	assert.True(t, (&InventoryItem{MinimumQuantity: 10, CurrentStock: 9.5}).IsLowStock())
	assert.False(t, (&InventoryItem{MinimumQuantity: 10, CurrentStock: 10}).IsLowStock())
	assert.False(t, (&InventoryItem{MinimumQuantity: 0, CurrentStock: -4}).IsLowStock())
}

func TestRecordLedgerUpdate_LowStockOnlyOnCrossing(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	item := &InventoryItem{ID: 1, Name: "Flour", MinimumQuantity: 10, CurrentStock: 5}

	item.RecordLedgerUpdate("consumption", false, now)
	events := item.GetDomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeItemUpdated, events[0].EventType())
	assert.Equal(t, EventTypeLowStockDetected, events[1].EventType())

	item.ClearDomainEvents()
	item.RecordLedgerUpdate("consumption", true, now)
	assert.Len(t, item.GetDomainEvents(), 1)
}

func TestSecondaryUnit(t *testing.T) {
	assert.False(t, SecondaryUnit("").IsSet())
	assert.False(t, SecondaryNone.IsSet())
	assert.True(t, SecondaryCarton.IsSet())
	assert.True(t, ParseSecondaryUnit(" Bag ").IsValid())
	assert.False(t, ParseSecondaryUnit("crate").IsValid())
	assert.True(t, ParsePrimaryUnit("KG").IsValid())
	assert.False(t, ParsePrimaryUnit("gallon").IsValid())
}
