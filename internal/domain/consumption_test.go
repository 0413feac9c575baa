package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recipeOf(ingredients ...Ingredient) Recipe {
	return Recipe{Name: "Test Bread", Ingredients: ingredients}
}

func splitItem(id int64, name string, f, openPrimary, openSecondary float64) InventoryItem {
	item := InventoryItem{
		ID:                       id,
		Name:                     name,
		PrimaryUnit:              UnitKilogram,
		SecondaryUnit:            SecondaryBag,
		QuantityPerSecondaryUnit: f,
		OpeningStockPrimary:      openPrimary,
		OpeningStockSecondary:    openSecondary,
	}
	return Recompute(SyncCombined(item))
}

func TestApplyRecipe_SimpleConsumption(t *testing.T) {
	items := []InventoryItem{Recompute(InventoryItem{ID: 1, Name: "Flour", PrimaryUnit: UnitKilogram, OpeningStock: 100})}

	result, err := ApplyRecipe(recipeOf(Ingredient{Name: "Flour", QtyPerUnit: 2}), 5, items)

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	got := result.Items[0]
	assert.Equal(t, 10.0, got.Consumed)
	assert.Equal(t, 90.0, got.Balance)
	assert.Equal(t, 90.0, got.CurrentStock)

	require.Len(t, result.Log, 1)
	entry := result.Log[0]
	assert.Equal(t, OutcomeApplied, entry.Outcome)
	assert.Equal(t, "Flour", entry.IngredientName)
	assert.Equal(t, int64(1), entry.ItemID)
	assert.Equal(t, 10.0, entry.RequestedQty)
	assert.Equal(t, 10.0, entry.ConsumedPrimary)
	assert.Equal(t, 0.0, entry.ConsumedSecondary)
	assert.Equal(t, 90.0, entry.RemainingStock)
	assert.Empty(t, entry.Warning)
}

// Whole bags cannot be opened partially, so a 140 kg draw from 10 kg loose
// plus 3 bags of 50 kg takes all 160 kg physically.
func TestApplyRecipe_SplitConsumptionRoundsUpToWholeBags(t *testing.T) {
	items := []InventoryItem{splitItem(7, "Flour", 50, 10, 3)}
	require.Equal(t, 160.0, items[0].OpeningStock)

	result, err := ApplyRecipe(recipeOf(Ingredient{Name: "Flour", QtyPerUnit: 140}), 1, items)

	require.NoError(t, err)
	got := result.Items[0]
	assert.Equal(t, 10.0, got.ConsumedPrimary)
	assert.Equal(t, 3.0, got.ConsumedSecondary)
	assert.Equal(t, 160.0, ToCombined(got.ConsumedPrimary, got.ConsumedSecondary, got.QuantityPerSecondaryUnit))
	assert.Equal(t, 140.0, got.Consumed)
	assert.Equal(t, 0.0, got.BalancePrimary)
	assert.Equal(t, 0.0, got.BalanceSecondary)
	assert.Equal(t, 20.0, got.CurrentStock)

	entry := result.Log[0]
	assert.Equal(t, OutcomeApplied, entry.Outcome)
	assert.Equal(t, 160.0, entry.PhysicalQty)
	assert.Equal(t, 20.0, entry.OverConsumed)
	assert.Zero(t, entry.Shortfall)
}

func TestApplyRecipe_MisconfiguredSecondaryUnit(t *testing.T) {
	item := Recompute(InventoryItem{
		ID: 3, Name: "Butter", PrimaryUnit: UnitKilogram,
		SecondaryUnit: SecondaryBag, QuantityPerSecondaryUnit: 0,
		OpeningStock: 40, OpeningStockPrimary: 40,
	})

	result, err := ApplyRecipe(recipeOf(Ingredient{Name: "butter", QtyPerUnit: 2}), 3, []InventoryItem{item})

	require.NoError(t, err)
	got := result.Items[0]
	assert.Equal(t, 6.0, got.ConsumedPrimary)
	assert.Equal(t, 0.0, got.ConsumedSecondary)
	assert.Equal(t, 6.0, got.Consumed)
	assert.Equal(t, 34.0, got.CurrentStock)

	entry := result.Log[0]
	assert.Equal(t, OutcomeAppliedWithWarning, entry.Outcome)
	assert.Equal(t, ErrMisconfiguredSecondaryUnit.Error(), entry.Warning)
	assert.Len(t, result.Warnings(), 1)
}

func TestApplyRecipe_MissingIngredient(t *testing.T) {
	items := []InventoryItem{
		Recompute(InventoryItem{ID: 1, Name: "Flour", OpeningStock: 50}),
		Recompute(InventoryItem{ID: 2, Name: "Sugar", OpeningStock: 20}),
	}
	recipe := recipeOf(
		Ingredient{Name: "Flour", QtyPerUnit: 1},
		Ingredient{Name: "Saffron", QtyPerUnit: 0.01},
		Ingredient{Name: "Sugar", QtyPerUnit: 0.5},
	)

	result, err := ApplyRecipe(recipe, 4, items)

	require.NoError(t, err)
	require.Len(t, result.Log, 3)
	assert.Equal(t, OutcomeApplied, result.Log[0].Outcome)
	assert.Equal(t, OutcomeMissing, result.Log[1].Outcome)
	assert.Equal(t, "Saffron", result.Log[1].IngredientName)
	assert.Zero(t, result.Log[1].ItemID)
	assert.Equal(t, OutcomeApplied, result.Log[2].Outcome)
	assert.Equal(t, []string{"Saffron"}, result.Missing())

	require.Len(t, result.Items, 2)
	assert.Equal(t, 4.0, result.Items[0].Consumed)
	assert.Equal(t, 2.0, result.Items[1].Consumed)
}

func TestApplyRecipe_NameMatchingIgnoresCaseAndSpace(t *testing.T) {
	items := []InventoryItem{Recompute(InventoryItem{ID: 1, Name: "Whole Milk", OpeningStock: 10})}

	result, err := ApplyRecipe(recipeOf(Ingredient{Name: "  WHOLE milk ", QtyPerUnit: 1.5}), 2, items)

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 3.0, result.Items[0].Consumed)
	assert.Empty(t, result.Missing())
}

func TestApplyRecipe_DoesNotMutateInput(t *testing.T) {
	items := []InventoryItem{splitItem(1, "Flour", 25, 5, 4)}
	before := items[0]

	_, err := ApplyRecipe(recipeOf(Ingredient{Name: "Flour", QtyPerUnit: 30}), 1, items)

	require.NoError(t, err)
	assert.Equal(t, before, items[0])
}

func TestApplyRecipe_RepeatedIngredientAccumulates(t *testing.T) {
	items := []InventoryItem{Recompute(InventoryItem{ID: 1, Name: "Salt", OpeningStock: 10})}
	recipe := recipeOf(Ingredient{Name: "Salt", QtyPerUnit: 0.25}, Ingredient{Name: "salt", QtyPerUnit: 0.5})

	result, err := ApplyRecipe(recipe, 2, items)

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 1.5, result.Items[0].Consumed)
	assert.Equal(t, 9.5, result.Log[0].RemainingStock)
	assert.Equal(t, 8.5, result.Log[1].RemainingStock)
}

func TestApplyRecipe_RejectsBadInput(t *testing.T) {
	items := []InventoryItem{{ID: 1, Name: "Flour"}}

	_, err := ApplyRecipe(recipeOf(Ingredient{Name: "Flour", QtyPerUnit: 1}), 0, items)
	assert.ErrorIs(t, err, ErrInvalidOrderQuantity)

	_, err = ApplyRecipe(recipeOf(Ingredient{Name: "Flour", QtyPerUnit: 1}), -2, items)
	assert.ErrorIs(t, err, ErrInvalidOrderQuantity)

	_, err = ApplyRecipe(recipeOf(), 1, items)
	assert.ErrorIs(t, err, ErrEmptyRecipe)

	_, err = ApplyRecipe(recipeOf(Ingredient{Name: "Flour", QtyPerUnit: -1}), 1, items)
	assert.ErrorIs(t, err, ErrNegativeQuantity)
}

func TestSplitDeductionPreference(t *testing.T) {
	tests := []struct {
		name          string
		qty           float64
		availPrimary  float64
		availUnits    float64
		f             float64
		wantPrimary   float64
		wantUnits     float64
		wantShortfall float64
	}{
		{name: "Fits in loose primary", qty: 20, availPrimary: 30, availUnits: 2, f: 25, wantPrimary: 20},
		{name: "Exactly loose primary", qty: 30, availPrimary: 30, availUnits: 2, f: 25, wantPrimary: 30},
		{name: "Remainder rounds up to one unit", qty: 45, availPrimary: 30, availUnits: 2, f: 25, wantPrimary: 30, wantUnits: 1},
		{name: "Remainder needs every unit", qty: 80, availPrimary: 30, availUnits: 2, f: 25, wantPrimary: 30, wantUnits: 2},
		{name: "No loose primary", qty: 60, availPrimary: 0, availUnits: 5, f: 25, wantUnits: 3},
		{name: "Units capped by stock leaves shortfall", qty: 30, availPrimary: 5, availUnits: 1, f: 10, wantPrimary: 5, wantUnits: 1, wantShortfall: 15},
		{name: "Nothing on hand", qty: 12, availPrimary: 0, availUnits: 0, f: 10, wantShortfall: 12},
		{name: "Fractional factor does not over-round", qty: 0.3, availPrimary: 0, availUnits: 5, f: 0.1, wantUnits: 3},
		{name: "Partial unit on hand is not drawn", qty: 15, availPrimary: 0, availUnits: 1.5, f: 10, wantUnits: 1, wantShortfall: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := splitDeduction(tt.qty, tt.availPrimary, tt.availUnits, tt.f)
			assert.InDelta(t, tt.wantPrimary, d.primary, 1e-9)
			assert.InDelta(t, tt.wantUnits, d.secondaryUnits, 1e-9)
			assert.InDelta(t, tt.wantShortfall, d.shortfall, 1e-9)
		})
	}
}

func TestApplyRecipe_ShortfallStillCountsFullRequest(t *testing.T) {
	items := []InventoryItem{splitItem(1, "Yeast", 10, 5, 1)}

	result, err := ApplyRecipe(recipeOf(Ingredient{Name: "Yeast", QtyPerUnit: 30}), 1, items)

	require.NoError(t, err)
	got := result.Items[0]
	assert.Equal(t, 30.0, got.Consumed)
	assert.Equal(t, -15.0, got.CurrentStock)
	assert.Equal(t, 15.0, result.Log[0].Shortfall)
	assert.Zero(t, result.Log[0].OverConsumed)
}

func TestApplyRecipe_ConsumptionConservation(t *testing.T) {
	items := []InventoryItem{
		Recompute(InventoryItem{ID: 1, Name: "Flour", OpeningStock: 500}),
		splitItem(2, "Sugar", 25, 3.3, 7),
		Recompute(InventoryItem{ID: 3, Name: "Cocoa", SecondaryUnit: SecondaryTin, OpeningStock: 12}),
		splitItem(4, "Oil", 0.75, 0.1, 2),
	}
	quantities := []float64{0.1, 0.7, 1, 3.3, 12.5}
	orders := []float64{1, 3, 7, 0.5}

	for _, item := range items {
		for _, q := range quantities {
			for _, n := range orders {
				result, err := ApplyRecipe(recipeOf(Ingredient{Name: item.Name, QtyPerUnit: q}), n, []InventoryItem{item})
				require.NoError(t, err)
				assert.InDelta(t, item.Consumed+q*n, result.Items[0].Consumed, 1e-9, "%s q=%v n=%v", item.Name, q, n)
			}
		}
	}
}
