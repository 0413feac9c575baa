package domain

import (
	"math"
)

// quantityEpsilon absorbs float noise when comparing quantities and rounding
// to whole secondary units.
const quantityEpsilon = 1e-9

// ConsumptionOutcome classifies what happened to one recipe ingredient
type ConsumptionOutcome string

const (
	OutcomeApplied            ConsumptionOutcome = "applied"
	OutcomeAppliedWithWarning ConsumptionOutcome = "applied_with_warning"
	OutcomeMissing            ConsumptionOutcome = "missing"
)

// ConsumptionLogEntry is the audit line for one ingredient of a production order.
// ConsumedPrimary and ConsumedSecondary are what this order drew, not running totals.
type ConsumptionLogEntry struct {
	IngredientName    string             `json:"ingredientName"`
	ItemID            int64              `json:"itemId,omitempty"`
	Unit              string             `json:"unit,omitempty"`
	RequestedQty      float64            `json:"requestedQty"`
	ConsumedPrimary   float64            `json:"consumedPrimary"`
	ConsumedSecondary float64            `json:"consumedSecondary"`
	PhysicalQty       float64            `json:"physicalQty"`
	OverConsumed      float64            `json:"overConsumed,omitempty"`
	Shortfall         float64            `json:"shortfall,omitempty"`
	RemainingStock    float64            `json:"remainingStock"`
	Outcome           ConsumptionOutcome `json:"outcome"`
	Warning           string             `json:"warning,omitempty"`
}

// ConsumptionResult is the outcome of applying one production order
type ConsumptionResult struct {
	// Items holds the updated copies of every item the order touched, in
	// first-touched order.
	Items []InventoryItem
	Log   []ConsumptionLogEntry
}

// Missing returns the names of ingredients with no matching inventory item
func (r ConsumptionResult) Missing() []string {
	var names []string
	for _, e := range r.Log {
		if e.Outcome == OutcomeMissing {
			names = append(names, e.IngredientName)
		}
	}
	return names
}

// Warnings returns the log entries that carry a warning
func (r ConsumptionResult) Warnings() []ConsumptionLogEntry {
	var out []ConsumptionLogEntry
	for _, e := range r.Log {
		if e.Warning != "" {
			out = append(out, e)
		}
	}
	return out
}

// ApplyRecipe deducts recipe × orderQty from the matching items. Ingredient
// names match item names case-insensitively; an ingredient with no match is
// logged as missing and skipped while the rest of the order still applies.
// The input slice is not modified.
func ApplyRecipe(recipe Recipe, orderQty float64, items []InventoryItem) (ConsumptionResult, error) {
	if math.IsNaN(orderQty) || math.IsInf(orderQty, 0) || orderQty <= 0 {
		return ConsumptionResult{}, ErrInvalidOrderQuantity
	}
	if err := recipe.Validate(); err != nil {
		return ConsumptionResult{}, err
	}

	index := make(map[string]int, len(items))
	for i := range items {
		key := NameKey(items[i].Name)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	working := make(map[int]*InventoryItem)
	var order []int
	result := ConsumptionResult{Log: make([]ConsumptionLogEntry, 0, len(recipe.Ingredients))}

	for _, ing := range recipe.Ingredients {
		qty := ing.QtyPerUnit * orderQty

		idx, ok := index[NameKey(ing.Name)]
		if !ok {
			result.Log = append(result.Log, ConsumptionLogEntry{
				IngredientName: ing.Name,
				RequestedQty:   qty,
				Outcome:        OutcomeMissing,
				Warning:        ErrItemNotFound.Error(),
			})
			continue
		}

		item, seen := working[idx]
		if !seen {
			c := items[idx].clone()
			item = &c
			working[idx] = item
			order = append(order, idx)
		}

		entry := consume(item, qty)
		entry.IngredientName = ing.Name
		*item = Recompute(*item)
		entry.RemainingStock = item.CurrentStock
		result.Log = append(result.Log, entry)
	}

	result.Items = make([]InventoryItem, 0, len(order))
	for _, idx := range order {
		result.Items = append(result.Items, *working[idx])
	}
	return result, nil
}

// consume deducts qty primary units from item in place. The combined
// consumed counter always grows by exactly qty.
func consume(item *InventoryItem, qty float64) ConsumptionLogEntry {
	entry := ConsumptionLogEntry{
		ItemID:       item.ID,
		Unit:         item.UnitLabel(),
		RequestedQty: qty,
		Outcome:      OutcomeApplied,
	}

	switch {
	case item.HasSplitUnit():
		f := item.QuantityPerSecondaryUnit
		split := splitDeduction(qty, availablePrimary(item), availableSecondary(item), f)

		item.ConsumedPrimary += split.primary
		item.ConsumedSecondary += split.secondaryUnits
		entry.ConsumedPrimary = split.primary
		entry.ConsumedSecondary = split.secondaryUnits
		entry.PhysicalQty = ToCombined(split.primary, split.secondaryUnits, f)
		if over := entry.PhysicalQty - qty; over > quantityEpsilon {
			entry.OverConsumed = over
		}
		entry.Shortfall = split.shortfall

	case item.SplitMisconfigured():
		item.ConsumedPrimary += qty
		entry.ConsumedPrimary = qty
		entry.PhysicalQty = qty
		entry.Outcome = OutcomeAppliedWithWarning
		entry.Warning = ErrMisconfiguredSecondaryUnit.Error()

	default:
		item.ConsumedPrimary += qty
		entry.ConsumedPrimary = qty
		entry.PhysicalQty = qty
	}

	item.Consumed += qty
	return entry
}

type deduction struct {
	primary        float64
	secondaryUnits float64
	shortfall      float64
}

// splitDeduction takes loose primary stock first, then whole secondary units
// rounded up, then any primary stock still unused. Whatever is left over is
// reported as shortfall.
func splitDeduction(qty, availPrimary, availSecondary, f float64) deduction {
	var d deduction

	d.primary = math.Min(qty, availPrimary)
	remainder := qty - d.primary

	if remainder > quantityEpsilon {
		needed := math.Ceil(remainder/f - quantityEpsilon)
		onHand := math.Floor(availSecondary + quantityEpsilon)
		d.secondaryUnits = math.Max(0, math.Min(needed, onHand))
		remainder = math.Max(0, remainder-d.secondaryUnits*f)
	}

	if remainder > quantityEpsilon {
		extra := math.Min(remainder, availPrimary-d.primary)
		if extra > 0 {
			d.primary += extra
			remainder -= extra
		}
	}

	if remainder > quantityEpsilon {
		d.shortfall = remainder
	}
	return d
}

func availablePrimary(item *InventoryItem) float64 {
	return clampZero(item.OpeningStockPrimary + item.ReceivedPrimary - item.ConsumedPrimary)
}

func availableSecondary(item *InventoryItem) float64 {
	return clampZero(item.OpeningStockSecondary + item.ReceivedSecondary - item.ConsumedSecondary)
}
