package domain

import "math"

// Recompute returns a copy of item with every derived ledger field
// recalculated from the inputs. It never fails and has no hidden state, so
// applying it twice gives the same result as applying it once.
func Recompute(item InventoryItem) InventoryItem {
	item.Total = item.OpeningStock + item.Received
	item.Balance = item.Total - item.Consumed
	item.Total2 = item.Balance + item.Received2
	item.FinalStock = item.Total2 - item.Consumed2
	item.CurrentStock = item.FinalStock

	item.BalancePrimary = clampZero(item.OpeningStockPrimary + item.ReceivedPrimary - item.ConsumedPrimary)
	item.BalanceSecondary = clampZero(item.OpeningStockSecondary + item.ReceivedSecondary - item.ConsumedSecondary)
	item.FinalStockPrimary = clampZero(item.BalancePrimary + item.Received2Primary - item.Consumed2Primary)
	item.FinalStockSecondary = clampZero(item.BalanceSecondary + item.Received2Secondary - item.Consumed2Secondary)

	return item
}

// SyncCombined rewrites each combined ledger input from its split pair.
// It only applies when the item has a usable secondary unit; otherwise the
// item is returned unchanged. Use it after a direct edit of split fields.
func SyncCombined(item InventoryItem) InventoryItem {
	if !item.HasSplitUnit() {
		return item
	}
	f := item.QuantityPerSecondaryUnit

	item.OpeningStock = ToCombined(item.OpeningStockPrimary, item.OpeningStockSecondary, f)
	item.Received = ToCombined(item.ReceivedPrimary, item.ReceivedSecondary, f)
	item.Consumed = ToCombined(item.ConsumedPrimary, item.ConsumedSecondary, f)
	item.Received2 = ToCombined(item.Received2Primary, item.Received2Secondary, f)
	item.Consumed2 = ToCombined(item.Consumed2Primary, item.Consumed2Secondary, f)

	return item
}

// LedgerInputs holds the hand-editable ledger fields of an item
type LedgerInputs struct {
	OpeningStock float64
	Received     float64
	Consumed     float64
	Received2    float64
	Consumed2    float64

	OpeningStockPrimary   float64
	OpeningStockSecondary float64
	ReceivedPrimary       float64
	ReceivedSecondary     float64
	ConsumedPrimary       float64
	ConsumedSecondary     float64
	Received2Primary      float64
	Received2Secondary    float64
	Consumed2Primary      float64
	Consumed2Secondary    float64
}

// ApplyLedgerInputs replaces the ledger inputs of item, keeps split and
// combined fields consistent, and recomputes the derived fields.
//
// Consumed and Consumed2 hold requested quantities while their split pairs
// hold what was physically drawn, and whole-unit rounding makes the two
// differ. Those combined fields therefore take the caller's value when their
// pair is unchanged and move by the pair's delta when it is edited.
func ApplyLedgerInputs(item InventoryItem, in LedgerInputs) InventoryItem {
	prev := item

	item.OpeningStock = in.OpeningStock
	item.Received = in.Received
	item.Consumed = in.Consumed
	item.Received2 = in.Received2
	item.Consumed2 = in.Consumed2

	item.OpeningStockPrimary = in.OpeningStockPrimary
	item.OpeningStockSecondary = in.OpeningStockSecondary
	item.ReceivedPrimary = in.ReceivedPrimary
	item.ReceivedSecondary = in.ReceivedSecondary
	item.ConsumedPrimary = in.ConsumedPrimary
	item.ConsumedSecondary = in.ConsumedSecondary
	item.Received2Primary = in.Received2Primary
	item.Received2Secondary = in.Received2Secondary
	item.Consumed2Primary = in.Consumed2Primary
	item.Consumed2Secondary = in.Consumed2Secondary

	if !item.HasSplitUnit() {
		return Recompute(item)
	}
	synced := SyncCombined(item)
	synced.Consumed = consumedInput(in.Consumed, prev.Consumed,
		prev.ConsumedPrimary, prev.ConsumedSecondary, prev.QuantityPerSecondaryUnit,
		in.ConsumedPrimary, in.ConsumedSecondary, item.QuantityPerSecondaryUnit)
	synced.Consumed2 = consumedInput(in.Consumed2, prev.Consumed2,
		prev.Consumed2Primary, prev.Consumed2Secondary, prev.QuantityPerSecondaryUnit,
		in.Consumed2Primary, in.Consumed2Secondary, item.QuantityPerSecondaryUnit)
	return Recompute(synced)
}

func consumedInput(requested, prevCombined, prevP, prevS, prevF, p, s, f float64) float64 {
	if p == prevP && s == prevS {
		return requested
	}
	return prevCombined + ToCombined(p, s, f) - ToCombined(prevP, prevS, prevF)
}

func clampZero(v float64) float64 {
	return math.Max(0, v)
}
