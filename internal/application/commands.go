package application

import "github.com/bakery-platform/inventory/internal/domain"

// CreateItemCommand represents the command to add an inventory item
type CreateItemCommand struct {
	Name                     string
	PrimaryUnit              domain.PrimaryUnit
	CustomPrimaryUnit        string
	SecondaryUnit            domain.SecondaryUnit
	QuantityPerSecondaryUnit float64
	MinimumQuantity          float64
	Ledger                   *domain.LedgerInputs
}

// UpdateItemCommand replaces an item's configuration and ledger inputs
type UpdateItemCommand struct {
	ID                       int64
	Name                     string
	PrimaryUnit              domain.PrimaryUnit
	CustomPrimaryUnit        string
	SecondaryUnit            domain.SecondaryUnit
	QuantityPerSecondaryUnit float64
	MinimumQuantity          float64
	Ledger                   domain.LedgerInputs
}

// ApplyOrderCommand records a production order against stock. Either
// RecipeID or Recipe must be set.
type ApplyOrderCommand struct {
	OrderID  string
	RecipeID string
	Recipe   *domain.Recipe
	OrderQty float64
}

// CreateRecipeCommand carries a recipe document in any accepted shape
type CreateRecipeCommand struct {
	Document map[string]any
}

// SaveRecordCommand archives one item's ledger for a date. When Ledger is
// nil the item's current ledger is used.
type SaveRecordCommand struct {
	Date      string
	ItemID    int64
	Ledger    *domain.LedgerInputs
	Overwrite bool
}

// SnapshotCommand archives every item's current ledger for a date
type SnapshotCommand struct {
	Date      string
	Source    domain.RecordSource
	Overwrite bool
}

// ListRecordsQuery filters records by an inclusive date range
type ListRecordsQuery struct {
	From string
	To   string
}
