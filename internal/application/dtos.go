package application

import (
	"time"

	"github.com/bakery-platform/inventory/internal/domain"
)

// InventoryItemDTO represents an inventory item in responses
type InventoryItemDTO struct {
	ID                       int64   `json:"id"`
	Name                     string  `json:"name"`
	PrimaryUnit              string  `json:"primaryUnit"`
	CustomPrimaryUnit        string  `json:"customPrimaryUnit,omitempty"`
	SecondaryUnit            string  `json:"secondaryUnit,omitempty"`
	QuantityPerSecondaryUnit float64 `json:"quantityPerSecondaryUnit"`

	OpeningStock float64 `json:"openingStock"`
	Received     float64 `json:"received"`
	Consumed     float64 `json:"consumed"`
	Received2    float64 `json:"received2"`
	Consumed2    float64 `json:"consumed2"`
	Total        float64 `json:"total"`
	Balance      float64 `json:"balance"`
	Total2       float64 `json:"total2"`
	FinalStock   float64 `json:"finalStock"`
	CurrentStock float64 `json:"currentStock"`

	Split *SplitLedgerDTO `json:"split,omitempty"`

	MinimumQuantity  float64   `json:"minimumQuantity"`
	LowStock         bool      `json:"lowStock"`
	LastRolloverDate string    `json:"lastRolloverDate,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// SplitLedgerDTO is the primary/secondary view of the ledger
type SplitLedgerDTO struct {
	OpeningStockPrimary   float64 `json:"openingStockPrimary"`
	OpeningStockSecondary float64 `json:"openingStockSecondary"`
	ReceivedPrimary       float64 `json:"receivedPrimary"`
	ReceivedSecondary     float64 `json:"receivedSecondary"`
	ConsumedPrimary       float64 `json:"consumedPrimary"`
	ConsumedSecondary     float64 `json:"consumedSecondary"`
	Received2Primary      float64 `json:"received2Primary"`
	Received2Secondary    float64 `json:"received2Secondary"`
	Consumed2Primary      float64 `json:"consumed2Primary"`
	Consumed2Secondary    float64 `json:"consumed2Secondary"`
	BalancePrimary        float64 `json:"balancePrimary"`
	BalanceSecondary      float64 `json:"balanceSecondary"`
	FinalStockPrimary     float64 `json:"finalStockPrimary"`
	FinalStockSecondary   float64 `json:"finalStockSecondary"`
}

// RecipeDTO represents a recipe in responses
type RecipeDTO struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	SubCategory string              `json:"subCategory,omitempty"`
	Ingredients []domain.Ingredient `json:"ingredients"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// ConsumptionResultDTO is the response to a production order
type ConsumptionResultDTO struct {
	OrderID    string                       `json:"orderId"`
	RecipeName string                       `json:"recipeName,omitempty"`
	OrderQty   float64                      `json:"orderQty"`
	Log        []domain.ConsumptionLogEntry `json:"log"`
	Missing    []string                     `json:"missing,omitempty"`
	Warnings   []string                     `json:"warnings,omitempty"`
	Items      []InventoryItemDTO           `json:"items"`
	AppliedAt  time.Time                    `json:"appliedAt"`
}

// DailyRecordDTO represents an archived daily record
type DailyRecordDTO struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	ItemID       int64   `json:"itemId"`
	ItemName     string  `json:"itemName"`
	Unit         string  `json:"unit"`
	OpeningStock float64 `json:"openingStock"`
	Received     float64 `json:"received"`
	Consumed     float64 `json:"consumed"`
	Received2    float64 `json:"received2"`
	Consumed2    float64 `json:"consumed2"`
	Total        float64 `json:"total"`
	Balance      float64 `json:"balance"`
	Total2       float64 `json:"total2"`
	FinalStock   float64 `json:"finalStock"`

	SecondaryUnit       string  `json:"secondaryUnit,omitempty"`
	FinalStockPrimary   float64 `json:"finalStockPrimary,omitempty"`
	FinalStockSecondary float64 `json:"finalStockSecondary,omitempty"`

	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

// SnapshotResultDTO summarizes a whole-inventory snapshot
type SnapshotResultDTO struct {
	Date      string   `json:"date"`
	Source    string   `json:"source"`
	Saved     int      `json:"saved"`
	Replaced  int      `json:"replaced"`
	Skipped   int      `json:"skipped"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// RolloverReportDTO summarizes one rollover run
type RolloverReportDTO struct {
	CycleDate    string    `json:"cycleDate"`
	ArchivedDate string    `json:"archivedDate"`
	RolledOver   int       `json:"rolledOver"`
	Skipped      int       `json:"skipped"`
	Failed       []string  `json:"failed,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	DurationMs   int64     `json:"durationMs"`
}

// CycleStatusDTO describes the current cycle and scheduler state
type CycleStatusDTO struct {
	Now             time.Time          `json:"now"`
	CycleDate       string             `json:"cycleDate"`
	NextRollover    time.Time          `json:"nextRollover"`
	State           string             `json:"state"`
	SuppressedUntil *time.Time         `json:"suppressedUntil,omitempty"`
	InFlight        int                `json:"consumptionsInFlight"`
	Running         bool               `json:"running"`
	LastRun         *RolloverReportDTO `json:"lastRun,omitempty"`
}
