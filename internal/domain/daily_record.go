package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecordSource says what produced a daily record
type RecordSource string

const (
	SourceRollover RecordSource = "rollover"
	SourceManual   RecordSource = "manual"
	SourceAutosave RecordSource = "autosave"
)

// IsValid reports whether s is a known source
func (s RecordSource) IsValid() bool {
	switch s {
	case SourceRollover, SourceManual, SourceAutosave:
		return true
	}
	return false
}

// DailyRecord is a frozen snapshot of one item's ledger for one cycle date.
// Records are never edited; replacing one means deleting it and inserting a new one.
type DailyRecord struct {
	ID       string `bson:"_id" json:"id"`
	Date     Date   `bson:"date" json:"date"`
	ItemID   int64  `bson:"itemId" json:"itemId"`
	ItemName string `bson:"itemName" json:"itemName"`
	Unit     string `bson:"unit" json:"unit"`

	SecondaryUnit            SecondaryUnit `bson:"secondaryUnit,omitempty" json:"secondaryUnit,omitempty"`
	QuantityPerSecondaryUnit float64       `bson:"quantityPerSecondaryUnit,omitempty" json:"quantityPerSecondaryUnit,omitempty"`

	OpeningStock float64 `bson:"openingStock" json:"openingStock"`
	Received     float64 `bson:"received" json:"received"`
	Consumed     float64 `bson:"consumed" json:"consumed"`
	Received2    float64 `bson:"received2" json:"received2"`
	Consumed2    float64 `bson:"consumed2" json:"consumed2"`
	Total        float64 `bson:"total" json:"total"`
	Balance      float64 `bson:"balance" json:"balance"`
	Total2       float64 `bson:"total2" json:"total2"`
	FinalStock   float64 `bson:"finalStock" json:"finalStock"`

	FinalStockPrimary   float64 `bson:"finalStockPrimary,omitempty" json:"finalStockPrimary,omitempty"`
	FinalStockSecondary float64 `bson:"finalStockSecondary,omitempty" json:"finalStockSecondary,omitempty"`

	Source    RecordSource `bson:"source" json:"source"`
	CreatedAt time.Time    `bson:"createdAt" json:"createdAt"`
}

// NewDailyRecord snapshots item's ledger for date. The item is recomputed
// first so the record never stores stale derived fields.
func NewDailyRecord(item InventoryItem, date Date, source RecordSource, now time.Time) (*DailyRecord, error) {
	if _, err := ParseDate(string(date)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil, ErrInvalidItemName
	}
	if !source.IsValid() {
		source = SourceManual
	}

	item = Recompute(item)
	r := &DailyRecord{
		ID:           uuid.NewString(),
		Date:         date,
		ItemID:       item.ID,
		ItemName:     item.Name,
		Unit:         item.UnitLabel(),
		OpeningStock: item.OpeningStock,
		Received:     item.Received,
		Consumed:     item.Consumed,
		Received2:    item.Received2,
		Consumed2:    item.Consumed2,
		Total:        item.Total,
		Balance:      item.Balance,
		Total2:       item.Total2,
		FinalStock:   item.FinalStock,
		Source:       source,
		CreatedAt:    now.UTC(),
	}
	if item.HasSplitUnit() {
		r.SecondaryUnit = item.SecondaryUnit
		r.QuantityPerSecondaryUnit = item.QuantityPerSecondaryUnit
		r.FinalStockPrimary = item.FinalStockPrimary
		r.FinalStockSecondary = item.FinalStockSecondary
	}
	return r, nil
}

// DateRange is an inclusive range of cycle dates. Either end may be empty.
type DateRange struct {
	From Date
	To   Date
}

// NewDateRange validates both ends and their order
func NewDateRange(from, to string) (DateRange, error) {
	var r DateRange
	if from != "" {
		d, err := ParseDate(from)
		if err != nil {
			return r, err
		}
		r.From = d
	}
	if to != "" {
		d, err := ParseDate(to)
		if err != nil {
			return r, err
		}
		r.To = d
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return r, ErrInvalidDateRange
	}
	return r, nil
}

// Contains reports whether d is inside the range
func (r DateRange) Contains(d Date) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && r.To.Before(d) {
		return false
	}
	return true
}
