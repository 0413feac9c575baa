package domain

import (
	"fmt"
	"strings"
	"time"
)

// InventoryItem is one tracked raw material and its ledger for the current
// cycle. Combined fields are in primary units. When a secondary unit is
// configured each ledger input also has a Primary/Secondary pair, where
// Secondary counts whole secondary units.
type InventoryItem struct {
	ID                       int64         `bson:"_id" json:"id"`
	Name                     string        `bson:"name" json:"name"`
	PrimaryUnit              PrimaryUnit   `bson:"primaryUnit" json:"primaryUnit"`
	CustomPrimaryUnit        string        `bson:"customPrimaryUnit,omitempty" json:"customPrimaryUnit,omitempty"`
	SecondaryUnit            SecondaryUnit `bson:"secondaryUnit,omitempty" json:"secondaryUnit,omitempty"`
	QuantityPerSecondaryUnit float64       `bson:"quantityPerSecondaryUnit" json:"quantityPerSecondaryUnit"`

	OpeningStock float64 `bson:"openingStock" json:"openingStock"`
	Received     float64 `bson:"received" json:"received"`
	// Consumed and Consumed2 are lifetime totals. Rollover never resets them.
	Consumed  float64 `bson:"consumed" json:"consumed"`
	Received2 float64 `bson:"received2" json:"received2"`
	Consumed2 float64 `bson:"consumed2" json:"consumed2"`

	OpeningStockPrimary   float64 `bson:"openingStockPrimary" json:"openingStockPrimary"`
	OpeningStockSecondary float64 `bson:"openingStockSecondary" json:"openingStockSecondary"`
	ReceivedPrimary       float64 `bson:"receivedPrimary" json:"receivedPrimary"`
	ReceivedSecondary     float64 `bson:"receivedSecondary" json:"receivedSecondary"`
	ConsumedPrimary       float64 `bson:"consumedPrimary" json:"consumedPrimary"`
	ConsumedSecondary     float64 `bson:"consumedSecondary" json:"consumedSecondary"`
	Received2Primary      float64 `bson:"received2Primary" json:"received2Primary"`
	Received2Secondary    float64 `bson:"received2Secondary" json:"received2Secondary"`
	Consumed2Primary      float64 `bson:"consumed2Primary" json:"consumed2Primary"`
	Consumed2Secondary    float64 `bson:"consumed2Secondary" json:"consumed2Secondary"`

	// Derived by Recompute, never edited directly
	Total               float64 `bson:"total" json:"total"`
	Balance             float64 `bson:"balance" json:"balance"`
	Total2              float64 `bson:"total2" json:"total2"`
	FinalStock          float64 `bson:"finalStock" json:"finalStock"`
	CurrentStock        float64 `bson:"currentStock" json:"currentStock"`
	BalancePrimary      float64 `bson:"balancePrimary" json:"balancePrimary"`
	BalanceSecondary    float64 `bson:"balanceSecondary" json:"balanceSecondary"`
	FinalStockPrimary   float64 `bson:"finalStockPrimary" json:"finalStockPrimary"`
	FinalStockSecondary float64 `bson:"finalStockSecondary" json:"finalStockSecondary"`

	MinimumQuantity float64 `bson:"minimumQuantity" json:"minimumQuantity"`

	// LastRolloverDate is the cycle date of the most recent rollover applied to this item
	LastRolloverDate Date `bson:"lastRolloverDate,omitempty" json:"lastRolloverDate,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	domainEvents []DomainEvent
}

// NewInventoryItem creates an item with an empty ledger
func NewInventoryItem(id int64, name string, primary PrimaryUnit, customPrimary string, secondary SecondaryUnit, qtyPerSecondary, minimum float64) (*InventoryItem, error) {
	now := time.Now().UTC()
	item := &InventoryItem{ID: id, CreatedAt: now, UpdatedAt: now}
	if err := item.Reconfigure(name, primary, customPrimary, secondary, qtyPerSecondary, minimum); err != nil {
		return nil, err
	}

	item.addDomainEvent(&InventoryItemCreatedEvent{
		ItemID:    id,
		Name:      item.Name,
		Unit:      item.UnitLabel(),
		CreatedAt: now,
	})

	return item, nil
}

// Reconfigure validates and sets the item's name, units and thresholds.
// Ledger fields are not touched.
func (i *InventoryItem) Reconfigure(name string, primary PrimaryUnit, customPrimary string, secondary SecondaryUnit, qtyPerSecondary, minimum float64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidItemName
	}
	if !primary.IsValid() {
		return fmt.Errorf("invalid primary unit %q", primary)
	}
	if !secondary.IsValid() {
		return fmt.Errorf("invalid secondary unit %q", secondary)
	}
	customPrimary = strings.TrimSpace(customPrimary)
	if primary == UnitCustom && customPrimary == "" {
		return ErrCustomUnitRequired
	}
	if primary != UnitCustom {
		customPrimary = ""
	}
	if qtyPerSecondary < 0 || minimum < 0 {
		return ErrNegativeQuantity
	}

	i.Name = name
	i.PrimaryUnit = primary
	i.CustomPrimaryUnit = customPrimary
	i.SecondaryUnit = secondary
	i.QuantityPerSecondaryUnit = qtyPerSecondary
	i.MinimumQuantity = minimum
	return nil
}

// NameKey is the case-insensitive lookup key used for ingredient matching
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// UnitLabel is the display name of the primary unit
func (i *InventoryItem) UnitLabel() string {
	if i.PrimaryUnit == UnitCustom && i.CustomPrimaryUnit != "" {
		return i.CustomPrimaryUnit
	}
	return string(i.PrimaryUnit)
}

// HasSplitUnit reports whether split-unit tracking is active: a secondary
// unit is set and its conversion factor is usable.
func (i *InventoryItem) HasSplitUnit() bool {
	return i.SecondaryUnit.IsSet() && i.QuantityPerSecondaryUnit > 0
}

// SplitMisconfigured reports a secondary unit with a zero conversion factor
func (i *InventoryItem) SplitMisconfigured() bool {
	return i.SecondaryUnit.IsSet() && i.QuantityPerSecondaryUnit <= 0
}

// IsLowStock reports whether current stock is below the minimum quantity.
// A zero minimum disables the flag.
func (i *InventoryItem) IsLowStock() bool {
	return i.MinimumQuantity > 0 && i.CurrentStock < i.MinimumQuantity
}

// Touch sets UpdatedAt
func (i *InventoryItem) Touch(now time.Time) {
	i.UpdatedAt = now.UTC()
}

// RecordLedgerUpdate queues an update event, plus a low-stock alert when the
// item has just crossed below its minimum.
func (i *InventoryItem) RecordLedgerUpdate(reason string, wasLowStock bool, now time.Time) {
	i.addDomainEvent(&InventoryItemUpdatedEvent{
		ItemID:       i.ID,
		Name:         i.Name,
		Reason:       reason,
		CurrentStock: i.CurrentStock,
		UpdatedAt:    now,
	})
	if i.IsLowStock() && !wasLowStock {
		i.addDomainEvent(&LowStockDetectedEvent{
			ItemID:          i.ID,
			Name:            i.Name,
			CurrentStock:    i.CurrentStock,
			MinimumQuantity: i.MinimumQuantity,
			DetectedAt:      now,
		})
	}
}

func (i *InventoryItem) addDomainEvent(event DomainEvent) {
	i.domainEvents = append(i.domainEvents, event)
}

// AddDomainEvent queues an event to be written to the outbox on save
func (i *InventoryItem) AddDomainEvent(event DomainEvent) {
	i.addDomainEvent(event)
}

// GetDomainEvents returns the queued domain events
func (i *InventoryItem) GetDomainEvents() []DomainEvent {
	return i.domainEvents
}

// ClearDomainEvents drops the queued domain events
func (i *InventoryItem) ClearDomainEvents() {
	i.domainEvents = nil
}

// clone returns a copy that does not share the pending event list
func (i InventoryItem) clone() InventoryItem {
	if i.domainEvents != nil {
		i.domainEvents = append([]DomainEvent(nil), i.domainEvents...)
	}
	return i
}
