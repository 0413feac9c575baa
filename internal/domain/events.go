package domain

import "time"

// Event types published to the inventory topic
const (
	EventTypeItemCreated         = "bakery.inventory.item-created"
	EventTypeItemUpdated         = "bakery.inventory.item-updated"
	EventTypeStockConsumed       = "bakery.inventory.stock-consumed"
	EventTypeLowStockDetected    = "bakery.inventory.low-stock-detected"
	EventTypeCycleRolledOver     = "bakery.inventory.cycle-rolled-over"
	EventTypeDailyRecordArchived = "bakery.inventory.daily-record-archived"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// InventoryItemCreatedEvent is published when an item is added
type InventoryItemCreatedEvent struct {
	ItemID    int64     `json:"itemId"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e *InventoryItemCreatedEvent) EventType() string     { return EventTypeItemCreated }
func (e *InventoryItemCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// InventoryItemUpdatedEvent is published when an item's ledger changes
type InventoryItemUpdatedEvent struct {
	ItemID       int64     `json:"itemId"`
	Name         string    `json:"name"`
	Reason       string    `json:"reason"`
	CurrentStock float64   `json:"currentStock"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (e *InventoryItemUpdatedEvent) EventType() string     { return EventTypeItemUpdated }
func (e *InventoryItemUpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }

// StockConsumedEvent is published for each ingredient a production order drew
type StockConsumedEvent struct {
	ItemID            int64     `json:"itemId"`
	Name              string    `json:"name"`
	OrderID           string    `json:"orderId"`
	RecipeName        string    `json:"recipeName,omitempty"`
	RequestedQty      float64   `json:"requestedQty"`
	ConsumedPrimary   float64   `json:"consumedPrimary"`
	ConsumedSecondary float64   `json:"consumedSecondary"`
	OverConsumed      float64   `json:"overConsumed,omitempty"`
	Shortfall         float64   `json:"shortfall,omitempty"`
	RemainingStock    float64   `json:"remainingStock"`
	Warning           string    `json:"warning,omitempty"`
	ConsumedAt        time.Time `json:"consumedAt"`
}

func (e *StockConsumedEvent) EventType() string     { return EventTypeStockConsumed }
func (e *StockConsumedEvent) OccurredAt() time.Time { return e.ConsumedAt }

// LowStockDetectedEvent is published when current stock drops below the minimum
type LowStockDetectedEvent struct {
	ItemID          int64     `json:"itemId"`
	Name            string    `json:"name"`
	CurrentStock    float64   `json:"currentStock"`
	MinimumQuantity float64   `json:"minimumQuantity"`
	DetectedAt      time.Time `json:"detectedAt"`
}

func (e *LowStockDetectedEvent) EventType() string     { return EventTypeLowStockDetected }
func (e *LowStockDetectedEvent) OccurredAt() time.Time { return e.DetectedAt }

// CycleRolledOverEvent is published when an item moves into a new cycle
type CycleRolledOverEvent struct {
	ItemID          int64     `json:"itemId"`
	Name            string    `json:"name"`
	ArchivedDate    Date      `json:"archivedDate"`
	CycleDate       Date      `json:"cycleDate"`
	OpeningStock    float64   `json:"openingStock"`
	PreviousOpening float64   `json:"previousOpening"`
	RolledOverAt    time.Time `json:"rolledOverAt"`
}

func (e *CycleRolledOverEvent) EventType() string     { return EventTypeCycleRolledOver }
func (e *CycleRolledOverEvent) OccurredAt() time.Time { return e.RolledOverAt }

// DailyRecordArchivedEvent is published when a daily record is written
type DailyRecordArchivedEvent struct {
	RecordID   string       `json:"recordId"`
	Date       Date         `json:"date"`
	ItemID     int64        `json:"itemId"`
	ItemName   string       `json:"itemName"`
	FinalStock float64      `json:"finalStock"`
	Source     RecordSource `json:"source"`
	Replaced   bool         `json:"replaced,omitempty"`
	ArchivedAt time.Time    `json:"archivedAt"`
}

func (e *DailyRecordArchivedEvent) EventType() string     { return EventTypeDailyRecordArchived }
func (e *DailyRecordArchivedEvent) OccurredAt() time.Time { return e.ArchivedAt }

// ArchivedEvent builds the event announcing this record
func (r *DailyRecord) ArchivedEvent(replaced bool) *DailyRecordArchivedEvent {
	return &DailyRecordArchivedEvent{
		RecordID:   r.ID,
		Date:       r.Date,
		ItemID:     r.ItemID,
		ItemName:   r.ItemName,
		FinalStock: r.FinalStock,
		Source:     r.Source,
		Replaced:   replaced,
		ArchivedAt: r.CreatedAt,
	}
}
