package cloudevents

import (
	"time"
)

// Source constants for event sources
const (
	SourceInventory = "/bakery/inventory"
	SourceScheduler = "/bakery/inventory/scheduler"
)

// Extension attribute names carried on every bakery event
const (
	ExtCorrelationID = "bakerycorrelationid"
	ExtOrderID       = "bakeryorderid"
	ExtCycleDate     = "bakerycycledate"
)

// BakeryCloudEvent represents a CloudEvents v1.0 compliant event for the
// bakery inventory
type BakeryCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	CorrelationID string `json:"bakerycorrelationid,omitempty"`
	OrderID       string `json:"bakeryorderid,omitempty"`
	CycleDate     string `json:"bakerycycledate,omitempty"`
}

// WithOrder tags the event with the production order that caused it
func (e *BakeryCloudEvent) WithOrder(orderID string) *BakeryCloudEvent {
	e.OrderID = orderID
	return e
}

// WithCycle tags the event with the inventory cycle date
func (e *BakeryCloudEvent) WithCycle(cycleDate string) *BakeryCloudEvent {
	e.CycleDate = cycleDate
	return e
}
