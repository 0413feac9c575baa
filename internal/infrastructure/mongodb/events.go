package mongodb

import (
	"context"
	"strconv"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/cloudevents"
	"github.com/bakery-platform/inventory/pkg/kafka"
	"github.com/bakery-platform/inventory/pkg/outbox"
)

const (
	aggregateInventoryItem = "InventoryItem"
	aggregateDailyRecord   = "DailyRecord"
)

func itemSubject(id int64) string {
	return "inventory-item/" + strconv.FormatInt(id, 10)
}

func recordSubject(date domain.Date, itemID int64) string {
	return "daily-record/" + date.String() + "/" + strconv.FormatInt(itemID, 10)
}

// toCloudEvent wraps a domain event in the bakery CloudEvent envelope
func toCloudEvent(ctx context.Context, factory *cloudevents.EventFactory, subject string, event domain.DomainEvent) *cloudevents.BakeryCloudEvent {
	ce := factory.CreateEvent(ctx, event.EventType(), subject, event)
	ce.Time = event.OccurredAt().UTC()

	switch e := event.(type) {
	case *domain.StockConsumedEvent:
		ce.WithOrder(e.OrderID)
	case *domain.CycleRolledOverEvent:
		ce.WithCycle(e.CycleDate.String())
	case *domain.DailyRecordArchivedEvent:
		ce.Subject = recordSubject(e.Date, e.ItemID)
		ce.WithCycle(e.Date.String())
	}
	return ce
}

// outboxEvents converts pending domain events into outbox rows for one aggregate
func outboxEvents(ctx context.Context, factory *cloudevents.EventFactory, aggregateID, aggregateType, subject string, events []domain.DomainEvent) ([]*outbox.Event, error) {
	out := make([]*outbox.Event, 0, len(events))
	for _, event := range events {
		row, err := outbox.NewEvent(aggregateType, aggregateID, kafka.Topics.InventoryEvents,
			toCloudEvent(ctx, factory, subject, event))
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
