package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type correlationKey struct{}

// ContextWithCorrelationID stores a correlation id for events created under ctx
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext returns the correlation id stored in ctx, if any
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// EventFactory creates CloudEvents for bakery domain events
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, now: time.Now}
}

// CreateEvent creates a new BakeryCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *BakeryCloudEvent {
	return &BakeryCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
		CorrelationID:   CorrelationIDFromContext(ctx),
	}
}
