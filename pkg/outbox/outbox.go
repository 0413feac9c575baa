// Package outbox stores ledger events next to the documents that raised them
// and relays them to Kafka afterwards, so an event exists only if its write
// committed.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bakery-platform/inventory/pkg/cloudevents"
)

// DefaultMaxAttempts is how many publish attempts an event gets before it is
// parked for an operator
const DefaultMaxAttempts = 10

// Event is one outbox row. Payload holds the full CloudEvent envelope.
type Event struct {
	ID            string          `bson:"_id" json:"id"`
	AggregateID   string          `bson:"aggregateId" json:"aggregateId"`
	AggregateType string          `bson:"aggregateType" json:"aggregateType"`
	EventType     string          `bson:"eventType" json:"eventType"`
	Topic         string          `bson:"topic" json:"topic"`
	CorrelationID string          `bson:"correlationId,omitempty" json:"correlationId,omitempty"`
	Payload       json.RawMessage `bson:"payload" json:"payload"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	NextAttemptAt time.Time       `bson:"nextAttemptAt" json:"nextAttemptAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	Attempts      int             `bson:"attempts" json:"attempts"`
	MaxAttempts   int             `bson:"maxAttempts" json:"maxAttempts"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
}

// NewEvent wraps ce for aggregateType/aggregateID, due immediately
func NewEvent(aggregateType, aggregateID, topic string, ce *cloudevents.BakeryCloudEvent) (*Event, error) {
	payload, err := json.Marshal(ce)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ce.Type, err)
	}

	now := time.Now().UTC()
	return &Event{
		ID:            uuid.NewString(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     ce.Type,
		Topic:         topic,
		CorrelationID: ce.CorrelationID,
		Payload:       payload,
		CreatedAt:     now,
		NextAttemptAt: now,
		MaxAttempts:   DefaultMaxAttempts,
	}, nil
}

func (e *Event) Published() bool {
	return e.PublishedAt != nil
}

// Parked events have used every attempt and are no longer polled
func (e *Event) Parked() bool {
	return !e.Published() && e.Attempts >= e.MaxAttempts
}

// Due reports whether the relay should try e at now
func (e *Event) Due(now time.Time) bool {
	return !e.Published() && !e.Parked() && !e.NextAttemptAt.After(now)
}

// CloudEvent decodes the stored envelope
func (e *Event) CloudEvent() (*cloudevents.BakeryCloudEvent, error) {
	var ce cloudevents.BakeryCloudEvent
	if err := json.Unmarshal(e.Payload, &ce); err != nil {
		return nil, fmt.Errorf("decode outbox event %s: %w", e.ID, err)
	}
	return &ce, nil
}

// Backoff doubles base per failed attempt, capped at max
func Backoff(attempts int, base, max time.Duration) time.Duration {
	delay := base
	for i := 1; i < attempts && delay < max; i++ {
		delay *= 2
	}
	if delay > max {
		return max
	}
	return delay
}
