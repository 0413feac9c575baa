package outbox

import (
	"context"
	"time"
)

// Repository persists outbox events
type Repository interface {
	// SaveAll inserts events. Pass a session context to join the caller's
	// transaction.
	SaveAll(ctx context.Context, events []*Event) error

	// FindDue returns up to limit events due at now, oldest first
	FindDue(ctx context.Context, now time.Time, limit int) ([]*Event, error)

	MarkPublished(ctx context.Context, eventID string, at time.Time) error

	// RecordFailure counts a failed attempt and schedules the next one
	RecordFailure(ctx context.Context, eventID, errMsg string, nextAttemptAt time.Time) error

	FindByAggregateID(ctx context.Context, aggregateID string) ([]*Event, error)
}
