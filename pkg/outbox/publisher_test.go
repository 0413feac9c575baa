package outbox

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakery-platform/inventory/pkg/cloudevents"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/metrics"
	"github.com/bakery-platform/inventory/pkg/resilience"
)

type memoryRepository struct {
	mu     sync.Mutex
	events map[string]*Event
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{events: make(map[string]*Event)}
}

func (r *memoryRepository) SaveAll(ctx context.Context, events []*Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		r.events[e.ID] = e
	}
	return nil
}

func (r *memoryRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Event
	for _, e := range r.events {
		if e.Due(now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) MarkPublished(ctx context.Context, eventID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[eventID].PublishedAt = &at
	return nil
}

func (r *memoryRepository) RecordFailure(ctx context.Context, eventID, errMsg string, next time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.events[eventID]
	e.Attempts++
	e.LastError = errMsg
	e.NextAttemptAt = next
	return nil
}

func (r *memoryRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*Event, error) {
	return nil, nil
}

type flakyProducer struct {
	fail map[string]error
	sent []string
}

func (f *flakyProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.BakeryCloudEvent) error {
	if err := f.fail[event.Type]; err != nil {
		return err
	}
	f.sent = append(f.sent, event.Type)
	return nil
}

func (f *flakyProducer) Close() error { return nil }

func newEvent(t *testing.T, eventType string) *Event {
	t.Helper()
	ctx := cloudevents.ContextWithCorrelationID(context.Background(), "corr-1")
	ce := cloudevents.NewEventFactory(cloudevents.SourceInventory).
		CreateEvent(ctx, eventType, "inventory-item/1", map[string]any{"id": 1})
	e, err := NewEvent("InventoryItem", "1", "bakery.inventory.events", ce)
	require.NoError(t, err)
	return e
}

func newTestPublisher(repo Repository, producer *flakyProducer, now time.Time) *Publisher {
	p := NewPublisher(repo, producer, logging.New(logging.DefaultConfig("test")), metrics.New(metrics.DefaultConfig("test")), nil)
	p.now = func() time.Time { return now }
	return p
}

func TestPublisher_ProcessBatch(t *testing.T) {
	repo := newMemoryRepository()
	ok := newEvent(t, "bakery.inventory.item-updated")
	bad := newEvent(t, "bakery.inventory.low-stock-detected")
	require.NoError(t, repo.SaveAll(context.Background(), []*Event{ok, bad}))

	now := time.Now().UTC().Add(time.Second)
	producer := &flakyProducer{fail: map[string]error{bad.EventType: stderrors.New("broker unavailable")}}
	p := newTestPublisher(repo, producer, now)

	published := p.ProcessBatch(context.Background())

	assert.Equal(t, 1, published)
	assert.Equal(t, []string{"bakery.inventory.item-updated"}, producer.sent)
	assert.True(t, ok.Published())
	assert.False(t, bad.Published())
	assert.Equal(t, 1, bad.Attempts)
	assert.Equal(t, "publish to bakery.inventory.events: broker unavailable", bad.LastError)
	assert.Equal(t, now.Add(2*time.Second), bad.NextAttemptAt)
	assert.Equal(t, map[string]int{"published": 1, "failed": 1}, p.Stats())

	// not due again until the backoff has passed
	assert.Zero(t, p.ProcessBatch(context.Background()))
	assert.Equal(t, 1, bad.Attempts)
}

func TestPublisher_ParksAfterMaxAttempts(t *testing.T) {
	repo := newMemoryRepository()
	e := newEvent(t, "bakery.inventory.stock-consumed")
	e.MaxAttempts = 2
	require.NoError(t, repo.SaveAll(context.Background(), []*Event{e}))

	producer := &flakyProducer{fail: map[string]error{e.EventType: stderrors.New("broker unavailable")}}
	now := time.Now().UTC().Add(time.Second)
	p := newTestPublisher(repo, producer, now)

	p.ProcessBatch(context.Background())
	p.now = func() time.Time { return now.Add(time.Hour) }
	p.ProcessBatch(context.Background())

	assert.Equal(t, 2, e.Attempts)
	assert.True(t, e.Parked())
	assert.False(t, e.Due(now.Add(24*time.Hour)))
}

func TestPublisher_OpenCircuitKeepsAttempts(t *testing.T) {
	repo := newMemoryRepository()
	first := newEvent(t, "bakery.inventory.item-created")
	second := newEvent(t, "bakery.inventory.item-updated")
	second.CreatedAt = first.CreatedAt.Add(time.Millisecond)
	require.NoError(t, repo.SaveAll(context.Background(), []*Event{first, second}))

	open := fmt.Errorf("%w: kafka-producer", resilience.ErrCircuitOpen)
	producer := &flakyProducer{fail: map[string]error{first.EventType: open, second.EventType: open}}
	p := newTestPublisher(repo, producer, time.Now().UTC().Add(time.Second))

	assert.Zero(t, p.ProcessBatch(context.Background()))
	assert.Zero(t, first.Attempts)
	assert.Zero(t, second.Attempts)
	assert.Equal(t, map[string]int{"published": 0, "failed": 0}, p.Stats())
}

func TestPublisher_StartStop(t *testing.T) {
	p := NewPublisher(newMemoryRepository(), &flakyProducer{}, logging.New(logging.DefaultConfig("test")), nil, nil)

	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(context.Background()))

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
	assert.Error(t, p.Stop())
}

func TestEvent_CloudEvent(t *testing.T) {
	e := newEvent(t, "bakery.inventory.cycle-rolled-over")

	ce, err := e.CloudEvent()

	require.NoError(t, err)
	assert.Equal(t, "bakery.inventory.cycle-rolled-over", ce.Type)
	assert.Equal(t, "inventory-item/1", ce.Subject)
	assert.Equal(t, "corr-1", e.CorrelationID)
	assert.Equal(t, DefaultMaxAttempts, e.MaxAttempts)
}

func TestBackoff(t *testing.T) {
	base, max := 2*time.Second, 10*time.Second
	assert.Equal(t, 2*time.Second, Backoff(1, base, max))
	assert.Equal(t, 4*time.Second, Backoff(2, base, max))
	assert.Equal(t, 8*time.Second, Backoff(3, base, max))
	assert.Equal(t, 10*time.Second, Backoff(4, base, max))
	assert.Equal(t, 10*time.Second, Backoff(40, base, max))
}
