package kafka

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakery-platform/inventory/pkg/cloudevents"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/metrics"
	"github.com/bakery-platform/inventory/pkg/resilience"
)

type stubPublisher struct {
	err       error
	published []*cloudevents.BakeryCloudEvent
}

func (s *stubPublisher) PublishEvent(ctx context.Context, topic string, event *cloudevents.BakeryCloudEvent) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, event)
	return nil
}

func (s *stubPublisher) Close() error { return nil }

func headerMap(t *testing.T, event *cloudevents.BakeryCloudEvent) map[string]string {
	t.Helper()
	msg, err := NewMessage(Topics.InventoryEvents, event)
	require.NoError(t, err)
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestNewMessage_Headers(t *testing.T) {
	event := cloudevents.NewEventFactory(cloudevents.SourceInventory).
		CreateEvent(context.Background(), "bakery.inventory.stock-consumed", "inventory-item/4", nil).
		WithOrder("order-1")

	headers := headerMap(t, event)

	assert.Equal(t, "bakery.inventory.stock-consumed", headers["ce-type"])
	assert.Equal(t, "order-1", headers["ce-bakeryorderid"])
	_, hasCycle := headers["ce-bakerycycledate"]
	assert.False(t, hasCycle)

	msg, err := NewMessage(Topics.InventoryEvents, event)
	require.NoError(t, err)
	assert.Equal(t, "inventory-item/4", string(msg.Key))
	assert.Equal(t, Topics.InventoryEvents, msg.Topic)
}

func TestInstrumentedProducer_PassesThrough(t *testing.T) {
	stub := &stubPublisher{}
	producer := NewInstrumentedProducer(stub, metrics.New(metrics.DefaultConfig("test")), nil)
	event := cloudevents.NewEventFactory(cloudevents.SourceInventory).
		CreateEvent(context.Background(), "bakery.inventory.cycle-rolled-over", "inventory-item/2", nil).
		WithCycle("2026-10-15")

	require.NoError(t, producer.PublishEvent(context.Background(), Topics.InventoryEvents, event))
	require.Len(t, stub.published, 1)
	assert.Same(t, event, stub.published[0])

	stub.err = stderrors.New("leader not available")
	assert.ErrorIs(t, producer.PublishEvent(context.Background(), Topics.InventoryEvents, event), stub.err)
}

func TestCircuitBreakerProducer_OpensAfterFailures(t *testing.T) {
	stub := &stubPublisher{err: stderrors.New("broker unavailable")}
	m := metrics.New(metrics.DefaultConfig("test"))
	producer := NewCircuitBreakerProducer(
		NewInstrumentedProducer(stub, m, logging.New(logging.DefaultConfig("test"))),
		m, nil,
	)
	event := cloudevents.NewEventFactory(cloudevents.SourceInventory).
		CreateEvent(context.Background(), "bakery.inventory.item-updated", "inventory-item/1", nil)

	for i := 0; i < int(resilience.DefaultBreakerConfig("kafka-producer").ConsecutiveFailures); i++ {
		err := producer.PublishEvent(context.Background(), Topics.InventoryEvents, event)
		assert.ErrorIs(t, err, stub.err)
	}

	err := producer.PublishEvent(context.Background(), Topics.InventoryEvents, event)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}
