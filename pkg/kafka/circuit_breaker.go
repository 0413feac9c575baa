package kafka

import (
	"context"
	"log/slog"

	"github.com/bakery-platform/inventory/pkg/cloudevents"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/metrics"
	"github.com/bakery-platform/inventory/pkg/resilience"
)

// CircuitBreakerProducer stops calling the broker while it keeps failing, so
// the outbox relay can back off instead of burning publish attempts
type CircuitBreakerProducer struct {
	producer EventPublisher
	breaker  *resilience.Breaker
}

// NewCircuitBreakerProducer wraps producer. m and logger may be nil.
func NewCircuitBreakerProducer(producer EventPublisher, m *metrics.Metrics, logger *logging.Logger) *CircuitBreakerProducer {
	config := resilience.DefaultBreakerConfig("kafka-producer")
	config.HalfOpenRequests = 5

	var observer resilience.StateObserver
	if m != nil {
		observer = m
	}
	var base *slog.Logger
	if logger != nil {
		base = logger.Logger
	}
	return &CircuitBreakerProducer{
		producer: producer,
		breaker:  resilience.NewBreaker(config, base, observer),
	}
}

func (p *CircuitBreakerProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.BakeryCloudEvent) error {
	return p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.producer.PublishEvent(ctx, topic, event)
	})
}

// Close closes the underlying producer
func (p *CircuitBreakerProducer) Close() error {
	return p.producer.Close()
}

// NewProductionProducer creates a Kafka producer with instrumentation and circuit breaker
func NewProductionProducer(config *Config, m *metrics.Metrics, logger *logging.Logger) *CircuitBreakerProducer {
	base := NewProducer(config)
	instrumented := NewInstrumentedProducer(base, m, logger)
	return NewCircuitBreakerProducer(instrumented, m, logger)
}
