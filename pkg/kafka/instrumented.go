package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bakery-platform/inventory/pkg/cloudevents"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/metrics"
	"github.com/bakery-platform/inventory/pkg/tracing"
)

// InstrumentedProducer adds a producer span, the publish metrics and a log
// line around each event
type InstrumentedProducer struct {
	producer EventPublisher
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewInstrumentedProducer wraps producer. m and logger may be nil.
func NewInstrumentedProducer(producer EventPublisher, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{
		producer: producer,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("bakery-inventory/kafka"),
	}
}

func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.BakeryCloudEvent) error {
	attrs := append(tracing.MessagingSpanAttributes("kafka", topic, "publish"),
		attribute.String("messaging.message.id", event.ID),
		attribute.String("bakery.event_type", event.Type),
	)
	if event.OrderID != "" {
		attrs = append(attrs, attribute.String("bakery.order_id", event.OrderID))
	}

	start := time.Now()
	_, err := tracing.TracedOperation(ctx, p.tracer, "kafka.publish "+topic, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.producer.PublishEvent(ctx, topic, event)
	}, attrs...)
	elapsed := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, elapsed)
	}
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, elapsed)
	}
	return err
}

func (p *InstrumentedProducer) Close() error {
	return p.producer.Close()
}
