package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bakery-platform/inventory/pkg/cloudevents"
)

// EventPublisher publishes CloudEvents to a topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.BakeryCloudEvent) error
	Close() error
}

// Producer writes events with one synchronous kafka-go writer. The topic is
// set per message.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(config *Config) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              config.BatchSize,
		BatchTimeout:           config.BatchTimeout,
		WriteTimeout:           config.WriteTimeout,
		RequiredAcks:           kafka.RequiredAcks(config.RequiredAcks),
		AllowAutoTopicCreation: false,
		Transport:              &kafka.Transport{ClientID: config.ClientID},
	}}
}

// NewMessage encodes event in structured CloudEvents mode with the ce-*
// attributes copied to headers. The subject is the key, so one item's
// events stay ordered on one partition.
func NewMessage(topic string, event *cloudevents.BakeryCloudEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s: %w", event.Type, err)
	}

	headers := make([]kafka.Header, 0, 9)
	add := func(key, value string) {
		if value != "" {
			headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
		}
	}
	add("ce-specversion", event.SpecVersion)
	add("ce-type", event.Type)
	add("ce-source", event.Source)
	add("ce-id", event.ID)
	add("ce-time", event.Time.UTC().Format(time.RFC3339Nano))
	add("content-type", event.DataContentType)
	add("ce-"+cloudevents.ExtCorrelationID, event.CorrelationID)
	add("ce-"+cloudevents.ExtOrderID, event.OrderID)
	add("ce-"+cloudevents.ExtCycleDate, event.CycleDate)

	return kafka.Message{
		Topic:   topic,
		Key:     []byte(event.Subject),
		Value:   data,
		Headers: headers,
		Time:    event.Time,
	}, nil
}

func (p *Producer) PublishEvent(ctx context.Context, topic string, event *cloudevents.BakeryCloudEvent) error {
	msg, err := NewMessage(topic, event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s to %s: %w", event.Type, topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
