package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bakery-platform/inventory/pkg/kafka"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/metrics"
	"github.com/bakery-platform/inventory/pkg/resilience"
)

// PublisherConfig holds the relay timings
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// RetryBaseDelay is the wait after the first failed attempt; it doubles
	// per attempt up to RetryMaxDelay
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval:   time.Second,
		BatchSize:      100,
		RetryBaseDelay: 2 * time.Second,
		RetryMaxDelay:  5 * time.Minute,
	}
}

// Publisher relays due outbox events to Kafka on a fixed poll interval
type Publisher struct {
	repo     Repository
	producer kafka.EventPublisher
	logger   *logging.Logger
	metrics  *metrics.Metrics
	config   PublisherConfig
	now      func() time.Time

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
	published int
	failed    int
}

// NewPublisher creates a relay. m may be nil.
func NewPublisher(repo Repository, producer kafka.EventPublisher, logger *logging.Logger, m *metrics.Metrics, config *PublisherConfig) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}
	return &Publisher{
		repo:     repo,
		producer: producer,
		logger:   logger.WithComponent("outbox"),
		metrics:  m,
		config:   *config,
		now:      time.Now,
	}
}

// Start launches the poll loop
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("outbox publisher already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.stoppedCh = make(chan struct{})

	p.logger.Info("Outbox publisher started", "interval", p.config.PollInterval, "batchSize", p.config.BatchSize)
	go p.loop(ctx, p.stopCh, p.stoppedCh)
	return nil
}

// Stop ends the poll loop after the batch in progress
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return errors.New("outbox publisher not running")
	}
	p.running = false
	stopCh, stoppedCh := p.stopCh, p.stoppedCh
	p.mu.Unlock()

	close(stopCh)
	<-stoppedCh

	stats := p.Stats()
	p.logger.Info("Outbox publisher stopped", "published", stats["published"], "failed", stats["failed"])
	return nil
}

func (p *Publisher) loop(ctx context.Context, stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.ProcessBatch(ctx)
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ProcessBatch relays the events due now and returns how many were
// published. An open Kafka circuit ends the batch without spending attempts.
func (p *Publisher) ProcessBatch(ctx context.Context) int {
	now := p.now()
	events, err := p.repo.FindDue(ctx, now, p.config.BatchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to load due outbox events")
		return 0
	}
	if p.metrics != nil {
		p.metrics.SetOutboxPending(len(events))
	}

	published := 0
	for _, event := range events {
		err := p.publish(ctx, event)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			p.logger.Warn("Kafka circuit open, deferring outbox batch", "remaining", len(events)-published)
			break
		}
		p.record(event.EventType, err == nil)
		if err != nil {
			p.fail(ctx, event, err, now)
			continue
		}

		published++
		if err := p.repo.MarkPublished(ctx, event.ID, p.now()); err != nil {
			// the event will be sent again on the next poll
			p.logger.WithError(err).Error("Failed to mark outbox event published", "eventId", event.ID)
		}
	}
	return published
}

func (p *Publisher) publish(ctx context.Context, event *Event) error {
	ce, err := event.CloudEvent()
	if err != nil {
		return err
	}
	if err := p.producer.PublishEvent(ctx, event.Topic, ce); err != nil {
		return fmt.Errorf("publish to %s: %w", event.Topic, err)
	}
	p.logger.Debug("Relayed outbox event", "eventId", event.ID, "eventType", event.EventType, "aggregateId", event.AggregateID)
	return nil
}

func (p *Publisher) fail(ctx context.Context, event *Event, cause error, now time.Time) {
	attempts := event.Attempts + 1
	next := now.Add(Backoff(attempts, p.config.RetryBaseDelay, p.config.RetryMaxDelay))

	log := p.logger.WithError(cause).With("eventId", event.ID, "eventType", event.EventType,
		"aggregateId", event.AggregateID, "attempts", attempts)
	if attempts >= event.MaxAttempts {
		log.Error("Outbox event parked after final attempt")
	} else {
		log.Warn("Outbox publish failed", "nextAttemptAt", next)
	}

	if err := p.repo.RecordFailure(ctx, event.ID, cause.Error(), next); err != nil {
		p.logger.WithError(err).Error("Failed to record outbox failure", "eventId", event.ID)
	}
}

func (p *Publisher) record(eventType string, ok bool) {
	if p.metrics != nil {
		p.metrics.RecordOutboxPublish(eventType, ok)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok {
		p.published++
	} else {
		p.failed++
	}
}

func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns counts since the publisher was created
func (p *Publisher) Stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]int{"published": p.published, "failed": p.failed}
}
