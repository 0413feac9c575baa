// Package resilience guards calls to Kafka and MongoDB with a circuit
// breaker and a bounded retry loop.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is wrapped by every call the breaker rejects
var ErrCircuitOpen = errors.New("circuit breaker is open")

// StateObserver receives breaker transitions. *metrics.Metrics implements it.
type StateObserver interface {
	SetCircuitBreakerState(name string, state int)
	RecordCircuitBreakerTrip(name string)
}

// BreakerConfig decides when the breaker opens and how it lets trial requests through again
type BreakerConfig struct {
	Name string
	// HalfOpenRequests are let through while probing
	HalfOpenRequests uint32
	// CountWindow clears the closed-state counts; 0 keeps them forever
	CountWindow time.Duration
	// OpenFor is how long the breaker rejects calls before probing
	OpenFor time.Duration
	// ConsecutiveFailures opens the breaker outright
	ConsecutiveFailures uint32
	// FailureRatio opens it once MinRequests have been seen in the window
	FailureRatio float64
	MinRequests  uint32
}

func DefaultBreakerConfig(name string) *BreakerConfig {
	return &BreakerConfig{
		Name:                name,
		HalfOpenRequests:    3,
		CountWindow:         time.Minute,
		OpenFor:             30 * time.Second,
		ConsecutiveFailures: 5,
		FailureRatio:        0.5,
		MinRequests:         10,
	}
}

func (c *BreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if counts.ConsecutiveFailures >= c.ConsecutiveFailures {
		return true
	}
	return counts.Requests >= c.MinRequests &&
		float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

// Breaker is a named gobreaker that logs and reports its transitions
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewBreaker builds a breaker. logger and observer may be nil.
func NewBreaker(config *BreakerConfig, logger *slog.Logger, observer StateObserver) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("breaker", config.Name)

	return &Breaker{
		logger: logger,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        config.Name,
			MaxRequests: config.HalfOpenRequests,
			Interval:    config.CountWindow,
			Timeout:     config.OpenFor,
			ReadyToTrip: config.readyToTrip,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
				if observer == nil {
					return
				}
				observer.SetCircuitBreakerState(name, int(to))
				if to == gobreaker.StateOpen {
					observer.RecordCircuitBreakerTrip(name)
				}
			},
		}),
	}
}

// Execute runs fn unless the breaker is open. Rejections wrap ErrCircuitOpen.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, b.cb.Name())
	}
	return err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
