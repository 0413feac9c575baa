package resilience

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu     sync.Mutex
	states []int
	trips  int
}

func (o *recordingObserver) SetCircuitBreakerState(name string, state int) {
	o.mu.Lock()
	o.states = append(o.states, state)
	o.mu.Unlock()
}

func (o *recordingObserver) RecordCircuitBreakerTrip(name string) {
	o.mu.Lock()
	o.trips++
	o.mu.Unlock()
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultBreakerConfig("kafka-producer")
	cfg.ConsecutiveFailures = 2
	cfg.OpenFor = time.Hour
	observer := &recordingObserver{}
	b := NewBreaker(cfg, nil, observer)

	boom := stderrors.New("broker down")
	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, b.Execute(context.Background(), func(context.Context) error { return boom }), boom)
	}

	assert.Equal(t, gobreaker.StateOpen, b.State())
	called := false
	err := b.Execute(context.Background(), func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, 1, observer.trips)
	assert.Equal(t, []int{int(gobreaker.StateOpen)}, observer.states)
}

func TestBreaker_FailureRatio(t *testing.T) {
	cfg := DefaultBreakerConfig("mongodb")
	cfg.MinRequests = 4
	b := NewBreaker(cfg, nil, nil)

	boom := stderrors.New("timeout")
	for _, fail := range []bool{false, true, false, true} {
		_ = b.Execute(context.Background(), func(context.Context) error {
			if fail {
				return boom
			}
			return nil
		})
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
}

func TestBreaker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewBreaker(DefaultBreakerConfig("x"), nil, nil).Execute(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetry_StopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		if calls < 3 {
			return stderrors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_Permanent(t *testing.T) {
	calls := 0
	fatal := stderrors.New("standalone mongod")

	err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return Permanent(fatal)
	})

	assert.Same(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	boom := stderrors.New("connection refused")

	err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "gave up after 4 attempts")
	assert.Equal(t, 4, calls)
}
