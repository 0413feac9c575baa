package application

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/metrics"
)

func newTestScheduler(inv *fakeInventoryRepo, records *fakeRecordRepo, clock *fakeClock) *RolloverScheduler {
	uow := &fakeRolloverUoW{inventory: inv, records: records, failFor: map[string]error{}}
	cfg := DefaultRolloverSchedulerConfig()
	cfg.Location = time.UTC
	return NewRolloverScheduler(inv, uow, &LedgerLock{}, cfg, metrics.New(metrics.DefaultConfig("test")), testLogger()).
		WithClock(clock.Now)
}

func rolloverInventory() *fakeInventoryRepo {
	return newFakeInventoryRepo(
		domain.InventoryItem{ID: 1, Name: "Flour", OpeningStock: 100, Received: 20, Consumed: 30, Received2: 5, Consumed2: 10},
		domain.InventoryItem{ID: 2, Name: "Sugar", OpeningStock: 40, Received: 10, Consumed: 15},
	)
}

func TestRolloverScheduler_TickOutsideBoundaryDoesNothing(t *testing.T) {
	inv := rolloverInventory()
	records := newFakeRecordRepo()
	clock := newFakeClock(time.Date(2026, 10, 15, 6, 5, 0, 0, time.UTC))
	s := newTestScheduler(inv, records, clock)

	report, err := s.Tick(context.Background())

	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Empty(t, records.records)
	assert.Equal(t, 20.0, inv.get(1).Received)
}

func TestRolloverScheduler_TickAtSixRollsOver(t *testing.T) {
	inv := rolloverInventory()
	records := newFakeRecordRepo()
	clock := newFakeClock(time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC))
	s := newTestScheduler(inv, records, clock)

	report, err := s.Tick(context.Background())

	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "2026-10-15", report.CycleDate)
	assert.Equal(t, "2026-10-14", report.ArchivedDate)
	assert.Equal(t, 2, report.RolledOver)

	rec, _ := records.FindOne(context.Background(), "2026-10-14", 1)
	require.NotNil(t, rec)
	assert.Equal(t, 85.0, rec.FinalStock)
	assert.Equal(t, domain.SourceRollover, rec.Source)

	flour := inv.get(1)
	assert.Equal(t, 85.0, flour.OpeningStock)
	assert.Zero(t, flour.Received)
	assert.Zero(t, flour.Received2)
	assert.Equal(t, 30.0, flour.Consumed)
	assert.Equal(t, 10.0, flour.Consumed2)

	// the archived event travels with the item update
	var types []string
	for _, e := range inv.saved[len(inv.saved)-2] {
		types = append(types, e.EventType())
	}
	assert.Contains(t, types, domain.EventTypeCycleRolledOver)
	assert.Contains(t, types, domain.EventTypeDailyRecordArchived)

	clock.Advance(30 * time.Second)
	again, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Zero(t, again.RolledOver)
	assert.Equal(t, 2, again.Skipped)
	assert.Equal(t, 85.0, inv.get(1).OpeningStock)
}

func TestRolloverScheduler_SuppressedDuringAndAfterConsumption(t *testing.T) {
	inv := rolloverInventory()
	records := newFakeRecordRepo()
	clock := newFakeClock(time.Date(2026, 10, 15, 5, 59, 40, 0, time.UTC))
	s := newTestScheduler(inv, records, clock)

	s.NotifyConsumptionStarted()
	assert.Equal(t, StateSuppressed, s.State().Kind)
	assert.Equal(t, 1, s.State().InFlight)
	assert.True(t, s.State().Until.IsZero())

	clock.Advance(20 * time.Second) // 06:00:00
	report, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Empty(t, records.records)

	s.NotifyConsumptionFinished(clock.Now())
	state := s.State()
	assert.Equal(t, StateSuppressed, state.Kind)
	assert.Equal(t, clock.Now().Add(time.Minute), state.Until)

	_, err = s.RunNow(context.Background())
	assert.ErrorIs(t, err, domain.ErrRolloverSuppressed)

	clock.Advance(61 * time.Second)
	assert.Equal(t, StateIdle, s.State().Kind)

	report, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.RolledOver)
}

func TestRolloverScheduler_ItemFailureDoesNotStopOthers(t *testing.T) {
	inv := rolloverInventory()
	records := newFakeRecordRepo()
	clock := newFakeClock(time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC))
	s := newTestScheduler(inv, records, clock)
	s.uow.(*fakeRolloverUoW).failFor["Flour"] = stderrors.New("write conflict")

	report, err := s.RunNow(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Flour")
	assert.Equal(t, 1, report.RolledOver)
	assert.Equal(t, []string{"Flour"}, report.Failed)
	assert.Equal(t, 20.0, inv.get(1).Received)
	assert.Zero(t, inv.get(2).Received)
}

func TestRolloverScheduler_Status(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 10, 15, 23, 0, 0, 0, time.UTC))
	s := newTestScheduler(rolloverInventory(), newFakeRecordRepo(), clock)

	status := s.Status()

	assert.Equal(t, "2026-10-15", status.CycleDate)
	assert.Equal(t, time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC), status.NextRollover)
	assert.Equal(t, string(StateIdle), status.State)
	assert.Nil(t, status.SuppressedUntil)
	assert.False(t, status.Running)
}

func TestRolloverScheduler_StartStop(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	s := newTestScheduler(rolloverInventory(), newFakeRecordRepo(), clock)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	s.Stop()
}

func TestRolloverScheduler_PollsAlignToInterval(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 10, 15, 5, 57, 30, 0, time.UTC))
	s := newTestScheduler(rolloverInventory(), newFakeRecordRepo(), clock)

	wait := s.untilNextPoll()

	assert.Equal(t, 2*time.Minute+30*time.Second, wait)
	assert.True(t, domain.IsRolloverMoment(clock.Now().Add(wait)))
}

func TestRolloverScheduler_ReplacesOvernightAutosave(t *testing.T) {
	inv := rolloverInventory()
	records := newFakeRecordRepo()
	clock := newFakeClock(time.Date(2026, 10, 16, 5, 0, 0, 0, time.UTC))
	s := newTestScheduler(inv, records, clock)
	job := NewAutosaveJob(newTestRecordService(records, inv), s, time.Hour, time.UTC, testLogger())
	job.now = clock.Now

	saved, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2026-10-15", saved.Date)

	clock.Advance(time.Hour)
	report, err := s.Tick(context.Background())

	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 2, report.RolledOver)
	assert.Zero(t, report.Skipped)

	rec, _ := records.FindOne(context.Background(), "2026-10-15", 1)
	require.NotNil(t, rec)
	assert.Equal(t, domain.SourceRollover, rec.Source)

	flour := inv.get(1)
	assert.Equal(t, 85.0, flour.OpeningStock)
	assert.Zero(t, flour.Received)
}

func TestRolloverScheduler_KeepsManualRecord(t *testing.T) {
	inv := rolloverInventory()
	records := newFakeRecordRepo()
	clock := newFakeClock(time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC))
	s := newTestScheduler(inv, records, clock)

	manual, err := domain.NewDailyRecord(*inv.get(1), "2026-10-15", domain.SourceManual, clock.Now())
	require.NoError(t, err)
	require.NoError(t, records.Insert(context.Background(), manual))

	report, err := s.Tick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.RolledOver)
	assert.Equal(t, 1, report.Skipped)
	rec, _ := records.FindOne(context.Background(), "2026-10-15", 1)
	assert.Equal(t, domain.SourceManual, rec.Source)
	assert.Equal(t, 20.0, inv.get(1).Received)
}
