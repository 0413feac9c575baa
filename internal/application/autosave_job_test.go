package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakery-platform/inventory/internal/domain"
)

func TestAutosaveJob_RunOnce(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 10, 16, 2, 0, 0, 0, time.UTC))
	inv := newFakeInventoryRepo(domain.InventoryItem{ID: 1, Name: "Flour", OpeningStock: 100})
	records := newFakeRecordRepo()
	scheduler := newTestScheduler(inv, records, clock)
	job := NewAutosaveJob(newTestRecordService(records, inv), scheduler, time.Hour, time.UTC, testLogger())
	job.now = clock.Now

	result, err := job.RunOnce(context.Background())

	require.NoError(t, err)
	require.NotNil(t, result)
	// 02:00 still belongs to the cycle that started the previous morning
	assert.Equal(t, "2026-10-15", result.Date)
	assert.Equal(t, 1, result.Saved)

	rec, _ := records.FindOne(context.Background(), "2026-10-15", 1)
	require.NotNil(t, rec)
	assert.Equal(t, domain.SourceAutosave, rec.Source)
}

func TestAutosaveJob_SkipsWhileConsumptionInFlight(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	inv := newFakeInventoryRepo(domain.InventoryItem{ID: 1, Name: "Flour", OpeningStock: 100})
	records := newFakeRecordRepo()
	scheduler := newTestScheduler(inv, records, clock)
	job := NewAutosaveJob(newTestRecordService(records, inv), scheduler, time.Hour, time.UTC, testLogger())
	job.now = clock.Now

	scheduler.NotifyConsumptionStarted()
	result, err := job.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, records.records)
}

func TestAutosaveJob_ZeroIntervalDisables(t *testing.T) {
	records := newFakeRecordRepo()
	inv := newFakeInventoryRepo()
	job := NewAutosaveJob(newTestRecordService(records, inv), nil, 0, time.UTC, testLogger())

	require.NoError(t, job.Start(context.Background()))
	assert.False(t, job.IsRunning())
	job.Stop()
}

func TestAutosaveJob_RestartAfterStop(t *testing.T) {
	records := newFakeRecordRepo()
	inv := newFakeInventoryRepo()
	job := NewAutosaveJob(newTestRecordService(records, inv), nil, time.Hour, time.UTC, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, job.Start(ctx))
	assert.Error(t, job.Start(ctx))
	job.Stop()
	assert.False(t, job.IsRunning())

	require.NoError(t, job.Start(ctx))
	assert.True(t, job.IsRunning())
	job.Stop()
}
