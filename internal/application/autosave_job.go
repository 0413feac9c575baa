package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/logging"
)

// AutosaveJob periodically snapshots the current cycle into the records
// archive. Runs are skipped while rollover is suppressed by a consumption write.
type AutosaveJob struct {
	records   *RecordApplicationService
	scheduler *RolloverScheduler
	interval  time.Duration
	location  *time.Location
	logger    *logging.Logger
	now       func() time.Time

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
}

// NewAutosaveJob creates a new AutosaveJob
func NewAutosaveJob(records *RecordApplicationService, scheduler *RolloverScheduler, interval time.Duration, location *time.Location, logger *logging.Logger) *AutosaveJob {
	if location == nil {
		location = time.Local
	}
	return &AutosaveJob{
		records:   records,
		scheduler: scheduler,
		interval:  interval,
		location:  location,
		logger:    logger.WithComponent("autosave"),
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the periodic snapshot. A non-positive interval disables the
// job and Start returns without starting it.
func (j *AutosaveJob) Start(ctx context.Context) error {
	if j.interval <= 0 {
		j.logger.InfoContext(ctx, "Autosave disabled")
		return nil
	}

	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return fmt.Errorf("autosave job is already running")
	}
	j.running = true
	stop := make(chan struct{})
	j.stopChan = stop
	j.mu.Unlock()

	go j.run(ctx, stop)
	return nil
}

// IsRunning returns whether the periodic snapshot is active
func (j *AutosaveJob) IsRunning() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.running
}

// Stop stops the periodic snapshot
func (j *AutosaveJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		close(j.stopChan)
		j.running = false
	}
}

func (j *AutosaveJob) run(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			_, _ = j.RunOnce(ctx)
		}
	}
}

// RunOnce snapshots the current cycle date. It returns nil, nil when skipped.
func (j *AutosaveJob) RunOnce(ctx context.Context) (*SnapshotResultDTO, error) {
	if j.scheduler != nil && j.scheduler.State().Kind != StateIdle {
		j.logger.DebugContext(ctx, "Autosave skipped, ledger busy")
		return nil, nil
	}

	start := time.Now()
	cycle := domain.CycleDate(j.now().In(j.location))
	result, err := j.records.Snapshot(ctx, SnapshotCommand{
		Date:      cycle.String(),
		Source:    domain.SourceAutosave,
		Overwrite: true,
	})

	processed := 0
	if result != nil {
		processed = result.Saved + result.Replaced
	}
	j.logger.ScheduledJob(ctx, "autosave", cycle.String(), time.Since(start), processed, err)
	return result, err
}
