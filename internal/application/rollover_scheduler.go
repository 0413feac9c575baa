package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/metrics"
	"github.com/bakery-platform/inventory/pkg/tracing"
)

// LedgerLock serializes every write to the inventory ledger inside this
// process: consumption, direct edits and rollover.
type LedgerLock struct {
	sync.Mutex
}

// ConsumptionObserver is told when a consumption write starts and finishes.
// NotifyConsumptionAborted ends a started consumption that wrote nothing.
type ConsumptionObserver interface {
	NotifyConsumptionStarted()
	NotifyConsumptionFinished(at time.Time)
	NotifyConsumptionAborted()
}

// SchedulerStateKind names the rollover scheduler states
type SchedulerStateKind string

const (
	StateIdle        SchedulerStateKind = "idle"
	StateSuppressed  SchedulerStateKind = "suppressed"
	StateRollingOver SchedulerStateKind = "rolling_over"
)

// SchedulerState is a point-in-time view of the scheduler. Until is set for
// a cooldown after the last consumption write and is zero while a write is
// still in flight.
type SchedulerState struct {
	Kind     SchedulerStateKind
	Until    time.Time
	InFlight int
}

// RolloverSchedulerConfig configures the rollover scheduler
type RolloverSchedulerConfig struct {
	// PollInterval is how often the clock is checked for the 06:00 boundary
	PollInterval time.Duration

	// Cooldown is how long rollover stays suppressed after a consumption write
	Cooldown time.Duration

	// Location is the time zone the 06:00 boundary is evaluated in
	Location *time.Location
}

// DefaultRolloverSchedulerConfig returns default configuration
func DefaultRolloverSchedulerConfig() RolloverSchedulerConfig {
	return RolloverSchedulerConfig{
		PollInterval: 5 * time.Minute,
		Cooldown:     60 * time.Second,
		Location:     time.Local,
	}
}

// ErrRolloverInProgress is returned when a rollover is requested while one is running
var ErrRolloverInProgress = errors.New("rollover already in progress")

// RolloverScheduler closes the operating cycle at 06:00: each item's ledger
// is archived as a daily record and the item is reset for the new cycle.
type RolloverScheduler struct {
	inventory domain.InventoryRepository
	uow       domain.RolloverUnitOfWork
	lock      *LedgerLock
	config    RolloverSchedulerConfig
	metrics   *metrics.Metrics
	logger    *logging.Logger
	now       func() time.Time

	mu              sync.RWMutex
	running         bool
	stopChan        chan struct{}
	inFlight        int
	suppressedUntil time.Time
	rollingOver     bool
	lastRun         *RolloverReportDTO
}

// NewRolloverScheduler creates a new rollover scheduler
func NewRolloverScheduler(
	inventory domain.InventoryRepository,
	uow domain.RolloverUnitOfWork,
	lock *LedgerLock,
	config RolloverSchedulerConfig,
	m *metrics.Metrics,
	logger *logging.Logger,
) *RolloverScheduler {
	if config.Location == nil {
		config.Location = time.Local
	}
	return &RolloverScheduler{
		inventory: inventory,
		uow:       uow,
		lock:      lock,
		config:    config,
		metrics:   m,
		logger:    logger.WithComponent("rollover-scheduler"),
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// WithClock replaces the clock, for tests
func (s *RolloverScheduler) WithClock(now func() time.Time) *RolloverScheduler {
	s.now = now
	return s
}

// Start begins polling for the rollover boundary
func (s *RolloverScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("rollover scheduler is already running")
	}
	s.running = true
	stop := make(chan struct{})
	s.stopChan = stop
	s.mu.Unlock()

	go s.run(ctx, stop)
	return nil
}

// Stop stops polling
func (s *RolloverScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		close(s.stopChan)
		s.running = false
	}
}

// IsRunning returns whether the scheduler is polling
func (s *RolloverScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *RolloverScheduler) run(ctx context.Context, stop <-chan struct{}) {
	// Polls land on wall-clock multiples of the interval, so one of them
	// falls inside the 06:00 minute.
	align := time.NewTimer(s.untilNextPoll())
	defer align.Stop()

	select {
	case <-ctx.Done():
		return
	case <-stop:
		return
	case <-align.C:
		s.poll(ctx)
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *RolloverScheduler) poll(ctx context.Context) {
	if _, err := s.Tick(ctx); err != nil {
		s.logger.WithError(err).ErrorContext(ctx, "Rollover check failed")
	}
}

// untilNextPoll is the wait until the next multiple of PollInterval
func (s *RolloverScheduler) untilNextPoll() time.Duration {
	now := s.now()
	return now.Truncate(s.config.PollInterval).Add(s.config.PollInterval).Sub(now)
}

// NotifyConsumptionStarted suppresses rollover until the write finishes
func (s *RolloverScheduler) NotifyConsumptionStarted() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
	s.publishSuppressed()
}

// NotifyConsumptionFinished starts the cooldown window
func (s *RolloverScheduler) NotifyConsumptionFinished(at time.Time) {
	s.mu.Lock()
	if s.inFlight > 0 {
		s.inFlight--
	}
	if until := at.Add(s.config.Cooldown); until.After(s.suppressedUntil) {
		s.suppressedUntil = until
	}
	s.mu.Unlock()
	s.publishSuppressed()
}

// NotifyConsumptionAborted lifts the in-flight suppression without a cooldown
func (s *RolloverScheduler) NotifyConsumptionAborted() {
	s.mu.Lock()
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.mu.Unlock()
	s.publishSuppressed()
}

// State returns the scheduler state at the current time
func (s *RolloverScheduler) State() SchedulerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateAt(s.now())
}

func (s *RolloverScheduler) stateAt(now time.Time) SchedulerState {
	switch {
	case s.rollingOver:
		return SchedulerState{Kind: StateRollingOver, InFlight: s.inFlight}
	case s.inFlight > 0:
		return SchedulerState{Kind: StateSuppressed, InFlight: s.inFlight}
	case now.Before(s.suppressedUntil):
		return SchedulerState{Kind: StateSuppressed, Until: s.suppressedUntil}
	default:
		return SchedulerState{Kind: StateIdle}
	}
}

// IsSuppressed reports whether a consumption write is in flight or cooling down
func (s *RolloverScheduler) IsSuppressed() bool {
	return s.State().Kind == StateSuppressed
}

func (s *RolloverScheduler) publishSuppressed() {
	if s.metrics != nil {
		s.metrics.SetSchedulerSuppressed(s.IsSuppressed())
	}
}

// Tick runs one poll: it rolls over only inside the 06:00 minute and only
// when not suppressed. It returns nil when nothing ran.
func (s *RolloverScheduler) Tick(ctx context.Context) (*RolloverReportDTO, error) {
	now := s.now().In(s.config.Location)
	if !domain.IsRolloverMoment(now) {
		return nil, nil
	}

	report, err := s.tracedRollover(ctx, now)
	if errors.Is(err, domain.ErrRolloverSuppressed) {
		s.logger.InfoContext(ctx, "Rollover skipped, consumption write in progress or cooling down",
			"cycleDate", domain.CycleDate(now).String())
		return nil, nil
	}
	return report, err
}

// RunNow rolls over immediately for the current cycle date, honoring suppression
func (s *RolloverScheduler) RunNow(ctx context.Context) (*RolloverReportDTO, error) {
	return s.tracedRollover(ctx, s.now().In(s.config.Location))
}

func (s *RolloverScheduler) tracedRollover(ctx context.Context, now time.Time) (*RolloverReportDTO, error) {
	return tracing.TracedOperation(ctx, otel.Tracer("bakery-inventory/rollover"), "rollover.run",
		func(ctx context.Context) (*RolloverReportDTO, error) {
			return s.rollover(ctx, now)
		},
		tracing.JobSpanAttributes("rollover", domain.CycleDate(now).String())...,
	)
}

// Status describes the current cycle and scheduler state
func (s *RolloverScheduler) Status() CycleStatusDTO {
	now := s.now().In(s.config.Location)

	s.mu.RLock()
	state := s.stateAt(now)
	running := s.running
	lastRun := s.lastRun
	s.mu.RUnlock()

	next := time.Date(now.Year(), now.Month(), now.Day(), domain.RolloverHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	dto := CycleStatusDTO{
		Now:          now,
		CycleDate:    domain.CycleDate(now).String(),
		NextRollover: next,
		State:        string(state.Kind),
		InFlight:     state.InFlight,
		Running:      running,
		LastRun:      lastRun,
	}
	if !state.Until.IsZero() {
		until := state.Until
		dto.SuppressedUntil = &until
	}
	return dto
}

func (s *RolloverScheduler) rollover(ctx context.Context, now time.Time) (*RolloverReportDTO, error) {
	start := time.Now()

	s.lock.Lock()
	defer s.lock.Unlock()

	s.mu.Lock()
	state := s.stateAt(s.now())
	switch state.Kind {
	case StateSuppressed:
		s.mu.Unlock()
		s.recordRun("suppressed", 0)
		return nil, domain.ErrRolloverSuppressed
	case StateRollingOver:
		s.mu.Unlock()
		return nil, ErrRolloverInProgress
	}
	s.rollingOver = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.rollingOver = false
		s.mu.Unlock()
	}()

	cycle := domain.CycleDate(now)
	report := &RolloverReportDTO{
		CycleDate:    cycle.String(),
		ArchivedDate: cycle.AddDays(-1).String(),
		StartedAt:    now,
	}

	items, err := s.inventory.FindAll(ctx)
	if err != nil {
		s.recordRun("failed", time.Since(start))
		s.logger.ScheduledJob(ctx, "rollover", cycle.String(), time.Since(start), 0, err)
		return nil, fmt.Errorf("failed to load inventory for rollover: %w", err)
	}

	var failures []error
	for _, item := range items {
		next, record, err := domain.Rollover(*item, now)
		if errors.Is(err, domain.ErrAlreadyRolledOver) {
			report.Skipped++
			continue
		}
		if err != nil {
			report.Failed = append(report.Failed, item.Name)
			failures = append(failures, fmt.Errorf("%s: %w", item.Name, err))
			continue
		}

		next.AddDomainEvent(record.ArchivedEvent(false))
		if err := s.uow.ArchiveAndReset(ctx, record, &next); err != nil {
			if errors.Is(err, domain.ErrRecordExists) {
				report.Skipped++
				continue
			}
			report.Failed = append(report.Failed, item.Name)
			failures = append(failures, fmt.Errorf("%s: %w", item.Name, err))
			continue
		}
		report.RolledOver++
	}

	report.DurationMs = time.Since(start).Milliseconds()
	err = errors.Join(failures...)

	result := "completed"
	switch {
	case err != nil:
		result = "failed"
	case report.RolledOver == 0:
		result = "skipped"
	}
	s.recordRun(result, time.Since(start))
	if s.metrics != nil && report.RolledOver > 0 {
		s.metrics.RecordDailyRecords(string(domain.SourceRollover), report.RolledOver)
	}
	s.logger.ScheduledJob(ctx, "rollover", cycle.String(), time.Since(start), report.RolledOver, err)

	s.mu.Lock()
	s.lastRun = report
	s.mu.Unlock()

	return report, err
}

func (s *RolloverScheduler) recordRun(result string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordRollover(result, d)
	}
}
