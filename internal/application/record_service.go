package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/errors"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/metrics"
)

// RecordApplicationService manages the daily records archive
type RecordApplicationService struct {
	records   domain.DailyRecordRepository
	inventory domain.InventoryRepository
	metrics   *metrics.Metrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewRecordApplicationService creates a new RecordApplicationService
func NewRecordApplicationService(
	records domain.DailyRecordRepository,
	inventory domain.InventoryRepository,
	m *metrics.Metrics,
	logger *logging.Logger,
) *RecordApplicationService {
	return &RecordApplicationService{
		records:   records,
		inventory: inventory,
		metrics:   m,
		logger:    logger.WithComponent("records"),
		now:       time.Now,
	}
}

// SaveRecord archives one item's ledger. An existing record for the same
// date and item is only replaced when Overwrite is set.
func (s *RecordApplicationService) SaveRecord(ctx context.Context, cmd SaveRecordCommand) (*DailyRecordDTO, error) {
	date, err := domain.ParseDate(cmd.Date)
	if err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}

	item, err := s.inventory.FindByID(ctx, cmd.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return nil, errors.ErrNotFoundWithID("inventory item", strconv.FormatInt(cmd.ItemID, 10))
	}

	snapshot := *item
	if cmd.Ledger != nil {
		snapshot = domain.ApplyLedgerInputs(snapshot, *cmd.Ledger)
	}

	record, err := domain.NewDailyRecord(snapshot, date, domain.SourceManual, s.now())
	if err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}

	if _, err := s.store(ctx, record, cmd.Overwrite); err != nil {
		return nil, err
	}
	s.recordArchived(domain.SourceManual, 1)

	s.logger.InfoContext(ctx, "Saved daily record", "date", record.Date.String(), "itemId", record.ItemID, "overwrite", cmd.Overwrite)
	return ToDailyRecordDTO(record), nil
}

// Snapshot archives every item's current ledger for one date. With
// Overwrite, autosave snapshots only replace earlier autosave records;
// anything else is replaced only by a manual snapshot.
func (s *RecordApplicationService) Snapshot(ctx context.Context, cmd SnapshotCommand) (*SnapshotResultDTO, error) {
	date, err := domain.ParseDate(cmd.Date)
	if err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}
	source := cmd.Source
	if !source.IsValid() {
		source = domain.SourceManual
	}

	items, err := s.inventory.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	result := &SnapshotResultDTO{Date: date.String(), Source: string(source)}
	now := s.now()
	for _, item := range items {
		record, err := domain.NewDailyRecord(*item, date, source, now)
		if err != nil {
			result.Skipped++
			continue
		}

		overwrite := cmd.Overwrite
		if overwrite && source == domain.SourceAutosave {
			existing, err := s.records.FindOne(ctx, date, item.ID)
			if err != nil {
				return result, fmt.Errorf("failed to check record: %w", err)
			}
			if existing != nil && existing.Source != domain.SourceAutosave {
				result.Skipped++
				continue
			}
		}

		replaced, err := s.store(ctx, record, overwrite)
		if err != nil {
			if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.CodeConflict {
				result.Conflicts = append(result.Conflicts, item.Name)
				continue
			}
			return result, err
		}
		if replaced {
			result.Replaced++
		} else {
			result.Saved++
		}
	}

	s.recordArchived(source, result.Saved+result.Replaced)
	return result, nil
}

// ListRecords returns records within an inclusive date range, oldest first
func (s *RecordApplicationService) ListRecords(ctx context.Context, query ListRecordsQuery) ([]DailyRecordDTO, error) {
	r, err := domain.NewDateRange(query.From, query.To)
	if err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}

	records, err := s.records.FindByRange(ctx, r)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list records", "from", query.From, "to", query.To, "error", err)
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	out := make([]DailyRecordDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, *ToDailyRecordDTO(rec))
	}
	return out, nil
}

// DeleteRecord removes the record for one date and item
func (s *RecordApplicationService) DeleteRecord(ctx context.Context, date string, itemID int64) error {
	d, err := domain.ParseDate(date)
	if err != nil {
		return errors.ErrValidation(err.Error()).Wrap(err)
	}

	existing, err := s.records.FindOne(ctx, d, itemID)
	if err != nil {
		return fmt.Errorf("failed to get record: %w", err)
	}
	if existing == nil {
		return errors.ErrNotFound("daily record").WithDetail("date", date).WithDetail("itemId", strconv.FormatInt(itemID, 10))
	}

	if err := s.records.Delete(ctx, d, itemID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete record", "date", date, "itemId", itemID, "error", err)
		return fmt.Errorf("failed to delete record: %w", err)
	}
	s.logger.InfoContext(ctx, "Deleted daily record", "date", date, "itemId", itemID)
	return nil
}

// store inserts record, or replaces an existing one when overwrite is set.
// It reports whether a record was replaced.
func (s *RecordApplicationService) store(ctx context.Context, record *domain.DailyRecord, overwrite bool) (bool, error) {
	if !overwrite {
		err := s.records.Insert(ctx, record)
		if stderrors.Is(err, domain.ErrRecordExists) {
			return false, errors.ErrConflict(domain.ErrRecordExists.Error()+"; resend with overwrite=true to replace it").
				WithDetail("date", record.Date.String()).
				WithDetail("itemId", strconv.FormatInt(record.ItemID, 10))
		}
		if err != nil {
			return false, errors.ErrPersistence("daily record was not saved").Wrap(err)
		}
		return false, nil
	}

	existing, err := s.records.FindOne(ctx, record.Date, record.ItemID)
	if err != nil {
		return false, fmt.Errorf("failed to check record: %w", err)
	}
	if err := s.records.Replace(ctx, record); err != nil {
		return false, errors.ErrPersistence("daily record was not saved").Wrap(err)
	}
	return existing != nil, nil
}

func (s *RecordApplicationService) recordArchived(source domain.RecordSource, n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.RecordDailyRecords(string(source), n)
	}
}
