package domain

import "time"

// RolloverHour is the hour of day at which one operating cycle ends and the next begins
const RolloverHour = 6

// CycleDate returns the operating date that now falls in, evaluated in now's
// location. The cycle runs 06:00 to 06:00, so 05:59 still belongs to the
// previous calendar date.
func CycleDate(now time.Time) Date {
	if now.Hour() >= RolloverHour {
		return DateOf(now)
	}
	return DateOf(now.AddDate(0, 0, -1))
}

// IsRolloverMoment reports whether now is inside the 06:00 minute
func IsRolloverMoment(now time.Time) bool {
	return now.Hour() == RolloverHour && now.Minute() == 0
}

// Rollover closes the cycle for one item. It returns the archived record
// for the day before CycleDate(now) and the item reset for the new cycle:
// opening stock takes the final stock, intake counters go to zero and the
// lifetime consumed counters are left as they are.
func Rollover(item InventoryItem, now time.Time) (InventoryItem, *DailyRecord, error) {
	cycle := CycleDate(now)
	if item.LastRolloverDate == cycle {
		return item, nil, ErrAlreadyRolledOver
	}

	closing := Recompute(item)
	record, err := NewDailyRecord(closing, cycle.AddDays(-1), SourceRollover, now)
	if err != nil {
		return item, nil, err
	}

	next := closing.clone()
	next.OpeningStock = closing.FinalStock
	next.OpeningStockPrimary = closing.FinalStockPrimary
	next.OpeningStockSecondary = closing.FinalStockSecondary

	next.Received, next.ReceivedPrimary, next.ReceivedSecondary = 0, 0, 0
	next.Received2, next.Received2Primary, next.Received2Secondary = 0, 0, 0

	next.LastRolloverDate = cycle
	next.Touch(now)
	next = Recompute(next)

	next.AddDomainEvent(&CycleRolledOverEvent{
		ItemID:          next.ID,
		Name:            next.Name,
		ArchivedDate:    record.Date,
		CycleDate:       cycle,
		OpeningStock:    next.OpeningStock,
		PreviousOpening: closing.OpeningStock,
		RolledOverAt:    now.UTC(),
	})

	return next, record, nil
}
