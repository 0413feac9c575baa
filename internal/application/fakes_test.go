package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.DefaultConfig("test"))
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeInventoryRepo struct {
	mu         sync.Mutex
	items      map[int64]*domain.InventoryItem
	saved      [][]domain.DomainEvent
	saveErr    error
	saveAllErr error
	findErr    error
}

func newFakeInventoryRepo(items ...domain.InventoryItem) *fakeInventoryRepo {
	f := &fakeInventoryRepo{items: make(map[int64]*domain.InventoryItem)}
	for i := range items {
		item := domain.Recompute(items[i])
		f.items[item.ID] = &item
	}
	return f
}

func (f *fakeInventoryRepo) put(item *domain.InventoryItem) {
	cp := *item
	f.saved = append(f.saved, item.GetDomainEvents())
	cp.ClearDomainEvents()
	f.items[cp.ID] = &cp
}

func (f *fakeInventoryRepo) get(id int64) *domain.InventoryItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil
	}
	cp := *item
	return &cp
}

func (f *fakeInventoryRepo) Save(ctx context.Context, item *domain.InventoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.put(item)
	return nil
}

func (f *fakeInventoryRepo) SaveAll(ctx context.Context, items []*domain.InventoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveAllErr != nil {
		return f.saveAllErr
	}
	for _, item := range items {
		f.put(item)
	}
	return nil
}

func (f *fakeInventoryRepo) FindByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.get(id), nil
}

func (f *fakeInventoryRepo) FindByName(ctx context.Context, name string) (*domain.InventoryItem, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	all, _ := f.FindAll(ctx)
	for _, item := range all {
		if domain.NameKey(item.Name) == domain.NameKey(name) {
			return item, nil
		}
	}
	return nil, nil
}

func (f *fakeInventoryRepo) FindAll(ctx context.Context) ([]*domain.InventoryItem, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.InventoryItem, 0, len(f.items))
	for _, item := range f.items {
		cp := *item
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeInventoryRepo) FindLowStock(ctx context.Context) ([]*domain.InventoryItem, error) {
	all, err := f.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.InventoryItem
	for _, item := range all {
		if item.IsLowStock() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeInventoryRepo) NextID(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var max int64
	for id := range f.items {
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

func (f *fakeInventoryRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

type fakeRecipeRepo struct {
	recipes map[string]*domain.Recipe
	saveErr error
}

func newFakeRecipeRepo(recipes ...domain.Recipe) *fakeRecipeRepo {
	f := &fakeRecipeRepo{recipes: make(map[string]*domain.Recipe)}
	for i := range recipes {
		r := recipes[i]
		f.recipes[r.ID] = &r
	}
	return f
}

func (f *fakeRecipeRepo) Save(ctx context.Context, recipe *domain.Recipe) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := *recipe
	f.recipes[cp.ID] = &cp
	return nil
}

func (f *fakeRecipeRepo) FindByID(ctx context.Context, id string) (*domain.Recipe, error) {
	return f.recipes[id], nil
}

func (f *fakeRecipeRepo) FindAll(ctx context.Context) ([]*domain.Recipe, error) {
	out := make([]*domain.Recipe, 0, len(f.recipes))
	for _, r := range f.recipes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRecipeRepo) Delete(ctx context.Context, id string) error {
	delete(f.recipes, id)
	return nil
}

type recordKey struct {
	date   domain.Date
	itemID int64
}

type fakeRecordRepo struct {
	mu         sync.Mutex
	records    map[recordKey]*domain.DailyRecord
	insertErr  error
	replaceErr error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[recordKey]*domain.DailyRecord)}
}

func (f *fakeRecordRepo) Insert(ctx context.Context, record *domain.DailyRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	key := recordKey{record.Date, record.ItemID}
	if _, exists := f.records[key]; exists {
		return domain.ErrRecordExists
	}
	cp := *record
	f.records[key] = &cp
	return nil
}

func (f *fakeRecordRepo) Replace(ctx context.Context, record *domain.DailyRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	cp := *record
	f.records[recordKey{record.Date, record.ItemID}] = &cp
	return nil
}

func (f *fakeRecordRepo) FindOne(ctx context.Context, date domain.Date, itemID int64) (*domain.DailyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[recordKey{date, itemID}], nil
}

func (f *fakeRecordRepo) FindByRange(ctx context.Context, r domain.DateRange) ([]*domain.DailyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.DailyRecord
	for _, rec := range f.records {
		if r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

func (f *fakeRecordRepo) Delete(ctx context.Context, date domain.Date, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, recordKey{date, itemID})
	return nil
}

// fakeRolloverUoW writes to the fake repos, failing for the named items
type fakeRolloverUoW struct {
	inventory *fakeInventoryRepo
	records   *fakeRecordRepo
	failFor   map[string]error
}

func (u *fakeRolloverUoW) ArchiveAndReset(ctx context.Context, record *domain.DailyRecord, item *domain.InventoryItem) error {
	if err := u.failFor[item.Name]; err != nil {
		return err
	}
	u.records.mu.Lock()
	key := recordKey{record.Date, record.ItemID}
	if existing, ok := u.records.records[key]; ok && existing.Source == domain.SourceAutosave {
		delete(u.records.records, key)
	}
	u.records.mu.Unlock()

	if err := u.records.Insert(ctx, record); err != nil {
		return err
	}
	return u.inventory.Save(ctx, item)
}

type countingObserver struct {
	mu       sync.Mutex
	started  int
	finished []time.Time
	aborted  int
}

func (o *countingObserver) NotifyConsumptionAborted() {
	o.mu.Lock()
	o.aborted++
	o.mu.Unlock()
}

func (o *countingObserver) NotifyConsumptionStarted() {
	o.mu.Lock()
	o.started++
	o.mu.Unlock()
}

func (o *countingObserver) NotifyConsumptionFinished(at time.Time) {
	o.mu.Lock()
	o.finished = append(o.finished, at)
	o.mu.Unlock()
}
