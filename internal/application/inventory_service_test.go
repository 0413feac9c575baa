package application

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/errors"
)

func newTestInventoryService(repo *fakeInventoryRepo) *InventoryApplicationService {
	return NewInventoryApplicationService(repo, &LedgerLock{}, nil, testLogger())
}

func TestInventoryApplicationService_CreateAndGet(t *testing.T) {
	repo := newFakeInventoryRepo(domain.InventoryItem{ID: 7, Name: "Salt"})
	svc := newTestInventoryService(repo)

	dto, err := svc.CreateItem(context.Background(), CreateItemCommand{
		Name:                     "Flour",
		PrimaryUnit:              domain.UnitKilogram,
		SecondaryUnit:            domain.SecondaryBag,
		QuantityPerSecondaryUnit: 50,
		MinimumQuantity:          20,
		Ledger:                   &domain.LedgerInputs{OpeningStockPrimary: 10, OpeningStockSecondary: 3},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(8), dto.ID)
	assert.Equal(t, 160.0, dto.OpeningStock)
	assert.Equal(t, 160.0, dto.CurrentStock)
	require.NotNil(t, dto.Split)
	assert.Equal(t, 3.0, dto.Split.BalanceSecondary)
	assert.False(t, dto.LowStock)

	got, err := svc.GetItem(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, "Flour", got.Name)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, domain.EventTypeItemCreated, repo.saved[0][0].EventType())
}

func TestInventoryApplicationService_CreateRejectsDuplicateName(t *testing.T) {
	svc := newTestInventoryService(newFakeInventoryRepo(domain.InventoryItem{ID: 1, Name: "Flour"}))

	_, err := svc.CreateItem(context.Background(), CreateItemCommand{Name: " FLOUR ", PrimaryUnit: domain.UnitKilogram})

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeConflict, appErr.Code)
}

func TestInventoryApplicationService_CreateValidation(t *testing.T) {
	svc := newTestInventoryService(newFakeInventoryRepo())

	_, err := svc.CreateItem(context.Background(), CreateItemCommand{Name: "Eggs", PrimaryUnit: domain.UnitCustom})

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidationError, appErr.Code)
	assert.ErrorIs(t, err, domain.ErrCustomUnitRequired)
}

func TestInventoryApplicationService_UpdateItem(t *testing.T) {
	repo := newFakeInventoryRepo(domain.InventoryItem{
		ID: 1, Name: "Sugar", PrimaryUnit: domain.UnitKilogram,
		SecondaryUnit: domain.SecondaryBag, QuantityPerSecondaryUnit: 25,
		OpeningStock: 50, OpeningStockSecondary: 2, MinimumQuantity: 30,
	})
	svc := newTestInventoryService(repo)

	dto, err := svc.UpdateItem(context.Background(), UpdateItemCommand{
		ID:                       1,
		Name:                     "Sugar",
		PrimaryUnit:              domain.UnitKilogram,
		SecondaryUnit:            domain.SecondaryBag,
		QuantityPerSecondaryUnit: 25,
		MinimumQuantity:          30,
		Ledger: domain.LedgerInputs{
			OpeningStockSecondary: 2,
			ReceivedPrimary:       5,
			ConsumedSecondary:     1,
			Consumed2Primary:      2,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 50.0, dto.OpeningStock)
	assert.Equal(t, 5.0, dto.Received)
	assert.Equal(t, 25.0, dto.Consumed)
	assert.Equal(t, 2.0, dto.Consumed2)
	assert.Equal(t, 28.0, dto.CurrentStock)
	assert.True(t, dto.LowStock)

	stored := repo.get(1)
	assert.Equal(t, 28.0, stored.FinalStock)

	last := repo.saved[len(repo.saved)-1]
	require.Len(t, last, 2)
	assert.Equal(t, domain.EventTypeLowStockDetected, last[1].EventType())
}

func TestInventoryApplicationService_UpdateNotFound(t *testing.T) {
	svc := newTestInventoryService(newFakeInventoryRepo())

	_, err := svc.UpdateItem(context.Background(), UpdateItemCommand{ID: 42, Name: "X", PrimaryUnit: domain.UnitPiece})

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeNotFound, appErr.Code)
}

func TestInventoryApplicationService_UpdatePersistenceFailure(t *testing.T) {
	repo := newFakeInventoryRepo(domain.InventoryItem{ID: 1, Name: "Milk", PrimaryUnit: domain.UnitLitre, OpeningStock: 10})
	repo.saveErr = stderrors.New("connection reset")
	svc := newTestInventoryService(repo)

	_, err := svc.UpdateItem(context.Background(), UpdateItemCommand{
		ID: 1, Name: "Milk", PrimaryUnit: domain.UnitLitre,
		Ledger: domain.LedgerInputs{OpeningStock: 99},
	})

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodePersistenceFailed, appErr.Code)
	assert.Equal(t, 10.0, repo.get(1).OpeningStock)
}

func TestInventoryApplicationService_ListLowStockAndDelete(t *testing.T) {
	repo := newFakeInventoryRepo(
		domain.InventoryItem{ID: 1, Name: "Flour", OpeningStock: 5, MinimumQuantity: 10},
		domain.InventoryItem{ID: 2, Name: "Sugar", OpeningStock: 50, MinimumQuantity: 10},
	)
	svc := newTestInventoryService(repo)
	ctx := context.Background()

	low, err := svc.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Flour", low[0].Name)

	all, err := svc.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, svc.DeleteItem(ctx, 1))
	assert.Nil(t, repo.get(1))

	err = svc.DeleteItem(ctx, 1)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeNotFound, appErr.Code)
}
