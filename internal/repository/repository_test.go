package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/lotes-api/internal/database/dbtest"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedSale(t *testing.T, repos *repository.Repositories, block, number, status string) (*models.Lot, *models.Sale) {
	t.Helper()
	ctx := context.Background()

	lot := &models.Lot{Block: block, LotNumber: number, Area: decimal.NewFromInt(200), Price: decimal.NewFromInt(12000), Status: models.LotStatusSold}
	require.NoError(t, repos.Lot.Create(ctx, lot))

	customer := &models.Customer{FirstName: "Ana", LastName: "Lopez " + block + number}
	require.NoError(t, repos.Customer.Create(ctx, customer))

	sale := &models.Sale{
		Reference:       block + "-" + number,
		LotID:           lot.ID,
		CustomerID:      customer.ID,
		Status:          status,
		SalePrice:       decimal.NewFromInt(12000),
		InitialPayment:  decimal.NewFromInt(2000),
		FinancingMonths: 2,
		PaymentDay:      10,
		SaleDate:        date(2024, time.January, 5),
	}
	require.NoError(t, repos.Sale.Create(ctx, sale))
	return lot, sale
}

func TestSaleRepository_OneActiveSalePerLot(t *testing.T) {
	repos := repository.NewRepositories(dbtest.NewDB(t))
	ctx := context.Background()

	lot, first := seedSale(t, repos, "A", "1", models.SaleStatusActive)

	second := &models.Sale{
		Reference:       "A-1-bis",
		LotID:           lot.ID,
		CustomerID:      first.CustomerID,
		Status:          models.SaleStatusActive,
		SalePrice:       decimal.NewFromInt(12000),
		FinancingMonths: 1,
		PaymentDay:      1,
		SaleDate:        date(2024, time.February, 1),
	}
	err := repos.Sale.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, repository.IsDuplicateKeyError(err, repository.ActiveSalePerLotIndex))

	// A cancelled sale on the same lot does not collide
	second.Status = models.SaleStatusCancelled
	second.ID = 0
	require.NoError(t, repos.Sale.Create(ctx, second))

	has, err := repos.Sale.HasActiveByLot(ctx, lot.ID, 0)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repos.Sale.HasActiveByLot(ctx, lot.ID, first.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestIsDuplicateKeyError_NamesTheViolatedIndex(t *testing.T) {
	repos := repository.NewRepositories(dbtest.NewDB(t))
	ctx := context.Background()

	doc := "0801-1990-00001"
	require.NoError(t, repos.Customer.Create(ctx, &models.Customer{FirstName: "Rosa", LastName: "Díaz", DocumentNumber: &doc}))
	err := repos.Customer.Create(ctx, &models.Customer{FirstName: "Otra", LastName: "Persona", DocumentNumber: &doc})
	require.Error(t, err)
	assert.True(t, repository.IsDuplicateKeyError(err, ""))
	assert.False(t, repository.IsDuplicateKeyError(err, repository.ActiveSalePerLotIndex))
	assert.False(t, repository.IsDuplicateKeyError(err, repository.LotBlockNumberIndex))

	lot := &models.Lot{Block: "B", LotNumber: "7", Area: decimal.NewFromInt(200), Price: decimal.NewFromInt(9000), Status: models.LotStatusAvailable}
	require.NoError(t, repos.Lot.Create(ctx, lot))
	err = repos.Lot.Create(ctx, &models.Lot{Block: "B", LotNumber: "7", Area: decimal.NewFromInt(200), Price: decimal.NewFromInt(9000), Status: models.LotStatusAvailable})
	require.Error(t, err)
	assert.True(t, repository.IsDuplicateKeyError(err, repository.LotBlockNumberIndex))
	assert.False(t, repository.IsDuplicateKeyError(err, repository.ActiveSalePerLotIndex))

	assert.False(t, repository.IsDuplicateKeyError(errors.New("connection refused"), ""))
	assert.False(t, repository.IsDuplicateKeyError(nil, ""))
}

func TestInstallmentRepository_MarkOverdueOnlyTouchesActiveSales(t *testing.T) {
	repos := repository.NewRepositories(dbtest.NewDB(t))
	ctx := context.Background()

	_, active := seedSale(t, repos, "B", "1", models.SaleStatusActive)
	_, suspended := seedSale(t, repos, "B", "2", models.SaleStatusSuspended)

	for _, sale := range []*models.Sale{active, suspended} {
		require.NoError(t, repos.Installment.CreateBatch(ctx, []models.Installment{
			{SaleID: sale.ID, InstallmentNumber: 1, OriginalAmount: decimal.NewFromInt(5000), ScheduledAmount: decimal.NewFromInt(5000), DueDate: date(2024, time.February, 10), Status: models.InstallmentStatusPending},
			{SaleID: sale.ID, InstallmentNumber: 2, OriginalAmount: decimal.NewFromInt(5000), ScheduledAmount: decimal.NewFromInt(5000), DueDate: date(2024, time.March, 10), Status: models.InstallmentStatusPending},
		}))
	}

	n, err := repos.Installment.MarkOverdue(ctx, date(2024, time.March, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	installments, err := repos.Installment.FindBySale(ctx, active.ID)
	require.NoError(t, err)
	require.Len(t, installments, 2)
	assert.Equal(t, models.InstallmentStatusOverdue, installments[0].Status)
	assert.Equal(t, models.InstallmentStatusPending, installments[1].Status)

	untouched, err := repos.Installment.FindBySale(ctx, suspended.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPending, untouched[0].Status)

	count, err := repos.Installment.CountOverdueForActiveSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepositories_TransactionRollsBack(t *testing.T) {
	repos := repository.NewRepositories(dbtest.NewDB(t))
	ctx := context.Background()
	boom := errors.New("boom")

	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		lot := &models.Lot{Block: "C", LotNumber: "1", Area: decimal.NewFromInt(100), Price: decimal.NewFromInt(1000)}
		require.NoError(t, tx.Lot.Create(ctx, lot))
		return boom
	})
	require.ErrorIs(t, err, boom)

	lots, total, err := repos.Lot.List(ctx, &repository.LotQuery{ListQuery: repository.NewListQuery()})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, lots)
}

func TestRepositories_NestedTransactionIsolatesInnerFailure(t *testing.T) {
	repos := repository.NewRepositories(dbtest.NewDB(t))
	ctx := context.Background()

	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		outer := &models.Lot{Block: "D", LotNumber: "1", Area: decimal.NewFromInt(100), Price: decimal.NewFromInt(1000)}
		if err := tx.Lot.Create(ctx, outer); err != nil {
			return err
		}
		inner := tx.Transaction(ctx, func(inner *repository.Repositories) error {
			lot := &models.Lot{Block: "D", LotNumber: "2", Area: decimal.NewFromInt(100), Price: decimal.NewFromInt(1000)}
			if err := inner.Lot.Create(ctx, lot); err != nil {
				return err
			}
			return errors.New("inner failure")
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)

	_, total, err := repos.Lot.List(ctx, &repository.LotQuery{ListQuery: repository.NewListQuery(), Block: "D"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestLedgerRepository_CalculateBalance(t *testing.T) {
	repos := repository.NewRepositories(dbtest.NewDB(t))
	ctx := context.Background()
	_, sale := seedSale(t, repos, "E", "1", models.SaleStatusActive)

	entries := []models.SaleLedgerEntry{
		{SaleID: sale.ID, Amount: decimal.NewFromInt(12000), Description: "Venta", EntryType: models.EntryTypeSale, EntryDate: date(2024, time.January, 5)},
		{SaleID: sale.ID, Amount: decimal.RequireFromString("-2000.50"), Description: "Prima", EntryType: models.EntryTypeInitialPayment, EntryDate: date(2024, time.January, 6)},
	}
	for i := range entries {
		require.NoError(t, repos.Ledger.Create(ctx, &entries[i]))
	}

	balance, err := repos.Ledger.CalculateBalance(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("9999.50")), balance.String())
}

func TestDashboardRepository_GetCounts(t *testing.T) {
	repos := repository.NewRepositories(dbtest.NewDB(t))
	ctx := context.Background()

	seedSale(t, repos, "F", "1", models.SaleStatusActive)
	require.NoError(t, repos.Lot.Create(ctx, &models.Lot{Block: "F", LotNumber: "2", Area: decimal.NewFromInt(90), Price: decimal.NewFromInt(900), Status: models.LotStatusAvailable}))

	counts, err := repos.Dashboard.GetCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.TotalCustomers)
	assert.Equal(t, int64(2), counts.TotalLots)
	assert.Equal(t, int64(1), counts.AvailableLots)
	assert.Equal(t, int64(1), counts.SoldLots)
	assert.Equal(t, int64(1), counts.ActiveSales)
	assert.Zero(t, counts.OverdueInstallments)
}

func TestLotRepository_ListSearchAndSort(t *testing.T) {
	repos := repository.NewRepositories(dbtest.NewDB(t))
	ctx := context.Background()

	require.NoError(t, repos.Lot.CreateBatch(ctx, []models.Lot{
		{Block: "G", LotNumber: "3", Area: decimal.NewFromInt(100), Price: decimal.NewFromInt(3000), Status: models.LotStatusAvailable},
		{Block: "G", LotNumber: "1", Area: decimal.NewFromInt(100), Price: decimal.NewFromInt(1000), Status: models.LotStatusAvailable},
		{Block: "H", LotNumber: "1", Area: decimal.NewFromInt(100), Price: decimal.NewFromInt(2000), Status: models.LotStatusReserved},
	}))

	q := &repository.LotQuery{ListQuery: repository.NewListQuery(), Block: "G"}
	lots, total, err := repos.Lot.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, lots, 2)
	assert.Equal(t, "1", lots[0].LotNumber)

	q = &repository.LotQuery{ListQuery: repository.NewListQuery()}
	q.SortBy, q.SortDir = "price", "desc"
	lots, _, err = repos.Lot.List(ctx, q)
	require.NoError(t, err)
	assert.True(t, lots[0].Price.Equal(decimal.NewFromInt(3000)))

	q = &repository.LotQuery{ListQuery: repository.NewListQuery(), Status: models.LotStatusReserved}
	_, total, err = repos.Lot.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
