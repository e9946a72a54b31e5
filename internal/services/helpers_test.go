package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/lotes-api/internal/config"
	"github.com/sjperalta/lotes-api/internal/database/dbtest"
	"github.com/sjperalta/lotes-api/internal/jobs"
	"github.com/sjperalta/lotes-api/internal/metrics"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, time.January, 1, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	db      *gorm.DB
	repos   *repository.Repositories
	svc     *Services
	metrics *metrics.Metrics
	actor   Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.NewDB(t)
	repos := repository.NewRepositories(db)
	m := metrics.New()
	worker := jobs.NewWorker(1, m)
	t.Cleanup(worker.Shutdown)

	cfg := &config.Config{DashboardCacheTTL: time.Minute}
	svc := NewServices(repos, worker, m, NoopCache{}, config.DefaultFinancingPolicy(), cfg, FixedClock{At: testNow})

	return &testEnv{
		db:      db,
		repos:   repos,
		svc:     svc,
		metrics: m,
		actor:   Actor{UserID: 7, IP: "127.0.0.1", UserAgent: "test"},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (e *testEnv) createLot(t *testing.T, block, number, price string) *models.Lot {
	t.Helper()
	lot, err := e.svc.Lot.CreateLot(context.Background(), CreateLotInput{
		Block:     block,
		LotNumber: number,
		Area:      dec("250"),
		Price:     dec(price),
	}, e.actor)
	require.NoError(t, err)
	return lot
}

func (e *testEnv) createCustomer(t *testing.T, first, last string) *models.Customer {
	t.Helper()
	customer, err := e.svc.Customer.CreateCustomer(context.Background(), CustomerInput{
		FirstName: first,
		LastName:  last,
	}, e.actor)
	require.NoError(t, err)
	return customer
}

// createSale opens a 12000 sale with 2000 down over the given number of months, payment day 15
func (e *testEnv) createSale(t *testing.T, months int) *models.Sale {
	t.Helper()
	lot := e.createLot(t, "A", "1", "12000")
	customer := e.createCustomer(t, "María", "Gómez")

	sale, err := e.svc.Sale.CreateSale(context.Background(), CreateSaleInput{
		LotID:           lot.ID,
		CustomerID:      customer.ID,
		InitialPayment:  dec("2000"),
		FinancingMonths: months,
		PaymentDay:      15,
	}, e.actor)
	require.NoError(t, err)
	return sale
}

func (e *testEnv) schedule(t *testing.T, saleID uint) []models.Installment {
	t.Helper()
	installments, err := e.repos.Installment.FindBySale(context.Background(), saleID)
	require.NoError(t, err)
	return installments
}

func amounts(installments []models.Installment) []string {
	out := make([]string, len(installments))
	for i := range installments {
		out[i] = installments[i].ScheduledAmount.StringFixed(2)
	}
	return out
}

func total(installments []models.Installment) decimal.Decimal {
	sum := decimal.Zero
	for i := range installments {
		sum = sum.Add(installments[i].ScheduledAmount)
	}
	return sum
}
