package handlers

import (
	"context"
	"time"

	"github.com/sjperalta/lotes-api/internal/jobs"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/internal/services"
)

// The handlers depend on these narrow views of the services so tests can swap in fakes.

type LotService interface {
	GetLot(ctx context.Context, id uint) (*models.Lot, error)
	ListLots(ctx context.Context, query *repository.LotQuery) ([]models.Lot, int64, error)
	CreateLot(ctx context.Context, input services.CreateLotInput, actor services.Actor) (*models.Lot, error)
	BulkCreateLots(ctx context.Context, inputs []services.CreateLotInput, actor services.Actor) ([]models.Lot, error)
	UpdateLot(ctx context.Context, id uint, input services.UpdateLotInput, actor services.Actor) (*models.Lot, error)
	DeleteLot(ctx context.Context, id uint, actor services.Actor) error
}

type CustomerService interface {
	GetCustomer(ctx context.Context, id uint) (*models.Customer, error)
	ListCustomers(ctx context.Context, query *repository.ListQuery) ([]models.Customer, int64, error)
	CreateCustomer(ctx context.Context, input services.CustomerInput, actor services.Actor) (*models.Customer, error)
	BulkCreateCustomers(ctx context.Context, inputs []services.CustomerInput, actor services.Actor) ([]models.Customer, error)
	UpdateCustomer(ctx context.Context, id uint, input services.CustomerInput, actor services.Actor) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id uint, actor services.Actor) error
}

type SaleService interface {
	CreateSale(ctx context.Context, input services.CreateSaleInput, actor services.Actor) (*models.Sale, error)
	CancelSale(ctx context.Context, saleID uint, reason string, actor services.Actor) (*models.Sale, error)
	CompleteSale(ctx context.Context, saleID uint, notes string, actor services.Actor) (*models.Sale, error)
	SuspendSale(ctx context.Context, saleID uint, notes string, actor services.Actor) (*models.Sale, error)
	ResumeSale(ctx context.Context, saleID uint, actor services.Actor) (*models.Sale, error)
	UpdateTerms(ctx context.Context, saleID uint, input services.UpdateTermsInput, actor services.Actor) (*models.Sale, error)
	GetSale(ctx context.Context, id uint) (*models.Sale, error)
	ListSales(ctx context.Context, query *repository.SaleQuery) ([]models.Sale, int64, error)
	SalesByLot(ctx context.Context, lotID uint) ([]models.Sale, error)
	ActiveSaleForLot(ctx context.Context, lotID uint) (*models.Sale, error)
	Schedule(ctx context.Context, saleID uint) ([]models.Installment, error)
	PlanStatus(ctx context.Context, saleID uint) (services.PlanStatus, error)
	Ledger(ctx context.Context, saleID uint) (*services.LedgerView, error)
}

type ScheduleService interface {
	RegenerateSchedule(ctx context.Context, saleID uint, actor services.Actor) ([]models.Installment, error)
}

type InstallmentService interface {
	GetInstallment(ctx context.Context, id uint) (*models.Installment, error)
	ModifyAmount(ctx context.Context, installmentID uint, input services.ModifyAmountInput, actor services.Actor) ([]models.Installment, error)
	BulkModifyAmounts(ctx context.Context, saleID uint, input services.BulkModifyInput, actor services.Actor) ([]models.Installment, error)
}

type PaymentService interface {
	GetPayment(ctx context.Context, id uint) (*models.Payment, error)
	ListPayments(ctx context.Context, query *repository.PaymentQuery) ([]models.Payment, int64, error)
	RegisterPayment(ctx context.Context, installmentID uint, input services.RegisterPaymentInput, actor services.Actor) (*models.Installment, error)
	Forgive(ctx context.Context, installmentID uint, notes string, actor services.Actor) (*models.Installment, error)
	ResetPayment(ctx context.Context, installmentID, paymentID uint, actor services.Actor) (*models.Installment, error)
	RegisterInitialPayment(ctx context.Context, saleID uint, input services.InitialPaymentInput, actor services.Actor) (*models.Payment, error)
}

type DashboardService interface {
	Summary(ctx context.Context) (*services.DashboardSummary, error)
}

type AuditService interface {
	List(ctx context.Context, query *repository.AuditQuery) ([]models.AuditLog, int64, error)
}

type JobService interface {
	MarkOverdueNow(ctx context.Context) (int64, error)
	GetStatus() jobs.WorkerStats
}

// Handlers holds all handler instances
type Handlers struct {
	Health      *HealthHandler
	Lot         *LotHandler
	Customer    *CustomerHandler
	Sale        *SaleHandler
	Installment *InstallmentHandler
	Payment     *PaymentHandler
	Dashboard   *DashboardHandler
	Audit       *AuditHandler
	Job         *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, clock services.Clock) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(),
		Lot:         NewLotHandler(svcs.Lot, svcs.Sale),
		Customer:    NewCustomerHandler(svcs.Customer, svcs.Sale),
		Sale:        NewSaleHandler(svcs.Sale, svcs.Schedule, svcs.Installment, svcs.Payment, clock),
		Installment: NewInstallmentHandler(svcs.Installment, svcs.Payment, clock),
		Payment:     NewPaymentHandler(svcs.Payment),
		Dashboard:   NewDashboardHandler(svcs.Dashboard),
		Audit:       NewAuditHandler(svcs.Audit),
		Job:         NewJobHandler(svcs.Job),
	}
}

// dateParam is a YYYY-MM-DD date in request bodies
type dateParam string

func (d *dateParam) time() (*time.Time, error) {
	if d == nil || *d == "" {
		return nil, nil
	}
	t, err := models.ParseDate(string(*d))
	if err != nil {
		return nil, err
	}
	return &t, nil
}
