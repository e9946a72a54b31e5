package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/lotes-api/internal/metrics"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/pkg/logger"
)

// ScheduleService generates and regenerates installment schedules
type ScheduleService struct {
	repos    *repository.Repositories
	clock    Clock
	metrics  *metrics.Metrics
	auditSvc *AuditService
	notify   func()
}

// NewScheduleService creates a new schedule service
func NewScheduleService(repos *repository.Repositories, clock Clock, m *metrics.Metrics, auditSvc *AuditService, notify func()) *ScheduleService {
	return &ScheduleService{repos: repos, clock: clock, metrics: m, auditSvc: auditSvc, notify: notify}
}

// BuildSchedule computes the installments of a sale without persisting them.
// Whole-unit base amounts are used for 1..N-1 and installment N takes the remainder.
func BuildSchedule(sale *models.Sale, today time.Time) []models.Installment {
	remaining := sale.FinancedAmount()
	n := sale.FinancingMonths
	if n < 1 || !remaining.IsPositive() {
		return nil
	}

	base := remaining.Div(decimal.NewFromInt(int64(n))).Floor()
	last := remaining.Sub(base.Mul(decimal.NewFromInt(int64(n - 1))))
	start := sale.ScheduleStart()

	installments := make([]models.Installment, 0, n)
	for i := 1; i <= n; i++ {
		amount := base
		if i == n {
			amount = last
		}
		inst := models.Installment{
			SaleID:            sale.ID,
			InstallmentNumber: i,
			OriginalAmount:    amount,
			ScheduledAmount:   amount,
			PaidAmount:        decimal.Zero,
			DueDate:           models.MonthlyDueDate(start, i-1, sale.PaymentDay),
		}
		inst.RecomputeStatus(today)
		installments = append(installments, inst)
	}
	return installments
}

// GenerateSchedule creates the schedule of a sale in its own transaction.
// Existing installments are returned unchanged.
func (s *ScheduleService) GenerateSchedule(ctx context.Context, sale *models.Sale) ([]models.Installment, error) {
	var installments []models.Installment
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		installments, err = s.generate(ctx, tx, sale)
		return err
	})
	return installments, err
}

func (s *ScheduleService) generate(ctx context.Context, tx *repository.Repositories, sale *models.Sale) ([]models.Installment, error) {
	existing, err := tx.Installment.FindBySale(ctx, sale.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	installments := BuildSchedule(sale, today(s.clock))
	if len(installments) == 0 {
		logger.Info("sale fully paid up front, no schedule generated", "sale_id", sale.ID)
		return []models.Installment{}, nil
	}

	if err := tx.Installment.CreateBatch(ctx, installments); err != nil {
		return nil, fmt.Errorf("failed to create installments: %w", err)
	}
	s.metrics.InstallmentsGenerated.Add(float64(len(installments)))
	logger.Info("schedule generated", "sale_id", sale.ID, "installments", len(installments))
	return installments, nil
}

// RegenerateSchedule drops and rebuilds the schedule of an active sale that has no money applied yet
func (s *ScheduleService) RegenerateSchedule(ctx context.Context, saleID uint, actor Actor) ([]models.Installment, error) {
	var installments []models.Installment
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		sale, err := tx.Sale.FindByID(ctx, saleID)
		if err != nil {
			return translateRepoError(err, "venta")
		}
		if !sale.IsActive() {
			return ErrSaleNotActive
		}
		installments, err = s.regenerate(ctx, tx, sale)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionRegenerate, "Sale", saleID,
		fmt.Sprintf("Plan de pagos regenerado con %d cuotas", len(installments)))
	s.changed()
	return installments, nil
}

func (s *ScheduleService) regenerate(ctx context.Context, tx *repository.Repositories, sale *models.Sale) ([]models.Installment, error) {
	hasPayments, err := tx.Installment.HasPaymentsBySale(ctx, sale.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check payments: %w", err)
	}
	if hasPayments {
		return nil, ErrScheduleHasPayments
	}

	if err := tx.Installment.DeleteBySale(ctx, sale.ID); err != nil {
		return nil, fmt.Errorf("failed to delete schedule: %w", err)
	}
	return s.generate(ctx, tx, sale)
}

func (s *ScheduleService) changed() {
	if s.notify != nil {
		s.notify()
	}
}
