package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/lotes-api/internal/metrics"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/pkg/logger"
)

// RegisterPaymentInput is one payment toward an installment
type RegisterPaymentInput struct {
	Amount        decimal.Decimal `json:"amount" validate:"required,gt=0"`
	PaymentDate   *time.Time      `json:"payment_date"`
	Method        string          `json:"method" validate:"omitempty,oneof=efectivo transferencia tarjeta otro"`
	ReceiptNumber string          `json:"receipt_number" validate:"max=100"`
	ReceiptDate   *time.Time      `json:"receipt_date"`
	Notes         string          `json:"notes" validate:"max=1000"`
}

// InitialPaymentInput is one payment toward the initial payment of a sale
type InitialPaymentInput struct {
	Amount        decimal.Decimal `json:"amount" validate:"required,gt=0"`
	PaymentDate   *time.Time      `json:"payment_date"`
	Method        string          `json:"method" validate:"omitempty,oneof=efectivo transferencia tarjeta otro"`
	ReceiptNumber string          `json:"receipt_number" validate:"max=100"`
	ReceiptDate   *time.Time      `json:"receipt_date"`
	Notes         string          `json:"notes" validate:"max=1000"`
}

// PaymentService records money against installments and sales
type PaymentService struct {
	repos    *repository.Repositories
	auditSvc *AuditService
	clock    Clock
	metrics  *metrics.Metrics
	notify   func()
}

// NewPaymentService creates a new payment service
func NewPaymentService(repos *repository.Repositories, auditSvc *AuditService, clock Clock, m *metrics.Metrics, notify func()) *PaymentService {
	return &PaymentService{repos: repos, auditSvc: auditSvc, clock: clock, metrics: m, notify: notify}
}

// GetPayment returns one payment
func (s *PaymentService) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	payment, err := s.repos.Payment.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "pago")
	}
	return payment, nil
}

// ListPayments returns a page of payments
func (s *PaymentService) ListPayments(ctx context.Context, query *repository.PaymentQuery) ([]models.Payment, int64, error) {
	return s.repos.Payment.List(ctx, query)
}

// RegisterPayment applies a payment to an installment.
// paid_amount is recomputed from all payments; overpayment is accepted.
func (s *PaymentService) RegisterPayment(ctx context.Context, installmentID uint, input RegisterPaymentInput, actor Actor) (*models.Installment, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var inst *models.Installment
	var payment *models.Payment
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		inst, err = tx.Installment.FindByID(ctx, installmentID)
		if err != nil {
			return translateRepoError(err, "cuota")
		}
		if err := requireActiveSale(ctx, tx, inst.SaleID); err != nil {
			return err
		}
		if inst.IsForgiven {
			return ErrInstallmentForgiven
		}

		payment = &models.Payment{
			SaleID:        inst.SaleID,
			InstallmentID: &inst.ID,
			Amount:        input.Amount,
			PaymentDate:   s.dateOrToday(input.PaymentDate),
			Method:        methodOrDefault(input.Method),
			PaymentType:   models.PaymentTypeInstallment,
			ReceiptNumber: optionalString(input.ReceiptNumber),
			ReceiptDate:   optionalDate(input.ReceiptDate),
			Notes:         strings.TrimSpace(input.Notes),
			RecordedByID:  actor.userIDPtr(),
		}
		if err := tx.Payment.Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		if err := s.syncFromPayments(ctx, tx, inst); err != nil {
			return err
		}
		if input.Notes != "" {
			inst.AppendNote(s.clock.Now(), "Pago: "+strings.TrimSpace(input.Notes))
		}
		if err := tx.Installment.Update(ctx, inst); err != nil {
			return fmt.Errorf("failed to update installment: %w", err)
		}

		return tx.Ledger.Create(ctx, &models.SaleLedgerEntry{
			SaleID:        inst.SaleID,
			PaymentID:     &payment.ID,
			InstallmentID: &inst.ID,
			Amount:        input.Amount.Neg(),
			Description:   fmt.Sprintf("Pago de cuota #%d", inst.InstallmentNumber),
			EntryType:     models.EntryTypePayment,
			EntryDate:     payment.PaymentDate,
		})
	})
	if err != nil {
		return nil, err
	}

	amount, _ := input.Amount.Float64()
	s.metrics.ObservePayment(models.PaymentTypeInstallment, amount)
	logger.Info("payment registered", "sale_id", inst.SaleID, "installment_id", inst.ID, "payment_id", payment.ID, "amount", input.Amount.StringFixed(2))
	s.auditSvc.Log(ctx, actor, models.AuditActionPayment, "Installment", inst.ID,
		fmt.Sprintf("Pago de %s registrado en cuota #%d (venta %d)", input.Amount.StringFixed(2), inst.InstallmentNumber, inst.SaleID))
	s.changed()
	return inst, nil
}

// syncFromPayments sets paid_amount to the sum of the installment's payments and copies the latest receipt
func (s *PaymentService) syncFromPayments(ctx context.Context, tx *repository.Repositories, inst *models.Installment) error {
	payments, err := tx.Payment.FindByInstallment(ctx, inst.ID)
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}

	paid := decimal.Zero
	for i := range payments {
		paid = paid.Add(payments[i].Amount)
	}
	inst.PaidAmount = paid

	if n := len(payments); n > 0 {
		latest := payments[n-1]
		date := latest.PaymentDate
		method := latest.Method
		inst.PaymentDate = &date
		inst.PaymentMethod = &method
		inst.ReceiptNumber = latest.ReceiptNumber
		inst.ReceiptDate = latest.ReceiptDate
	} else {
		inst.ClearReceipt()
	}

	inst.RecomputeStatus(today(s.clock))
	return nil
}

// Forgive waives the rest of an installment
func (s *PaymentService) Forgive(ctx context.Context, installmentID uint, notes string, actor Actor) (*models.Installment, error) {
	var inst *models.Installment
	var waived decimal.Decimal
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		inst, err = tx.Installment.FindByID(ctx, installmentID)
		if err != nil {
			return translateRepoError(err, "cuota")
		}
		if inst.IsForgiven {
			return ErrAlreadyForgiven
		}
		if err := requireActiveSale(ctx, tx, inst.SaleID); err != nil {
			return err
		}

		waived = inst.RemainingAmount()
		now := s.clock.Now()
		inst.IsForgiven = true
		inst.PaidAmount = inst.ScheduledAmount
		if inst.PaymentDate == nil {
			day := today(s.clock)
			inst.PaymentDate = &day
		}
		note := "Cuota condonada"
		if notes = strings.TrimSpace(notes); notes != "" {
			note += ": " + notes
		}
		inst.AppendNote(now, note)
		inst.RecomputeStatus(today(s.clock))

		if err := tx.Installment.Update(ctx, inst); err != nil {
			return fmt.Errorf("failed to update installment: %w", err)
		}
		if !waived.IsPositive() {
			return nil
		}
		return tx.Ledger.Create(ctx, &models.SaleLedgerEntry{
			SaleID:        inst.SaleID,
			InstallmentID: &inst.ID,
			Amount:        waived.Neg(),
			Description:   fmt.Sprintf("Condonación de cuota #%d", inst.InstallmentNumber),
			EntryType:     models.EntryTypeForgiveness,
			EntryDate:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionForgive, "Installment", inst.ID,
		fmt.Sprintf("Cuota #%d condonada por %s (venta %d)", inst.InstallmentNumber, waived.StringFixed(2), inst.SaleID))
	s.changed()
	return inst, nil
}

// ResetPayment rolls an installment back to unpaid.
// Every payment on the installment is removed, not only paymentID, and forgiveness is undone.
func (s *PaymentService) ResetPayment(ctx context.Context, installmentID, paymentID uint, actor Actor) (*models.Installment, error) {
	var inst *models.Installment
	var reversed decimal.Decimal
	var removed int64
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		inst, err = tx.Installment.FindByID(ctx, installmentID)
		if err != nil {
			return translateRepoError(err, "cuota")
		}
		payment, err := tx.Payment.FindByID(ctx, paymentID)
		if err != nil {
			return translateRepoError(err, "pago")
		}
		if payment.InstallmentID == nil || *payment.InstallmentID != inst.ID {
			return ErrPaymentMismatch
		}
		if err := requireActiveSale(ctx, tx, inst.SaleID); err != nil {
			return err
		}

		// Credits previously written for this installment: its payments plus any forgiven remainder
		reversed = inst.PaidAmount
		removed, err = tx.Payment.DeleteByInstallment(ctx, inst.ID)
		if err != nil {
			return fmt.Errorf("failed to delete payments: %w", err)
		}

		now := s.clock.Now()
		inst.PaidAmount = decimal.Zero
		inst.IsForgiven = false
		inst.ClearReceipt()
		inst.AppendNote(now, fmt.Sprintf("Pagos reiniciados (%d eliminados, %s revertidos)", removed, reversed.StringFixed(2)))
		inst.RecomputeStatus(today(s.clock))
		if err := tx.Installment.Update(ctx, inst); err != nil {
			return fmt.Errorf("failed to update installment: %w", err)
		}

		if !reversed.IsPositive() {
			return nil
		}
		return tx.Ledger.Create(ctx, &models.SaleLedgerEntry{
			SaleID:        inst.SaleID,
			InstallmentID: &inst.ID,
			Amount:        reversed,
			Description:   fmt.Sprintf("Reversión de pagos de cuota #%d", inst.InstallmentNumber),
			EntryType:     models.EntryTypeReversal,
			EntryDate:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("installment payments reset", "sale_id", inst.SaleID, "installment_id", inst.ID, "payments_removed", removed)
	s.auditSvc.Log(ctx, actor, models.AuditActionReset, "Installment", inst.ID,
		fmt.Sprintf("Pagos de cuota #%d reiniciados: %d pagos, %s revertidos", inst.InstallmentNumber, removed, reversed.StringFixed(2)))
	s.changed()
	return inst, nil
}

// RegisterInitialPayment records money toward the initial payment of a sale
func (s *PaymentService) RegisterInitialPayment(ctx context.Context, saleID uint, input InitialPaymentInput, actor Actor) (*models.Payment, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var payment *models.Payment
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		sale, err := tx.Sale.FindByID(ctx, saleID)
		if err != nil {
			return translateRepoError(err, "venta")
		}
		if !sale.IsActive() {
			return ErrSaleNotActive
		}

		previous, err := tx.Payment.FindInitialBySale(ctx, saleID)
		if err != nil {
			return fmt.Errorf("failed to load initial payments: %w", err)
		}
		status := sale.ComputeInitialPaymentStatus(previous)
		if status.TotalInitialPayments.Add(input.Amount).GreaterThan(sale.InitialPayment) {
			return fmt.Errorf("%w: saldo de prima %s", ErrInitialPaymentExceeded, status.InitialPaymentBalance.StringFixed(2))
		}

		payment = &models.Payment{
			SaleID:        saleID,
			Amount:        input.Amount,
			PaymentDate:   s.dateOrToday(input.PaymentDate),
			Method:        methodOrDefault(input.Method),
			PaymentType:   models.PaymentTypeInitial,
			ReceiptNumber: optionalString(input.ReceiptNumber),
			ReceiptDate:   optionalDate(input.ReceiptDate),
			Notes:         strings.TrimSpace(input.Notes),
			RecordedByID:  actor.userIDPtr(),
		}
		if err := tx.Payment.Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		return tx.Ledger.Create(ctx, &models.SaleLedgerEntry{
			SaleID:      saleID,
			PaymentID:   &payment.ID,
			Amount:      input.Amount.Neg(),
			Description: "Pago de prima",
			EntryType:   models.EntryTypeInitialPayment,
			EntryDate:   payment.PaymentDate,
		})
	})
	if err != nil {
		return nil, err
	}

	amount, _ := input.Amount.Float64()
	s.metrics.ObservePayment(models.PaymentTypeInitial, amount)
	s.auditSvc.Log(ctx, actor, models.AuditActionPayment, "Sale", saleID,
		fmt.Sprintf("Pago de prima de %s registrado", input.Amount.StringFixed(2)))
	s.changed()
	return payment, nil
}

// MarkOverdue moves pending installments of active sales past their due date to overdue
func (s *PaymentService) MarkOverdue(ctx context.Context, day time.Time) (int64, error) {
	n, err := s.repos.Installment.MarkOverdue(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue installments: %w", err)
	}

	s.metrics.InstallmentsMarkedOverdue.Add(float64(n))
	if n > 0 {
		logger.Info("installments marked overdue", "count", n, "as_of", models.DateOnly(day).Format(models.DateLayout))
		s.auditSvc.Log(ctx, SystemActor, models.AuditActionOverdueSweep, "Installment", 0,
			fmt.Sprintf("%d cuotas marcadas como vencidas", n))
		s.changed()
	}
	return n, nil
}

// MarkOverdueToday runs the sweep for the current day
func (s *PaymentService) MarkOverdueToday(ctx context.Context) (int64, error) {
	return s.MarkOverdue(ctx, today(s.clock))
}

func (s *PaymentService) dateOrToday(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return today(s.clock)
	}
	return models.DateOnly(*t)
}

func (s *PaymentService) changed() {
	if s.notify != nil {
		s.notify()
	}
}

func requireActiveSale(ctx context.Context, tx *repository.Repositories, saleID uint) error {
	sale, err := tx.Sale.FindByID(ctx, saleID)
	if err != nil {
		return translateRepoError(err, "venta")
	}
	if !sale.IsActive() {
		return ErrSaleNotActive
	}
	return nil
}

func methodOrDefault(method string) string {
	if method == "" {
		return models.PaymentMethodTransfer
	}
	return method
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := models.DateOnly(*t)
	return &d
}
