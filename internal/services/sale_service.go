package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/lotes-api/internal/config"
	"github.com/sjperalta/lotes-api/internal/metrics"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/internal/statemachine"
	"github.com/sjperalta/lotes-api/pkg/logger"
)

// CreateSaleInput opens a sale on a lot.
// Zero SalePrice takes the lot price; zero FinancingMonths and PaymentDay take the policy defaults.
type CreateSaleInput struct {
	LotID             uint            `json:"lot_id" validate:"required"`
	CustomerID        uint            `json:"customer_id" validate:"required"`
	SalePrice         decimal.Decimal `json:"sale_price" validate:"gte=0"`
	InitialPayment    decimal.Decimal `json:"initial_payment" validate:"gte=0"`
	FinancingMonths   int             `json:"financing_months" validate:"gte=0"`
	PaymentDay        int             `json:"payment_day" validate:"gte=0,lte=31"`
	SaleDate          *time.Time      `json:"sale_date"`
	ScheduleStartDate *time.Time      `json:"schedule_start_date"`
	ContractDate      *time.Time      `json:"contract_date"`
	Notes             string          `json:"notes" validate:"max=2000"`
}

// UpdateTermsInput changes the financial terms of an active sale. Nil fields are left as they are.
type UpdateTermsInput struct {
	SalePrice         *decimal.Decimal `json:"sale_price" validate:"omitempty,gt=0"`
	InitialPayment    *decimal.Decimal `json:"initial_payment" validate:"omitempty,gte=0"`
	FinancingMonths   *int             `json:"financing_months" validate:"omitempty,gte=1"`
	PaymentDay        *int             `json:"payment_day" validate:"omitempty,gte=1,lte=31"`
	ScheduleStartDate *time.Time       `json:"schedule_start_date"`
	Notes             string           `json:"notes" validate:"max=2000"`
}

// LedgerView is the money trail of a sale
type LedgerView struct {
	Entries []models.SaleLedgerEntry `json:"entries"`
	Balance decimal.Decimal          `json:"balance"`
}

// SaleService orchestrates the sale lifecycle, its schedule and the lot status
type SaleService struct {
	repos          *repository.Repositories
	schedule       *ScheduleService
	redistribution *RedistributionService
	auditSvc       *AuditService
	clock          Clock
	metrics        *metrics.Metrics
	policy         config.FinancingPolicy
	notify         func()
}

func NewSaleService(
	repos *repository.Repositories,
	schedule *ScheduleService,
	redistribution *RedistributionService,
	auditSvc *AuditService,
	clock Clock,
	m *metrics.Metrics,
	policy config.FinancingPolicy,
	notify func(),
) *SaleService {
	return &SaleService{
		repos:          repos,
		schedule:       schedule,
		redistribution: redistribution,
		auditSvc:       auditSvc,
		clock:          clock,
		metrics:        m,
		policy:         policy,
		notify:         notify,
	}
}

// CreateSale opens a sale, generates its schedule, books the sale debit and marks the lot sold
func (s *SaleService) CreateSale(ctx context.Context, input CreateSaleInput, actor Actor) (*models.Sale, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var sale *models.Sale
	var lot *models.Lot
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		lot, err = tx.Lot.FindByID(ctx, input.LotID)
		if err != nil {
			return translateRepoError(err, "lote")
		}
		if !lot.IsAvailable() {
			return ErrLotUnavailable
		}
		if _, err := tx.Customer.FindByID(ctx, input.CustomerID); err != nil {
			return translateRepoError(err, "cliente")
		}

		sale, err = s.newSale(input, lot, actor)
		if err != nil {
			return err
		}
		if err := tx.Sale.Create(ctx, sale); err != nil {
			return translateRepoError(err, "venta")
		}

		installments, err := s.schedule.generate(ctx, tx, sale)
		if err != nil {
			return err
		}
		sale.Installments = installments

		if err := tx.Ledger.Create(ctx, &models.SaleLedgerEntry{
			SaleID:      sale.ID,
			Amount:      sale.SalePrice,
			Description: "Venta de " + lot.Display(),
			EntryType:   models.EntryTypeSale,
			EntryDate:   sale.SaleDate,
		}); err != nil {
			return fmt.Errorf("failed to create ledger entry: %w", err)
		}

		status, err := RecomputeLotStatus(ctx, tx, lot.ID)
		if err != nil {
			return err
		}
		lot.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	sale.Lot = *lot
	s.metrics.SaleTransitions.WithLabelValues("create").Inc()
	logger.Info("sale created", "sale_id", sale.ID, "lot_id", lot.ID, "customer_id", sale.CustomerID, "installments", len(sale.Installments))
	s.auditSvc.Log(ctx, actor, models.AuditActionCreate, "Sale", sale.ID,
		fmt.Sprintf("Venta %s de %s por %s (prima %s, %d meses)", sale.Reference, lot.Display(),
			sale.SalePrice.StringFixed(2), sale.InitialPayment.StringFixed(2), sale.FinancingMonths))
	s.changed()
	return sale, nil
}

func (s *SaleService) newSale(input CreateSaleInput, lot *models.Lot, actor Actor) (*models.Sale, error) {
	price := input.SalePrice
	if price.IsZero() {
		price = lot.Price
	}
	months := input.FinancingMonths
	if months == 0 {
		months = s.policy.DefaultFinancingMonths
	}
	day := input.PaymentDay
	if day == 0 {
		day = s.policy.DefaultPaymentDay
	}

	if err := s.checkTerms(price, input.InitialPayment, months, day); err != nil {
		return nil, err
	}

	saleDate := today(s.clock)
	if input.SaleDate != nil && !input.SaleDate.IsZero() {
		saleDate = models.DateOnly(*input.SaleDate)
	}

	return &models.Sale{
		Reference:         uuid.NewString(),
		LotID:             lot.ID,
		CustomerID:        input.CustomerID,
		Status:            models.SaleStatusActive,
		SalePrice:         price,
		InitialPayment:    input.InitialPayment,
		FinancingMonths:   months,
		PaymentDay:        day,
		SaleDate:          saleDate,
		ScheduleStartDate: optionalDate(input.ScheduleStartDate),
		ContractDate:      optionalDate(input.ContractDate),
		Notes:             strings.TrimSpace(input.Notes),
		CreatedByID:       actor.userIDPtr(),
	}, nil
}

// checkTerms holds the cross-field rules shared by create and update
func (s *SaleService) checkTerms(price, initial decimal.Decimal, months, day int) error {
	switch {
	case !price.IsPositive():
		return invalid("el precio de venta debe ser mayor a cero")
	case initial.IsNegative():
		return invalid("la prima no puede ser negativa")
	case initial.GreaterThan(price):
		return invalid("la prima (%s) no puede exceder el precio de venta (%s)", initial.StringFixed(2), price.StringFixed(2))
	case months < 1 || months > s.policy.MaxFinancingMonths:
		return invalid("el plazo debe estar entre 1 y %d meses", s.policy.MaxFinancingMonths)
	case day < 1 || day > 31:
		return invalid("el día de pago debe estar entre 1 y 31")
	}
	// Every installment needs at least one whole unit
	if financed := price.Sub(initial); financed.IsPositive() && financed.LessThan(decimal.NewFromInt(int64(months))) {
		return invalid("el saldo a financiar (%s) es menor que el número de cuotas (%d)", financed.StringFixed(2), months)
	}
	return nil
}

// CancelSale cancels an active sale and frees its lot
func (s *SaleService) CancelSale(ctx context.Context, saleID uint, reason string, actor Actor) (*models.Sale, error) {
	reason = strings.TrimSpace(reason)
	sale, err := s.transition(ctx, saleID, statemachine.EventCancel, func(ctx context.Context, tx *repository.Repositories, sale *models.Sale) error {
		now := s.clock.Now()
		sale.CancellationDate = &now
		sale.CancellationReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionCancel, "Sale", saleID, "Venta cancelada: "+reason)
	return sale, nil
}

// CompleteSale closes a sale whose installments are all paid or forgiven
func (s *SaleService) CompleteSale(ctx context.Context, saleID uint, notes string, actor Actor) (*models.Sale, error) {
	sale, err := s.transition(ctx, saleID, statemachine.EventComplete, func(ctx context.Context, tx *repository.Repositories, sale *models.Sale) error {
		installments, err := tx.Installment.FindBySale(ctx, saleID)
		if err != nil {
			return fmt.Errorf("failed to load schedule: %w", err)
		}
		plan := ComputePlanStatus(installments)
		if !plan.IsComplete() {
			return fmt.Errorf("%w: %s%% completado", ErrPlanIncomplete, plan.CompletionPercentage.StringFixed(2))
		}

		now := s.clock.Now()
		sale.CompletionDate = &now
		appendSaleNote(sale, now, notes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionComplete, "Sale", saleID, "Venta completada")
	return sale, nil
}

// SuspendSale pauses an active sale
func (s *SaleService) SuspendSale(ctx context.Context, saleID uint, notes string, actor Actor) (*models.Sale, error) {
	sale, err := s.transition(ctx, saleID, statemachine.EventSuspend, func(ctx context.Context, tx *repository.Repositories, sale *models.Sale) error {
		note := "Suspendida"
		if notes = strings.TrimSpace(notes); notes != "" {
			note += ": " + notes
		}
		appendSaleNote(sale, s.clock.Now(), note)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionSuspend, "Sale", saleID, "Venta suspendida")
	return sale, nil
}

// ResumeSale reactivates a suspended sale when its lot has no other active sale
func (s *SaleService) ResumeSale(ctx context.Context, saleID uint, actor Actor) (*models.Sale, error) {
	sale, err := s.transition(ctx, saleID, statemachine.EventResume, func(ctx context.Context, tx *repository.Repositories, sale *models.Sale) error {
		taken, err := tx.Sale.HasActiveByLot(ctx, sale.LotID, sale.ID)
		if err != nil {
			return fmt.Errorf("failed to check active sales: %w", err)
		}
		if taken {
			return ErrLotUnavailable
		}
		appendSaleNote(sale, s.clock.Now(), "Reactivada")
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionResume, "Sale", saleID, "Venta reactivada")
	return sale, nil
}

// transition loads the sale, runs the guard-specific mutation, fires the event and recomputes the lot,
// all in one transaction
func (s *SaleService) transition(
	ctx context.Context,
	saleID uint,
	event string,
	mutate func(ctx context.Context, tx *repository.Repositories, sale *models.Sale) error,
) (*models.Sale, error) {
	var sale *models.Sale
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		sale, err = tx.Sale.FindByID(ctx, saleID)
		if err != nil {
			return translateRepoError(err, "venta")
		}

		sfsm := statemachine.NewSaleFSM(sale)
		if !sfsm.Can(event) {
			return fmt.Errorf("%w: %s desde %s", ErrInvalidState, event, sale.Status)
		}
		if err := mutate(ctx, tx, sale); err != nil {
			return err
		}

		switch event {
		case statemachine.EventCancel:
			err = sfsm.Cancel(ctx)
		case statemachine.EventComplete:
			err = sfsm.Complete(ctx)
		case statemachine.EventSuspend:
			err = sfsm.Suspend(ctx)
		case statemachine.EventResume:
			err = sfsm.Resume(ctx)
		}
		if err != nil {
			return translateRepoError(err, "venta")
		}

		if err := tx.Sale.Update(ctx, sale); err != nil {
			return translateRepoError(err, "venta")
		}
		_, err = RecomputeLotStatus(ctx, tx, sale.LotID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SaleTransitions.WithLabelValues(event).Inc()
	logger.Info("sale transitioned", "sale_id", saleID, "event", event, "status", sale.Status)
	s.changed()
	return sale, nil
}

// UpdateTerms changes price or financing terms of an active sale.
// A new term, payment day or start date regenerates the schedule; a new price or initial payment
// redistributes the open installments.
func (s *SaleService) UpdateTerms(ctx context.Context, saleID uint, input UpdateTermsInput, actor Actor) (*models.Sale, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var sale *models.Sale
	var changes []string
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		sale, err = tx.Sale.FindByID(ctx, saleID)
		if err != nil {
			return translateRepoError(err, "venta")
		}
		if !sale.IsActive() {
			return ErrSaleNotActive
		}

		price, initial := sale.SalePrice, sale.InitialPayment
		months, day := sale.FinancingMonths, sale.PaymentDay
		if input.SalePrice != nil {
			price = *input.SalePrice
		}
		if input.InitialPayment != nil {
			initial = *input.InitialPayment
		}
		if input.FinancingMonths != nil {
			months = *input.FinancingMonths
		}
		if input.PaymentDay != nil {
			day = *input.PaymentDay
		}
		if err := s.checkTerms(price, initial, months, day); err != nil {
			return err
		}

		received, err := tx.Payment.FindInitialBySale(ctx, saleID)
		if err != nil {
			return fmt.Errorf("failed to load initial payments: %w", err)
		}
		if paid := sale.ComputeInitialPaymentStatus(received).TotalInitialPayments; initial.LessThan(paid) {
			return invalid("la prima no puede ser menor a los pagos de prima recibidos (%s)", paid.StringFixed(2))
		}

		priceDelta := price.Sub(sale.SalePrice)
		amountsChanged := !priceDelta.IsZero() || !initial.Equal(sale.InitialPayment)
		startChanged := false
		if input.ScheduleStartDate != nil {
			start := models.DateOnly(*input.ScheduleStartDate)
			if sale.ScheduleStartDate == nil || !sale.ScheduleStartDate.Equal(start) {
				sale.ScheduleStartDate = &start
				startChanged = true
			}
		}
		scheduleChanged := startChanged || months != sale.FinancingMonths || day != sale.PaymentDay
		if !amountsChanged && !scheduleChanged && strings.TrimSpace(input.Notes) == "" {
			return nil
		}

		changes = termChanges(sale, price, initial, months, day, startChanged)
		sale.SalePrice, sale.InitialPayment = price, initial
		sale.FinancingMonths, sale.PaymentDay = months, day
		appendSaleNote(sale, s.clock.Now(), input.Notes)
		if err := tx.Sale.Update(ctx, sale); err != nil {
			return translateRepoError(err, "venta")
		}

		switch {
		case scheduleChanged:
			if _, err := s.schedule.regenerate(ctx, tx, sale); err != nil {
				return err
			}
		case amountsChanged:
			s.redistribution.Redistribute(ctx, tx, saleID, nil, "condiciones de venta actualizadas")
		}

		if priceDelta.IsZero() {
			return nil
		}
		return tx.Ledger.Create(ctx, &models.SaleLedgerEntry{
			SaleID:      saleID,
			Amount:      priceDelta,
			Description: fmt.Sprintf("Ajuste de precio a %s", price.StringFixed(2)),
			EntryType:   models.EntryTypeAdjustment,
			EntryDate:   s.clock.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.auditSvc.Log(ctx, actor, models.AuditActionUpdate, "Sale", saleID,
			"Condiciones actualizadas: "+strings.Join(changes, ", "))
		s.changed()
	}
	return sale, nil
}

func termChanges(sale *models.Sale, price, initial decimal.Decimal, months, day int, startChanged bool) []string {
	var changes []string
	if !price.Equal(sale.SalePrice) {
		changes = append(changes, fmt.Sprintf("precio %s → %s", sale.SalePrice.StringFixed(2), price.StringFixed(2)))
	}
	if !initial.Equal(sale.InitialPayment) {
		changes = append(changes, fmt.Sprintf("prima %s → %s", sale.InitialPayment.StringFixed(2), initial.StringFixed(2)))
	}
	if months != sale.FinancingMonths {
		changes = append(changes, fmt.Sprintf("plazo %d → %d meses", sale.FinancingMonths, months))
	}
	if day != sale.PaymentDay {
		changes = append(changes, fmt.Sprintf("día de pago %d → %d", sale.PaymentDay, day))
	}
	if startChanged {
		changes = append(changes, "fecha de inicio "+sale.ScheduleStart().Format(models.DateLayout))
	}
	if len(changes) == 0 {
		changes = append(changes, "notas")
	}
	return changes
}

// GetSale returns a sale with its lot, customer, schedule and payments
func (s *SaleService) GetSale(ctx context.Context, id uint) (*models.Sale, error) {
	sale, err := s.repos.Sale.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "venta")
	}
	return sale, nil
}

func (s *SaleService) ListSales(ctx context.Context, query *repository.SaleQuery) ([]models.Sale, int64, error) {
	return s.repos.Sale.List(ctx, query)
}

// SalesByLot returns the sale history of a lot, newest first
func (s *SaleService) SalesByLot(ctx context.Context, lotID uint) ([]models.Sale, error) {
	if _, err := s.repos.Lot.FindByID(ctx, lotID); err != nil {
		return nil, translateRepoError(err, "lote")
	}
	return s.repos.Sale.FindByLot(ctx, lotID)
}

// ActiveSaleForLot returns the active sale of a lot or ErrNotFound
func (s *SaleService) ActiveSaleForLot(ctx context.Context, lotID uint) (*models.Sale, error) {
	sale, err := s.repos.Sale.FindActiveByLot(ctx, lotID)
	if err != nil {
		return nil, translateRepoError(err, "venta activa")
	}
	return sale, nil
}

// Schedule returns the installments of a sale in order
func (s *SaleService) Schedule(ctx context.Context, saleID uint) ([]models.Installment, error) {
	if _, err := s.repos.Sale.FindByID(ctx, saleID); err != nil {
		return nil, translateRepoError(err, "venta")
	}
	return s.repos.Installment.FindBySale(ctx, saleID)
}

// PlanStatus summarizes the schedule of a sale
func (s *SaleService) PlanStatus(ctx context.Context, saleID uint) (PlanStatus, error) {
	installments, err := s.Schedule(ctx, saleID)
	if err != nil {
		return PlanStatus{}, err
	}
	return ComputePlanStatus(installments), nil
}

// RemainingBalance sums what is still owed on the schedule of a sale
func (s *SaleService) RemainingBalance(ctx context.Context, saleID uint) (decimal.Decimal, error) {
	plan, err := s.PlanStatus(ctx, saleID)
	if err != nil {
		return decimal.Zero, err
	}
	return plan.RemainingAmount, nil
}

// Ledger returns the ledger entries of a sale and their balance
func (s *SaleService) Ledger(ctx context.Context, saleID uint) (*LedgerView, error) {
	if _, err := s.repos.Sale.FindByID(ctx, saleID); err != nil {
		return nil, translateRepoError(err, "venta")
	}
	entries, err := s.repos.Ledger.FindBySale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return &LedgerView{Entries: entries, Balance: models.LedgerBalance(entries)}, nil
}

func (s *SaleService) changed() {
	if s.notify != nil {
		s.notify()
	}
}

func appendSaleNote(sale *models.Sale, at time.Time, note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	line := fmt.Sprintf("[%s] %s", at.Format("2006-01-02 15:04"), note)
	if sale.Notes == "" {
		sale.Notes = line
		return
	}
	sale.Notes += "\n" + line
}
