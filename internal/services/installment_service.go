package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/lotes-api/internal/config"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
)

// ModifyAmountInput changes the scheduled amount of one installment
type ModifyAmountInput struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Notes  string          `json:"notes" validate:"max=1000"`
}

// BulkModifyInput applies the same scheduled amount to several installments of a sale
type BulkModifyInput struct {
	InstallmentIDs []uint          `json:"installment_ids" validate:"required,min=1,dive,required"`
	Amount         decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Notes          string          `json:"notes" validate:"max=1000"`
}

// InstallmentService edits scheduled amounts and triggers redistribution
type InstallmentService struct {
	repos          *repository.Repositories
	redistribution *RedistributionService
	auditSvc       *AuditService
	clock          Clock
	policy         config.FinancingPolicy
	notify         func()
}

// NewInstallmentService creates a new installment service
func NewInstallmentService(repos *repository.Repositories, redistribution *RedistributionService, auditSvc *AuditService, clock Clock, policy config.FinancingPolicy, notify func()) *InstallmentService {
	return &InstallmentService{
		repos:          repos,
		redistribution: redistribution,
		auditSvc:       auditSvc,
		clock:          clock,
		policy:         policy,
		notify:         notify,
	}
}

// GetInstallment returns one installment
func (s *InstallmentService) GetInstallment(ctx context.Context, id uint) (*models.Installment, error) {
	inst, err := s.repos.Installment.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "cuota")
	}
	return inst, nil
}

// ModifyAmount sets a new scheduled amount and rebalances the remaining open installments.
// The full updated schedule is returned.
func (s *InstallmentService) ModifyAmount(ctx context.Context, installmentID uint, input ModifyAmountInput, actor Actor) ([]models.Installment, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var (
		schedule []models.Installment
		previous decimal.Decimal
		saleID   uint
	)
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		inst, err := tx.Installment.FindByID(ctx, installmentID)
		if err != nil {
			return translateRepoError(err, "cuota")
		}
		saleID = inst.SaleID
		if err := requireActiveSale(ctx, tx, inst.SaleID); err != nil {
			return err
		}

		previous = inst.ScheduledAmount
		if err := s.applyAmount(ctx, tx, inst, input.Amount, input.Notes); err != nil {
			return err
		}

		s.redistribution.Redistribute(ctx, tx, inst.SaleID, []uint{inst.ID},
			fmt.Sprintf("cuota #%d modificada", inst.InstallmentNumber))

		schedule, err = tx.Installment.FindBySale(ctx, inst.SaleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionModifyAmount, "Installment", installmentID,
		fmt.Sprintf("Venta %d: monto modificado de %s a %s", saleID, previous.StringFixed(2), input.Amount.StringFixed(2)))
	s.changed()
	return schedule, nil
}

// BulkModifyAmounts applies one amount to several installments and redistributes once
func (s *InstallmentService) BulkModifyAmounts(ctx context.Context, saleID uint, input BulkModifyInput, actor Actor) ([]models.Installment, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	ids := uniqueIDs(input.InstallmentIDs)
	var schedule []models.Installment
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := requireActiveSale(ctx, tx, saleID); err != nil {
			return err
		}

		current, err := tx.Installment.FindBySale(ctx, saleID)
		if err != nil {
			return fmt.Errorf("failed to load schedule: %w", err)
		}
		byID := make(map[uint]*models.Installment, len(current))
		for i := range current {
			byID[current[i].ID] = &current[i]
		}

		numbers := make([]string, 0, len(ids))
		for _, id := range ids {
			inst, ok := byID[id]
			if !ok {
				return fmt.Errorf("cuota %d: %w", id, ErrInstallmentNotInSale)
			}
			if err := s.applyAmount(ctx, tx, inst, input.Amount, input.Notes); err != nil {
				return fmt.Errorf("cuota #%d: %w", inst.InstallmentNumber, err)
			}
			numbers = append(numbers, fmt.Sprintf("#%d", inst.InstallmentNumber))
		}

		s.redistribution.Redistribute(ctx, tx, saleID, ids,
			"modificación masiva de cuotas "+strings.Join(numbers, ", "))

		schedule, err = tx.Installment.FindBySale(ctx, saleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionModifyAmount, "Sale", saleID,
		fmt.Sprintf("%d cuotas modificadas a %s", len(ids), input.Amount.StringFixed(2)))
	s.changed()
	return schedule, nil
}

func (s *InstallmentService) applyAmount(ctx context.Context, tx *repository.Repositories, inst *models.Installment, amount decimal.Decimal, notes string) error {
	if !inst.MayEditAmount() {
		return ErrInstallmentSettled
	}
	if amount.LessThan(s.policy.MinInstallmentAmount) {
		return ErrAmountTooSmall
	}
	if amount.LessThan(inst.PaidAmount) {
		return ErrAmountBelowPaid
	}

	now := s.clock.Now()
	note := fmt.Sprintf("Monto modificado de %s a %s", inst.ScheduledAmount.StringFixed(2), amount.StringFixed(2))
	if notes = strings.TrimSpace(notes); notes != "" {
		note += ": " + notes
	}
	inst.AppendNote(now, note)
	inst.ScheduledAmount = amount
	inst.RecomputeStatus(today(s.clock))

	if err := tx.Installment.Update(ctx, inst); err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	return nil
}

func (s *InstallmentService) changed() {
	if s.notify != nil {
		s.notify()
	}
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
