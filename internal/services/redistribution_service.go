package services

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/lotes-api/internal/config"
	"github.com/sjperalta/lotes-api/internal/metrics"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/pkg/logger"
)

// RedistributionService spreads the unfixed part of the financed amount over the open installments
type RedistributionService struct {
	clock   Clock
	metrics *metrics.Metrics
	policy  config.FinancingPolicy
}

// RedistributionResult describes what a run changed
type RedistributionResult struct {
	Adjusted  int
	Divergent bool
}

// NewRedistributionService creates a new redistribution service
func NewRedistributionService(clock Clock, m *metrics.Metrics, policy config.FinancingPolicy) *RedistributionService {
	return &RedistributionService{clock: clock, metrics: m, policy: policy}
}

// Redistribute rebalances the schedule of a sale inside a savepoint of tx.
// editedIDs are treated as fixed. Errors and panics roll back the savepoint only;
// they are logged, reported and counted but never returned, so the caller's change still commits.
func (s *RedistributionService) Redistribute(ctx context.Context, tx *repository.Repositories, saleID uint, editedIDs []uint, reason string) RedistributionResult {
	var result RedistributionResult

	err := tx.Transaction(ctx, func(sp *repository.Repositories) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("redistribution panicked: %v", r)
			}
		}()
		result, err = s.redistribute(ctx, sp, saleID, editedIDs, reason)
		return err
	})
	if err != nil {
		logger.Error("redistribution failed, schedule left unchanged", "sale_id", saleID, "reason", reason, "error", err)
		hub := sentry.GetHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.CaptureException(err)
		s.metrics.RedistributionFailures.Inc()
		return RedistributionResult{}
	}
	return result
}

func (s *RedistributionService) redistribute(ctx context.Context, tx *repository.Repositories, saleID uint, editedIDs []uint, reason string) (RedistributionResult, error) {
	var result RedistributionResult

	sale, err := tx.Sale.FindByID(ctx, saleID)
	if err != nil {
		return result, fmt.Errorf("failed to load sale %d: %w", saleID, err)
	}
	installments, err := tx.Installment.FindBySale(ctx, saleID)
	if err != nil {
		return result, fmt.Errorf("failed to load schedule: %w", err)
	}

	edited := make(map[uint]bool, len(editedIDs))
	for _, id := range editedIDs {
		edited[id] = true
	}

	fixedTotal := decimal.Zero
	var open []*models.Installment
	for i := range installments {
		inst := &installments[i]
		if inst.IsFixed() || edited[inst.ID] {
			fixedTotal = fixedTotal.Add(inst.ScheduledAmount)
			continue
		}
		open = append(open, inst)
	}

	target := sale.FinancedAmount()
	toDistribute := target.Sub(fixedTotal)
	k := len(open)

	if k == 0 || !toDistribute.IsPositive() {
		logger.Warn("schedule no longer adds up to the financed amount",
			"sale_id", saleID,
			"target", target.StringFixed(2),
			"fixed_total", fixedTotal.StringFixed(2),
			"open_installments", k,
			"reason", reason)
		s.metrics.RedistributionDivergence.Inc()
		result.Divergent = true
		return result, nil
	}

	base := toDistribute.Div(decimal.NewFromInt(int64(k))).Floor()
	last := toDistribute.Sub(base.Mul(decimal.NewFromInt(int64(k - 1))))
	now := s.clock.Now()
	day := today(s.clock)
	minAmount := s.policy.MinInstallmentAmount

	for i, inst := range open {
		amount := base
		if i == k-1 {
			amount = last
		}
		if amount.Equal(inst.ScheduledAmount) || amount.LessThan(minAmount) {
			continue
		}

		inst.AppendNote(now, fmt.Sprintf("Redistribución: monto ajustado de %s a %s (%s)",
			inst.ScheduledAmount.StringFixed(2), amount.StringFixed(2), reason))
		inst.ScheduledAmount = amount
		inst.RecomputeStatus(day)
		if err := tx.Installment.Update(ctx, inst); err != nil {
			return result, fmt.Errorf("failed to update installment %d: %w", inst.InstallmentNumber, err)
		}
		result.Adjusted++
	}

	if result.Adjusted > 0 {
		s.metrics.RedistributionRuns.Inc()
		logger.Info("schedule redistributed", "sale_id", saleID, "adjusted", result.Adjusted, "reason", reason)
	}
	return result, nil
}
