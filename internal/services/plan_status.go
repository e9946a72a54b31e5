package services

import (
	"github.com/shopspring/decimal"
	"github.com/sjperalta/lotes-api/internal/models"
)

// PlanStatus summarizes a payment schedule
type PlanStatus struct {
	Total                int             `json:"total"`
	Paid                 int             `json:"paid"`
	Pending              int             `json:"pending"`
	Overdue              int             `json:"overdue"`
	Partial              int             `json:"partial"`
	Forgiven             int             `json:"forgiven"`
	CompletionPercentage decimal.Decimal `json:"completion_percentage"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	PaidAmount           decimal.Decimal `json:"paid_amount"`
	RemainingAmount      decimal.Decimal `json:"remaining_amount"`
}

// IsComplete reports whether every installment is paid or forgiven
func (p PlanStatus) IsComplete() bool {
	return p.Paid+p.Forgiven == p.Total
}

// ComputePlanStatus counts installments by status and sums their amounts.
// An empty schedule is 100% complete.
func ComputePlanStatus(installments []models.Installment) PlanStatus {
	status := PlanStatus{
		Total:       len(installments),
		TotalAmount: decimal.Zero,
		PaidAmount:  decimal.Zero,
	}
	remaining := decimal.Zero

	for i := range installments {
		inst := &installments[i]
		switch inst.Status {
		case models.InstallmentStatusPaid:
			status.Paid++
		case models.InstallmentStatusPartial:
			status.Partial++
		case models.InstallmentStatusOverdue:
			status.Overdue++
		case models.InstallmentStatusForgiven:
			status.Forgiven++
		default:
			status.Pending++
		}
		status.TotalAmount = status.TotalAmount.Add(inst.ScheduledAmount)
		status.PaidAmount = status.PaidAmount.Add(inst.PaidAmount)
		remaining = remaining.Add(inst.RemainingAmount())
	}
	status.RemainingAmount = remaining

	if status.Total == 0 {
		status.CompletionPercentage = decimal.NewFromInt(100)
		return status
	}
	settled := decimal.NewFromInt(int64(status.Paid + status.Forgiven))
	status.CompletionPercentage = settled.Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(status.Total)), 2)
	return status
}
