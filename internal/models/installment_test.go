package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMonthlyDueDate_ClampsToMonthEnd(t *testing.T) {
	start := time.Date(2024, time.January, 10, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), MonthlyDueDate(start, 0, 31))
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), MonthlyDueDate(start, 1, 31))
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), MonthlyDueDate(start, 2, 31))
	assert.Equal(t, time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC), MonthlyDueDate(start, 3, 31))
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), MonthlyDueDate(start, 13, 30))
	assert.Equal(t, time.Date(2024, time.December, 15, 0, 0, 0, 0, time.UTC), MonthlyDueDate(start, 11, 15))
}

func TestInstallment_StatusPrecedence(t *testing.T) {
	today := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	past := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)
	future := time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		inst     Installment
		expected string
	}{
		{"forgiven wins over everything", Installment{IsForgiven: true, ScheduledAmount: d("100"), PaidAmount: d("0"), DueDate: past}, InstallmentStatusForgiven},
		{"fully paid", Installment{ScheduledAmount: d("100"), PaidAmount: d("100"), DueDate: past}, InstallmentStatusPaid},
		{"overpaid counts as paid", Installment{ScheduledAmount: d("100"), PaidAmount: d("150"), DueDate: future}, InstallmentStatusPaid},
		{"partial beats overdue", Installment{ScheduledAmount: d("100"), PaidAmount: d("10"), DueDate: past}, InstallmentStatusPartial},
		{"unpaid past due", Installment{ScheduledAmount: d("100"), PaidAmount: d("0"), DueDate: past}, InstallmentStatusOverdue},
		{"due today is still pending", Installment{ScheduledAmount: d("100"), PaidAmount: d("0"), DueDate: today}, InstallmentStatusPending},
		{"unpaid future", Installment{ScheduledAmount: d("100"), PaidAmount: d("0"), DueDate: future}, InstallmentStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.inst.StatusOn(today))
		})
	}
}

func TestInstallment_RemainingAmount(t *testing.T) {
	inst := Installment{ScheduledAmount: d("1000"), PaidAmount: d("250.50")}
	assert.True(t, inst.RemainingAmount().Equal(d("749.50")))

	inst.PaidAmount = d("1200")
	assert.True(t, inst.RemainingAmount().IsZero())

	inst = Installment{ScheduledAmount: d("1000"), PaidAmount: d("1000"), IsForgiven: true}
	assert.True(t, inst.RemainingAmount().IsZero())
}

func TestInstallment_DaysOverdue(t *testing.T) {
	today := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	inst := Installment{ScheduledAmount: d("100"), DueDate: time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC), Status: InstallmentStatusOverdue}

	assert.True(t, inst.IsOverdueOn(today))
	assert.Equal(t, 10, inst.DaysOverdueOn(today))

	inst.Status = InstallmentStatusPaid
	assert.False(t, inst.IsOverdueOn(today))
	assert.Equal(t, 0, inst.DaysOverdueOn(today))
}

func TestInstallment_AppendNote(t *testing.T) {
	at := time.Date(2024, time.March, 1, 14, 5, 0, 0, time.UTC)
	inst := Installment{}

	inst.AppendNote(at, "primera")
	inst.AppendNote(at, "   ")
	inst.AppendNote(at, "segunda")

	assert.Equal(t, "[2024-03-01 14:05] primera\n[2024-03-01 14:05] segunda", inst.Notes)
}

func TestSale_InitialPaymentStatus(t *testing.T) {
	sale := Sale{SalePrice: d("12000"), InitialPayment: d("2000")}
	payments := []Payment{
		{PaymentType: PaymentTypeInitial, Amount: d("500")},
		{PaymentType: PaymentTypeInstallment, Amount: d("1000")},
		{PaymentType: PaymentTypeInitial, Amount: d("700")},
	}

	status := sale.ComputeInitialPaymentStatus(payments)
	assert.True(t, status.TotalInitialPayments.Equal(d("1200")))
	assert.True(t, status.InitialPaymentBalance.Equal(d("800")))
	assert.False(t, status.IsInitialPaymentComplete)

	payments = append(payments, Payment{PaymentType: PaymentTypeInitial, Amount: d("800")})
	status = sale.ComputeInitialPaymentStatus(payments)
	assert.True(t, status.IsInitialPaymentComplete)
	assert.True(t, status.InitialPaymentBalance.IsZero())
}

func TestSale_ScheduleStartPrefersOverride(t *testing.T) {
	saleDate := time.Date(2024, time.January, 20, 10, 0, 0, 0, time.UTC)
	override := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)

	sale := Sale{SaleDate: saleDate}
	assert.Equal(t, time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC), sale.ScheduleStart())

	sale.ScheduleStartDate = &override
	assert.Equal(t, override, sale.ScheduleStart())
}
