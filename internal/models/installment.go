package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one scheduled obligation ("cuota") of a sale
type Installment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	SaleID            uint            `gorm:"not null;uniqueIndex:uniq_installments_sale_number;index" json:"sale_id"`
	InstallmentNumber int             `gorm:"not null;uniqueIndex:uniq_installments_sale_number" json:"installment_number"`
	OriginalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"original_amount"`
	ScheduledAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"scheduled_amount"`
	PaidAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"paid_amount"`
	DueDate           time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	PaymentDate       *time.Time      `gorm:"type:date" json:"payment_date"`
	ReceiptNumber     *string         `gorm:"size:100" json:"receipt_number"`
	ReceiptDate       *time.Time      `gorm:"type:date" json:"receipt_date"`
	PaymentMethod     *string         `gorm:"size:20" json:"payment_method"`
	Status            string          `gorm:"size:20;default:pending;not null;index" json:"status"`
	IsForgiven        bool            `gorm:"not null;default:false" json:"is_forgiven"`
	Notes             string          `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Associations
	Sale     *Sale     `gorm:"foreignKey:SaleID" json:"sale,omitempty"`
	Payments []Payment `gorm:"foreignKey:InstallmentID" json:"payments,omitempty"`
}

// TableName specifies the table name for Installment
func (Installment) TableName() string {
	return "installments"
}

// Installment status constants
const (
	InstallmentStatusPending  = "pending"
	InstallmentStatusPartial  = "partial"
	InstallmentStatusPaid     = "paid"
	InstallmentStatusOverdue  = "overdue"
	InstallmentStatusForgiven = "forgiven"
)

// IsFixed reports whether redistribution must leave the installment untouched
func (i *Installment) IsFixed() bool {
	switch i.Status {
	case InstallmentStatusPaid, InstallmentStatusPartial, InstallmentStatusForgiven:
		return true
	}
	return false
}

// IsSettled reports whether the installment counts toward plan completion
func (i *Installment) IsSettled() bool {
	return i.Status == InstallmentStatusPaid || i.Status == InstallmentStatusForgiven
}

// MayEditAmount returns true if the scheduled amount can still be changed
func (i *Installment) MayEditAmount() bool {
	return !i.IsSettled()
}

// RemainingAmount returns scheduled minus paid, never below zero
func (i *Installment) RemainingAmount() decimal.Decimal {
	if i.IsForgiven {
		return decimal.Zero
	}
	remaining := i.ScheduledAmount.Sub(i.PaidAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// StatusOn derives the status for the given day.
// Precedence: forgiven, paid, partial, overdue, pending.
func (i *Installment) StatusOn(today time.Time) string {
	switch {
	case i.IsForgiven:
		return InstallmentStatusForgiven
	case i.PaidAmount.GreaterThanOrEqual(i.ScheduledAmount):
		return InstallmentStatusPaid
	case i.PaidAmount.IsPositive():
		return InstallmentStatusPartial
	case DateOnly(i.DueDate).Before(DateOnly(today)):
		return InstallmentStatusOverdue
	default:
		return InstallmentStatusPending
	}
}

// RecomputeStatus updates Status from the current amounts and dates
func (i *Installment) RecomputeStatus(today time.Time) {
	i.Status = i.StatusOn(today)
}

// IsOverdueOn returns true if the installment is unpaid past its due date
func (i *Installment) IsOverdueOn(today time.Time) bool {
	if i.IsSettled() {
		return false
	}
	return DateOnly(i.DueDate).Before(DateOnly(today))
}

// DaysOverdueOn returns the number of days past due, zero when not overdue
func (i *Installment) DaysOverdueOn(today time.Time) int {
	if !i.IsOverdueOn(today) {
		return 0
	}
	return int(DateOnly(today).Sub(DateOnly(i.DueDate)).Hours() / 24)
}

// AppendNote adds a timestamped line to the installment notes
func (i *Installment) AppendNote(at time.Time, note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	line := fmt.Sprintf("[%s] %s", at.Format("2006-01-02 15:04"), note)
	if i.Notes == "" {
		i.Notes = line
		return
	}
	i.Notes = i.Notes + "\n" + line
}

// ClearReceipt removes the payment metadata copied from the last payment
func (i *Installment) ClearReceipt() {
	i.PaymentDate = nil
	i.ReceiptNumber = nil
	i.ReceiptDate = nil
	i.PaymentMethod = nil
}

// InstallmentResponse is the JSON response format for installments
type InstallmentResponse struct {
	ID                uint            `json:"id"`
	SaleID            uint            `json:"sale_id"`
	InstallmentNumber int             `json:"installment_number"`
	OriginalAmount    decimal.Decimal `json:"original_amount"`
	ScheduledAmount   decimal.Decimal `json:"scheduled_amount"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount"`
	DueDate           string          `json:"due_date"`
	PaymentDate       *string         `json:"payment_date"`
	ReceiptNumber     *string         `json:"receipt_number"`
	ReceiptDate       *string         `json:"receipt_date"`
	PaymentMethod     *string         `json:"payment_method"`
	Status            string          `json:"status"`
	IsForgiven        bool            `json:"is_forgiven"`
	IsOverdue         bool            `json:"is_overdue"`
	DaysOverdue       int             `json:"days_overdue"`
	Notes             string          `json:"notes"`
}

// ToResponse converts Installment to InstallmentResponse as of today
func (i *Installment) ToResponse(today time.Time) InstallmentResponse {
	return InstallmentResponse{
		ID:                i.ID,
		SaleID:            i.SaleID,
		InstallmentNumber: i.InstallmentNumber,
		OriginalAmount:    i.OriginalAmount,
		ScheduledAmount:   i.ScheduledAmount,
		PaidAmount:        i.PaidAmount,
		RemainingAmount:   i.RemainingAmount(),
		DueDate:           i.DueDate.Format(DateLayout),
		PaymentDate:       formatDatePtr(i.PaymentDate),
		ReceiptNumber:     i.ReceiptNumber,
		ReceiptDate:       formatDatePtr(i.ReceiptDate),
		PaymentMethod:     i.PaymentMethod,
		Status:            i.Status,
		IsForgiven:        i.IsForgiven,
		IsOverdue:         i.IsOverdueOn(today),
		DaysOverdue:       i.DaysOverdueOn(today),
		Notes:             i.Notes,
	}
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}
