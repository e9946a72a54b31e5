package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is the contract between a customer and a lot, and the root of its payment schedule
type Sale struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Reference          string          `gorm:"size:36;not null;uniqueIndex" json:"reference"`
	LotID              uint            `gorm:"not null;index" json:"lot_id"`
	CustomerID         uint            `gorm:"not null;index" json:"customer_id"`
	Status             string          `gorm:"size:20;default:active;not null;index" json:"status"`
	SalePrice          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"sale_price"`
	InitialPayment     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"initial_payment"`
	FinancingMonths    int             `gorm:"not null" json:"financing_months"`
	PaymentDay         int             `gorm:"not null" json:"payment_day"`
	SaleDate           time.Time       `gorm:"not null" json:"sale_date"`
	ScheduleStartDate  *time.Time      `gorm:"type:date" json:"schedule_start_date"`
	ContractDate       *time.Time      `gorm:"type:date" json:"contract_date"`
	CancellationDate   *time.Time      `json:"cancellation_date"`
	CancellationReason string          `gorm:"type:text" json:"cancellation_reason"`
	CompletionDate     *time.Time      `json:"completion_date"`
	Notes              string          `gorm:"type:text" json:"notes"`
	CreatedByID        *uint           `gorm:"index" json:"created_by_id"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Associations
	Lot           Lot               `gorm:"foreignKey:LotID" json:"lot,omitempty"`
	Customer      Customer          `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Installments  []Installment     `gorm:"foreignKey:SaleID" json:"installments,omitempty"`
	Payments      []Payment         `gorm:"foreignKey:SaleID" json:"payments,omitempty"`
	LedgerEntries []SaleLedgerEntry `gorm:"foreignKey:SaleID" json:"ledger_entries,omitempty"`
}

// TableName specifies the table name for Sale
func (Sale) TableName() string {
	return "sales"
}

// Sale status constants
const (
	SaleStatusActive    = "active"
	SaleStatusCancelled = "cancelled"
	SaleStatusCompleted = "completed"
	SaleStatusSuspended = "suspended"
)

// MayCancel returns true if the sale can be cancelled
func (s *Sale) MayCancel() bool {
	return s.Status == SaleStatusActive
}

// MayComplete returns true if the sale is in a state that allows completion.
// Plan completeness is checked separately by the ledger service.
func (s *Sale) MayComplete() bool {
	return s.Status == SaleStatusActive
}

// MaySuspend returns true if the sale can be suspended
func (s *Sale) MaySuspend() bool {
	return s.Status == SaleStatusActive
}

// MayResume returns true if a suspended sale can be reactivated
func (s *Sale) MayResume() bool {
	return s.Status == SaleStatusSuspended
}

// IsActive reports whether the sale is active
func (s *Sale) IsActive() bool {
	return s.Status == SaleStatusActive
}

// IsTerminal reports whether the sale can no longer change state
func (s *Sale) IsTerminal() bool {
	return s.Status == SaleStatusCancelled || s.Status == SaleStatusCompleted
}

// FinancedAmount is the part of the price paid through installments
func (s *Sale) FinancedAmount() decimal.Decimal {
	return s.SalePrice.Sub(s.InitialPayment)
}

// ScheduleStart returns the date the first installment month is taken from
func (s *Sale) ScheduleStart() time.Time {
	if s.ScheduleStartDate != nil {
		return DateOnly(*s.ScheduleStartDate)
	}
	return DateOnly(s.SaleDate)
}

// RemainingBalance sums remaining_amount over the loaded installments.
// Forgiven installments contribute nothing.
func (s *Sale) RemainingBalance() decimal.Decimal {
	total := decimal.Zero
	for i := range s.Installments {
		total = total.Add(s.Installments[i].RemainingAmount())
	}
	return total
}

// InitialPaymentStatus summarizes the payments made toward the initial payment
type InitialPaymentStatus struct {
	TotalInitialPayments     decimal.Decimal `json:"total_initial_payments"`
	InitialPaymentBalance    decimal.Decimal `json:"initial_payment_balance"`
	IsInitialPaymentComplete bool            `json:"is_initial_payment_complete"`
}

// ComputeInitialPaymentStatus derives the initial payment status from the given payments
func (s *Sale) ComputeInitialPaymentStatus(payments []Payment) InitialPaymentStatus {
	paid := decimal.Zero
	for i := range payments {
		if payments[i].PaymentType == PaymentTypeInitial {
			paid = paid.Add(payments[i].Amount)
		}
	}
	balance := s.InitialPayment.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return InitialPaymentStatus{
		TotalInitialPayments:     paid,
		InitialPaymentBalance:    balance,
		IsInitialPaymentComplete: !balance.IsPositive(),
	}
}

// LotInfo is the compact lot view embedded in sale responses
type LotInfo struct {
	ID        uint   `json:"id"`
	Block     string `json:"block"`
	LotNumber string `json:"lot_number"`
	Display   string `json:"display"`
}

// CustomerInfo is the compact customer view embedded in sale responses
type CustomerInfo struct {
	ID             uint    `json:"id"`
	FullName       string  `json:"full_name"`
	DocumentNumber *string `json:"document_number"`
	Phone          *string `json:"phone"`
}

// SaleResponse is the JSON response format for sales
type SaleResponse struct {
	ID                 uint                  `json:"id"`
	Reference          string                `json:"reference"`
	LotID              uint                  `json:"lot_id"`
	CustomerID         uint                  `json:"customer_id"`
	Status             string                `json:"status"`
	SalePrice          decimal.Decimal       `json:"sale_price"`
	InitialPayment     decimal.Decimal       `json:"initial_payment"`
	FinancedAmount     decimal.Decimal       `json:"financed_amount"`
	FinancingMonths    int                   `json:"financing_months"`
	PaymentDay         int                   `json:"payment_day"`
	SaleDate           time.Time             `json:"sale_date"`
	ScheduleStartDate  *time.Time            `json:"schedule_start_date"`
	ContractDate       *time.Time            `json:"contract_date"`
	CancellationDate   *time.Time            `json:"cancellation_date"`
	CancellationReason string                `json:"cancellation_reason,omitempty"`
	CompletionDate     *time.Time            `json:"completion_date"`
	Notes              string                `json:"notes"`
	RemainingBalance   *decimal.Decimal      `json:"remaining_balance,omitempty"`
	InitialPayments    *InitialPaymentStatus `json:"initial_payment_status,omitempty"`
	LotInfo            *LotInfo              `json:"lot_info,omitempty"`
	CustomerInfo       *CustomerInfo         `json:"customer_info,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// ToResponse converts Sale to SaleResponse. Derived balances are only filled when
// the installments or payments were loaded with the sale.
func (s *Sale) ToResponse() SaleResponse {
	resp := SaleResponse{
		ID:                 s.ID,
		Reference:          s.Reference,
		LotID:              s.LotID,
		CustomerID:         s.CustomerID,
		Status:             s.Status,
		SalePrice:          s.SalePrice,
		InitialPayment:     s.InitialPayment,
		FinancedAmount:     s.FinancedAmount(),
		FinancingMonths:    s.FinancingMonths,
		PaymentDay:         s.PaymentDay,
		SaleDate:           s.SaleDate,
		ScheduleStartDate:  s.ScheduleStartDate,
		ContractDate:       s.ContractDate,
		CancellationDate:   s.CancellationDate,
		CancellationReason: s.CancellationReason,
		CompletionDate:     s.CompletionDate,
		Notes:              s.Notes,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}

	if s.Installments != nil {
		balance := s.RemainingBalance()
		resp.RemainingBalance = &balance
	}
	if s.Payments != nil {
		status := s.ComputeInitialPaymentStatus(s.Payments)
		resp.InitialPayments = &status
	}
	if s.Lot.ID != 0 {
		resp.LotInfo = &LotInfo{
			ID:        s.Lot.ID,
			Block:     s.Lot.Block,
			LotNumber: s.Lot.LotNumber,
			Display:   s.Lot.Display(),
		}
	}
	if s.Customer.ID != 0 {
		resp.CustomerInfo = &CustomerInfo{
			ID:             s.Customer.ID,
			FullName:       s.Customer.FullName(),
			DocumentNumber: s.Customer.DocumentNumber,
			Phone:          s.Customer.Phone,
		}
	}

	return resp
}
