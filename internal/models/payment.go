package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an immutable money event applied to a sale, optionally to one installment
type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SaleID        uint            `gorm:"not null;index" json:"sale_id"`
	InstallmentID *uint           `gorm:"index" json:"installment_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentDate   time.Time       `gorm:"type:date;not null;index" json:"payment_date"`
	Method        string          `gorm:"size:20;not null;default:transferencia" json:"method"`
	PaymentType   string          `gorm:"size:20;not null;default:installment;index" json:"payment_type"`
	ReceiptNumber *string         `gorm:"size:100" json:"receipt_number"`
	ReceiptDate   *time.Time      `gorm:"type:date" json:"receipt_date"`
	Notes         string          `gorm:"type:text" json:"notes"`
	RecordedByID  *uint           `gorm:"index" json:"recorded_by_id"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Associations
	Sale        *Sale        `gorm:"foreignKey:SaleID" json:"sale,omitempty"`
	Installment *Installment `gorm:"foreignKey:InstallmentID" json:"installment,omitempty"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// Payment method constants
const (
	PaymentMethodCash     = "efectivo"
	PaymentMethodTransfer = "transferencia"
	PaymentMethodCard     = "tarjeta"
	PaymentMethodOther    = "otro"
)

// Payment type constants
const (
	PaymentTypeInitial     = "initial"
	PaymentTypeInstallment = "installment"
)

// PaymentResponse is the JSON response format for payments
type PaymentResponse struct {
	ID                uint            `json:"id"`
	SaleID            uint            `json:"sale_id"`
	InstallmentID     *uint           `json:"installment_id"`
	InstallmentNumber *int            `json:"installment_number,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	AmountInWords     string          `json:"amount_in_words"`
	PaymentDate       string          `json:"payment_date"`
	Method            string          `json:"method"`
	PaymentType       string          `json:"payment_type"`
	ReceiptNumber     *string         `json:"receipt_number"`
	ReceiptDate       *string         `json:"receipt_date"`
	Notes             string          `json:"notes"`
	RecordedByID      *uint           `json:"recorded_by_id"`
	CustomerName      string          `json:"customer_name,omitempty"`
	LotDisplay        string          `json:"lot_display,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToResponse converts Payment to PaymentResponse
func (p *Payment) ToResponse() PaymentResponse {
	resp := PaymentResponse{
		ID:            p.ID,
		SaleID:        p.SaleID,
		InstallmentID: p.InstallmentID,
		Amount:        p.Amount,
		AmountInWords: AmountInWords(p.Amount),
		PaymentDate:   p.PaymentDate.Format(DateLayout),
		Method:        p.Method,
		PaymentType:   p.PaymentType,
		ReceiptNumber: p.ReceiptNumber,
		ReceiptDate:   formatDatePtr(p.ReceiptDate),
		Notes:         p.Notes,
		RecordedByID:  p.RecordedByID,
		CreatedAt:     p.CreatedAt,
	}

	if p.Installment != nil {
		n := p.Installment.InstallmentNumber
		resp.InstallmentNumber = &n
	}
	if p.Sale != nil {
		if p.Sale.Customer.ID != 0 {
			resp.CustomerName = p.Sale.Customer.FullName()
		}
		if p.Sale.Lot.ID != 0 {
			resp.LotDisplay = p.Sale.Lot.Display()
		}
	}

	return resp
}
