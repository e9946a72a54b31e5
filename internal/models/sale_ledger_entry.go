package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleLedgerEntry is one money movement on a sale.
// Positive amounts are owed by the customer, negative amounts are credits.
type SaleLedgerEntry struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	SaleID        uint            `json:"sale_id" gorm:"not null;index"`
	PaymentID     *uint           `json:"payment_id,omitempty" gorm:"index"`
	InstallmentID *uint           `json:"installment_id,omitempty" gorm:"index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Description   string          `json:"description" gorm:"not null"`
	EntryType     string          `json:"entry_type" gorm:"size:20;not null;index"`
	EntryDate     time.Time       `json:"entry_date" gorm:"not null"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Entry type constants
const (
	EntryTypeSale           = "sale"            // Sale price (debit)
	EntryTypePayment        = "payment"         // Installment payment (credit)
	EntryTypeInitialPayment = "initial_payment" // Initial payment (credit)
	EntryTypeForgiveness    = "forgiveness"     // Forgiven remainder (credit)
	EntryTypeReversal       = "reversal"        // Reset of installment payments (debit)
	EntryTypeAdjustment     = "adjustment"      // Price change
)

// TableName specifies the table name for GORM
func (SaleLedgerEntry) TableName() string {
	return "sale_ledger_entries"
}

// LedgerBalance sums the amounts of the given entries
func LedgerBalance(entries []SaleLedgerEntry) decimal.Decimal {
	balance := decimal.Zero
	for i := range entries {
		balance = balance.Add(entries[i].Amount)
	}
	return balance
}
