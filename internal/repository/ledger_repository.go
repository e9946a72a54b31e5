package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/lotes-api/internal/models"
	"gorm.io/gorm"
)

// LedgerRepository defines the interface for sale ledger data access
type LedgerRepository interface {
	Create(ctx context.Context, entry *models.SaleLedgerEntry) error
	FindBySale(ctx context.Context, saleID uint) ([]models.SaleLedgerEntry, error)
	FindByPayment(ctx context.Context, paymentID uint) ([]models.SaleLedgerEntry, error)
	CalculateBalance(ctx context.Context, saleID uint) (decimal.Decimal, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Create(ctx context.Context, entry *models.SaleLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ledgerRepository) FindBySale(ctx context.Context, saleID uint) ([]models.SaleLedgerEntry, error) {
	var entries []models.SaleLedgerEntry
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("entry_date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *ledgerRepository) FindByPayment(ctx context.Context, paymentID uint) ([]models.SaleLedgerEntry, error) {
	var entries []models.SaleLedgerEntry
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("entry_date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// CalculateBalance sums the ledger of a sale.
// Debits are positive, credits negative.
func (r *ledgerRepository) CalculateBalance(ctx context.Context, saleID uint) (decimal.Decimal, error) {
	entries, err := r.FindBySale(ctx, saleID)
	if err != nil {
		return decimal.Zero, err
	}
	return models.LedgerBalance(entries), nil
}
