package repository

import (
	"context"
	"time"

	"github.com/sjperalta/lotes-api/internal/models"
	"gorm.io/gorm"
)

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Payment, error)
	FindBySale(ctx context.Context, saleID uint) ([]models.Payment, error)
	FindByInstallment(ctx context.Context, installmentID uint) ([]models.Payment, error)
	FindInitialBySale(ctx context.Context, saleID uint) ([]models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	DeleteByInstallment(ctx context.Context, installmentID uint) (int64, error)
	List(ctx context.Context, query *PaymentQuery) ([]models.Payment, int64, error)
	Latest(ctx context.Context, limit int) ([]models.Payment, error)
}

// PaymentQuery extends ListQuery with payment-specific filters
type PaymentQuery struct {
	*ListQuery
	SaleID        uint
	InstallmentID uint
	PaymentType   string
	Method        string
	From          *time.Time
	To            *time.Time
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Installment").
		First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindBySale(ctx context.Context, saleID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Preload("Installment").
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) FindByInstallment(ctx context.Context, installmentID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("installment_id = ?", installmentID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) FindInitialBySale(ctx context.Context, saleID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("sale_id = ? AND payment_type = ?", saleID, models.PaymentTypeInitial).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Omit("Sale", "Installment").Create(payment).Error
}

func (r *paymentRepository) DeleteByInstallment(ctx context.Context, installmentID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("installment_id = ?", installmentID).
		Delete(&models.Payment{})
	return result.RowsAffected, result.Error
}

func (r *paymentRepository) List(ctx context.Context, query *PaymentQuery) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	query.Normalize()
	db := r.db.WithContext(ctx).Model(&models.Payment{})

	if query.SaleID > 0 {
		db = db.Where("payments.sale_id = ?", query.SaleID)
	}
	if query.InstallmentID > 0 {
		db = db.Where("payments.installment_id = ?", query.InstallmentID)
	}
	if query.PaymentType != "" {
		db = db.Where("payments.payment_type = ?", query.PaymentType)
	}
	if query.Method != "" {
		db = db.Where("payments.method = ?", query.Method)
	}
	if query.From != nil {
		db = db.Where("payments.payment_date >= ?", models.DateOnly(*query.From))
	}
	if query.To != nil {
		db = db.Where("payments.payment_date <= ?", models.DateOnly(*query.To))
	}
	if query.Search != "" {
		db = db.Where("LOWER(payments.receipt_number) LIKE ?", searchPattern(query.Search))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = query.order(db, map[string]string{
		"payment_date": "payments.payment_date",
		"amount":       "payments.amount",
		"created_at":   "payments.created_at",
	}, "payments.payment_date DESC, payments.id DESC")

	err := db.
		Preload("Installment").
		Preload("Sale.Customer").
		Preload("Sale.Lot").
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&payments).Error
	return payments, total, err
}

func (r *paymentRepository) Latest(ctx context.Context, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Preload("Installment").
		Preload("Sale.Customer").
		Preload("Sale.Lot").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
