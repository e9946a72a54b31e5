package repository

import (
	"context"
	"time"

	"github.com/sjperalta/lotes-api/internal/models"
	"gorm.io/gorm"
)

// InstallmentRepository defines the interface for installment data access
type InstallmentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Installment, error)
	FindBySale(ctx context.Context, saleID uint) ([]models.Installment, error)
	CountBySale(ctx context.Context, saleID uint) (int64, error)
	HasPaymentsBySale(ctx context.Context, saleID uint) (bool, error)
	CreateBatch(ctx context.Context, installments []models.Installment) error
	Update(ctx context.Context, installment *models.Installment) error
	DeleteBySale(ctx context.Context, saleID uint) error
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
	FindUpcoming(ctx context.Context, limit int) ([]models.Installment, error)
	FindOverdue(ctx context.Context, limit int) ([]models.Installment, error)
	CountOverdueForActiveSales(ctx context.Context) (int64, error)
}

type installmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository creates a new installment repository
func NewInstallmentRepository(db *gorm.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) FindByID(ctx context.Context, id uint) (*models.Installment, error) {
	var installment models.Installment
	if err := r.db.WithContext(ctx).First(&installment, id).Error; err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *installmentRepository) FindBySale(ctx context.Context, saleID uint) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("installment_number ASC").
		Find(&installments).Error
	return installments, err
}

func (r *installmentRepository) CountBySale(ctx context.Context, saleID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Installment{}).Where("sale_id = ?", saleID).Count(&count).Error
	return count, err
}

// HasPaymentsBySale reports whether any installment of the sale carries money or was forgiven
func (r *installmentRepository) HasPaymentsBySale(ctx context.Context, saleID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Installment{}).
		Where("sale_id = ? AND (paid_amount > 0 OR is_forgiven = ?)", saleID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *installmentRepository) CreateBatch(ctx context.Context, installments []models.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Sale", "Payments").CreateInBatches(installments, 100).Error
}

func (r *installmentRepository) Update(ctx context.Context, installment *models.Installment) error {
	return r.db.WithContext(ctx).Omit("Sale", "Payments").Save(installment).Error
}

func (r *installmentRepository) DeleteBySale(ctx context.Context, saleID uint) error {
	return r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Delete(&models.Installment{}).Error
}

// MarkOverdue flips pending installments of active sales whose due date is before today
func (r *installmentRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	activeSales := r.db.Model(&models.Sale{}).Select("id").Where("status = ?", models.SaleStatusActive)

	result := r.db.WithContext(ctx).
		Model(&models.Installment{}).
		Where("status = ? AND due_date < ?", models.InstallmentStatusPending, models.DateOnly(today)).
		Where("sale_id IN (?)", activeSales).
		Updates(map[string]interface{}{
			"status":     models.InstallmentStatusOverdue,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *installmentRepository) FindUpcoming(ctx context.Context, limit int) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Joins("JOIN sales ON sales.id = installments.sale_id").
		Where("sales.status = ? AND installments.status = ?", models.SaleStatusActive, models.InstallmentStatusPending).
		Preload("Sale.Customer").
		Preload("Sale.Lot").
		Order("installments.due_date ASC, installments.id ASC").
		Limit(limit).
		Find(&installments).Error
	return installments, err
}

func (r *installmentRepository) FindOverdue(ctx context.Context, limit int) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Joins("JOIN sales ON sales.id = installments.sale_id").
		Where("sales.status = ? AND installments.status = ?", models.SaleStatusActive, models.InstallmentStatusOverdue).
		Preload("Sale.Customer").
		Preload("Sale.Lot").
		Order("installments.due_date ASC, installments.id ASC").
		Limit(limit).
		Find(&installments).Error
	return installments, err
}

func (r *installmentRepository) CountOverdueForActiveSales(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Installment{}).
		Joins("JOIN sales ON sales.id = installments.sale_id").
		Where("sales.status = ? AND installments.status = ?", models.SaleStatusActive, models.InstallmentStatusOverdue).
		Count(&count).Error
	return count, err
}
