package repository

import (
	"context"
	"strings"

	"github.com/sjperalta/lotes-api/internal/models"
	"gorm.io/gorm"
)

// SaleRepository defines the interface for sale data access
type SaleRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Sale, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Sale, error)
	FindByLot(ctx context.Context, lotID uint) ([]models.Sale, error)
	FindActiveByLot(ctx context.Context, lotID uint) (*models.Sale, error)
	HasActiveByLot(ctx context.Context, lotID uint, excludeSaleID uint) (bool, error)
	HasCompletedByLot(ctx context.Context, lotID uint) (bool, error)
	CountByLot(ctx context.Context, lotID uint) (int64, error)
	CountByCustomer(ctx context.Context, customerID uint) (int64, error)
	Create(ctx context.Context, sale *models.Sale) error
	Update(ctx context.Context, sale *models.Sale) error
	List(ctx context.Context, query *SaleQuery) ([]models.Sale, int64, error)
	GetStats(ctx context.Context) (*SaleStats, error)
}

// SaleQuery extends ListQuery with sale-specific filters
type SaleQuery struct {
	*ListQuery
	Status     string
	LotID      uint
	CustomerID uint
}

// SaleStats holds sale counts by status
type SaleStats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	Suspended int64 `json:"suspended"`
}

type saleRepository struct {
	db *gorm.DB
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) FindByID(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).First(&sale, id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	// Lot and Customer come in through joins; the one-to-many sets need their own queries
	err := r.db.WithContext(ctx).
		Joins("Lot").
		Joins("Customer").
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number ASC")
		}).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("payment_date ASC, id ASC")
		}).
		First(&sale, id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindByLot(ctx context.Context, lotID uint) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Preload("Customer").
		Order("sale_date DESC, id DESC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepository) FindActiveByLot(ctx context.Context, lotID uint) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Where("lot_id = ? AND status = ?", lotID, models.SaleStatusActive).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) HasActiveByLot(ctx context.Context, lotID uint, excludeSaleID uint) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("lot_id = ? AND status = ?", lotID, models.SaleStatusActive)
	if excludeSaleID > 0 {
		db = db.Where("id <> ?", excludeSaleID)
	}
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *saleRepository) HasCompletedByLot(ctx context.Context, lotID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("lot_id = ? AND status = ?", lotID, models.SaleStatusCompleted).
		Count(&count).Error
	return count > 0, err
}

func (r *saleRepository) CountByLot(ctx context.Context, lotID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Sale{}).Where("lot_id = ?", lotID).Count(&count).Error
	return count, err
}

func (r *saleRepository) CountByCustomer(ctx context.Context, customerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Sale{}).Where("customer_id = ?", customerID).Count(&count).Error
	return count, err
}

func (r *saleRepository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Omit("Lot", "Customer", "Installments", "Payments", "LedgerEntries").Create(sale).Error
}

func (r *saleRepository) Update(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Omit("Lot", "Customer", "Installments", "Payments", "LedgerEntries").Save(sale).Error
}

func (r *saleRepository) List(ctx context.Context, query *SaleQuery) ([]models.Sale, int64, error) {
	var sales []models.Sale
	var total int64

	query.Normalize()
	db := r.db.WithContext(ctx).Model(&models.Sale{})

	// Apply status filter (single or multiple via status_in)
	if val := query.Filters["status_in"]; val != "" {
		statuses := strings.Split(val, ",")
		for i, s := range statuses {
			statuses[i] = strings.TrimSpace(s)
		}
		db = db.Where("sales.status IN ?", statuses)
	} else if query.Status != "" {
		db = db.Where("sales.status = ?", query.Status)
	}

	if query.LotID > 0 {
		db = db.Where("sales.lot_id = ?", query.LotID)
	}
	if query.CustomerID > 0 {
		db = db.Where("sales.customer_id = ?", query.CustomerID)
	}

	if query.Search != "" {
		pattern := searchPattern(query.Search)
		customers := r.db.Model(&models.Customer{}).Select("id").
			Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR document_number LIKE ?", pattern, pattern, pattern)
		lots := r.db.Model(&models.Lot{}).Select("id").
			Where("LOWER(block) LIKE ? OR LOWER(lot_number) LIKE ?", pattern, pattern)
		db = db.Where("sales.reference LIKE ? OR sales.customer_id IN (?) OR sales.lot_id IN (?)", pattern, customers, lots)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = query.order(db, map[string]string{
		"sale_date":  "sales.sale_date",
		"sale_price": "sales.sale_price",
		"status":     "sales.status",
		"created_at": "sales.created_at",
	}, "sales.sale_date DESC, sales.id DESC")

	err := db.
		Preload("Lot").
		Preload("Customer").
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&sales).Error
	return sales, total, err
}

func (r *saleRepository) GetStats(ctx context.Context) (*SaleStats, error) {
	stats := &SaleStats{}

	rows, err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("status, count(*) as count").
		Group("status").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch status {
		case models.SaleStatusActive:
			stats.Active = count
		case models.SaleStatusCompleted:
			stats.Completed = count
		case models.SaleStatusCancelled:
			stats.Cancelled = count
		case models.SaleStatusSuspended:
			stats.Suspended = count
		}
	}

	return stats, rows.Err()
}
