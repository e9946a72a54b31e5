package repository

import (
	"context"

	"github.com/sjperalta/lotes-api/internal/models"
	"gorm.io/gorm"
)

// LotRepository defines the interface for lot data access
type LotRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Lot, error)
	FindByBlockAndNumber(ctx context.Context, block, lotNumber string) (*models.Lot, error)
	Create(ctx context.Context, lot *models.Lot) error
	CreateBatch(ctx context.Context, lots []models.Lot) error
	Update(ctx context.Context, lot *models.Lot) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *LotQuery) ([]models.Lot, int64, error)
}

// LotQuery extends ListQuery with lot-specific filters
type LotQuery struct {
	*ListQuery
	Status string
	Block  string
}

type lotRepository struct {
	db *gorm.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *gorm.DB) LotRepository {
	return &lotRepository{db: db}
}

func (r *lotRepository) FindByID(ctx context.Context, id uint) (*models.Lot, error) {
	var lot models.Lot
	if err := r.db.WithContext(ctx).First(&lot, id).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *lotRepository) FindByBlockAndNumber(ctx context.Context, block, lotNumber string) (*models.Lot, error) {
	var lot models.Lot
	err := r.db.WithContext(ctx).
		Where("block = ? AND lot_number = ?", block, lotNumber).
		First(&lot).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *lotRepository) Create(ctx context.Context, lot *models.Lot) error {
	return r.db.WithContext(ctx).Create(lot).Error
}

func (r *lotRepository) CreateBatch(ctx context.Context, lots []models.Lot) error {
	if len(lots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(lots, 100).Error
}

func (r *lotRepository) Update(ctx context.Context, lot *models.Lot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

func (r *lotRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *lotRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Lot{}, id).Error
}

func (r *lotRepository) List(ctx context.Context, query *LotQuery) ([]models.Lot, int64, error) {
	var lots []models.Lot
	var total int64

	query.Normalize()
	db := r.db.WithContext(ctx).Model(&models.Lot{})

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.Block != "" {
		db = db.Where("block = ?", query.Block)
	}
	if query.Search != "" {
		pattern := searchPattern(query.Search)
		db = db.Where("LOWER(block) LIKE ? OR LOWER(lot_number) LIKE ?", pattern, pattern)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = query.order(db, map[string]string{
		"block":      "block",
		"lot_number": "lot_number",
		"price":      "price",
		"area":       "area",
		"status":     "status",
		"created_at": "created_at",
	}, "block ASC, lot_number ASC")

	err := db.Offset(query.Offset()).Limit(query.PerPage).Find(&lots).Error
	return lots, total, err
}
