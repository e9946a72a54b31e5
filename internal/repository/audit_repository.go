package repository

import (
	"context"

	"github.com/sjperalta/lotes-api/internal/models"
	"gorm.io/gorm"
)

// AuditRepository defines the interface for audit log access
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, query *AuditQuery) ([]models.AuditLog, int64, error)
}

// AuditQuery filters audit logs by entity
type AuditQuery struct {
	*ListQuery
	Entity   string
	EntityID uint
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, query *AuditQuery) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query.Normalize()
	db := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if query.Entity != "" {
		db = db.Where("entity = ?", query.Entity)
	}
	if query.EntityID > 0 {
		db = db.Where("entity_id = ?", query.EntityID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC, id DESC").
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&logs).Error
	return logs, total, err
}
