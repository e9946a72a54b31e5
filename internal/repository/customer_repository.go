package repository

import (
	"context"

	"github.com/sjperalta/lotes-api/internal/models"
	"gorm.io/gorm"
)

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Customer, error)
	FindByDocument(ctx context.Context, documentNumber string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	CreateBatch(ctx context.Context, customers []models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ListQuery) ([]models.Customer, int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) FindByID(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) FindByDocument(ctx context.Context, documentNumber string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).Where("document_number = ?", documentNumber).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *customerRepository) CreateBatch(ctx context.Context, customers []models.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(customers, 100).Error
}

func (r *customerRepository) Update(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

func (r *customerRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Customer{}, id).Error
}

func (r *customerRepository) List(ctx context.Context, query *ListQuery) ([]models.Customer, int64, error) {
	var customers []models.Customer
	var total int64

	query.Normalize()
	db := r.db.WithContext(ctx).Model(&models.Customer{})

	if query.Search != "" {
		pattern := searchPattern(query.Search)
		db = db.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR document_number LIKE ?",
			pattern, pattern, pattern, pattern)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = query.order(db, map[string]string{
		"first_name": "first_name",
		"last_name":  "last_name",
		"created_at": "created_at",
	}, "last_name ASC, first_name ASC")

	err := db.Offset(query.Offset()).Limit(query.PerPage).Find(&customers).Error
	return customers, total, err
}
