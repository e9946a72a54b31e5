package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
)

// CustomerInput is used for both create and full update
type CustomerInput struct {
	FirstName      string `json:"first_name" validate:"required,max=100"`
	LastName       string `json:"last_name" validate:"required,max=100"`
	Email          string `json:"email" validate:"omitempty,email,max=255"`
	Phone          string `json:"phone" validate:"max=30"`
	Address        string `json:"address" validate:"max=500"`
	DocumentType   string `json:"document_type" validate:"max=20"`
	DocumentNumber string `json:"document_number" validate:"max=50"`
}

type CustomerService struct {
	repos    *repository.Repositories
	auditSvc *AuditService
	notify   func()
}

func NewCustomerService(repos *repository.Repositories, auditSvc *AuditService, notify func()) *CustomerService {
	return &CustomerService{repos: repos, auditSvc: auditSvc, notify: notify}
}

func (s *CustomerService) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	customer, err := s.repos.Customer.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "cliente")
	}
	return customer, nil
}

func (s *CustomerService) ListCustomers(ctx context.Context, query *repository.ListQuery) ([]models.Customer, int64, error) {
	return s.repos.Customer.List(ctx, query)
}

// CreateCustomer registers a buyer. Document numbers are unique when present.
func (s *CustomerService) CreateCustomer(ctx context.Context, input CustomerInput, actor Actor) (*models.Customer, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	customer := &models.Customer{}
	applyCustomerInput(customer, input)
	if err := s.repos.Customer.Create(ctx, customer); err != nil {
		return nil, translateRepoError(err, "cliente")
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionCreate, "Customer", customer.ID, "Cliente creado: "+customer.FullName())
	s.changed()
	return customer, nil
}

// BulkCreateCustomers registers many customers in one transaction
func (s *CustomerService) BulkCreateCustomers(ctx context.Context, inputs []CustomerInput, actor Actor) ([]models.Customer, error) {
	if len(inputs) == 0 {
		return nil, invalid("no se enviaron clientes")
	}

	customers := make([]models.Customer, len(inputs))
	documents := make(map[string]int, len(inputs))
	for i, input := range inputs {
		if err := validateStruct(input); err != nil {
			return nil, fmt.Errorf("fila %d: %w", i+1, err)
		}
		applyCustomerInput(&customers[i], input)
		if doc := customers[i].DocumentNumber; doc != nil {
			if prev, ok := documents[*doc]; ok {
				return nil, fmt.Errorf("filas %d y %d: documento %s: %w", prev, i+1, *doc, ErrDuplicate)
			}
			documents[*doc] = i + 1
		}
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Customer.CreateBatch(ctx, customers); err != nil {
			return translateRepoError(err, "clientes")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionCreate, "Customer", 0, fmt.Sprintf("%d clientes creados en lote", len(customers)))
	s.changed()
	return customers, nil
}

func (s *CustomerService) UpdateCustomer(ctx context.Context, id uint, input CustomerInput, actor Actor) (*models.Customer, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	customer, err := s.repos.Customer.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "cliente")
	}
	applyCustomerInput(customer, input)
	if err := s.repos.Customer.Update(ctx, customer); err != nil {
		return nil, translateRepoError(err, "cliente")
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionUpdate, "Customer", id, "Cliente actualizado: "+customer.FullName())
	return customer, nil
}

// DeleteCustomer removes a customer that has no sales
func (s *CustomerService) DeleteCustomer(ctx context.Context, id uint, actor Actor) error {
	var customer *models.Customer
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		customer, err = tx.Customer.FindByID(ctx, id)
		if err != nil {
			return translateRepoError(err, "cliente")
		}
		count, err := tx.Sale.CountByCustomer(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count sales: %w", err)
		}
		if count > 0 {
			return ErrCustomerHasSales
		}
		return tx.Customer.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionDelete, "Customer", id, "Cliente eliminado: "+customer.FullName())
	s.changed()
	return nil
}

func (s *CustomerService) changed() {
	if s.notify != nil {
		s.notify()
	}
}

func applyCustomerInput(c *models.Customer, input CustomerInput) {
	c.FirstName = strings.TrimSpace(input.FirstName)
	c.LastName = strings.TrimSpace(input.LastName)
	c.Email = optionalString(strings.ToLower(input.Email))
	c.Phone = optionalString(input.Phone)
	c.Address = optionalString(input.Address)
	c.DocumentType = optionalString(input.DocumentType)
	c.DocumentNumber = optionalString(input.DocumentNumber)
}
