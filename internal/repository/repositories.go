package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories holds all repository instances bound to one database handle
type Repositories struct {
	db *gorm.DB

	Lot         LotRepository
	Customer    CustomerRepository
	Sale        SaleRepository
	Installment InstallmentRepository
	Payment     PaymentRepository
	Ledger      LedgerRepository
	Audit       AuditRepository
	Dashboard   DashboardRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:          db,
		Lot:         NewLotRepository(db),
		Customer:    NewCustomerRepository(db),
		Sale:        NewSaleRepository(db),
		Installment: NewInstallmentRepository(db),
		Payment:     NewPaymentRepository(db),
		Ledger:      NewLedgerRepository(db),
		Audit:       NewAuditRepository(db),
		Dashboard:   NewDashboardRepository(db),
	}
}

// Transaction runs fn with repositories bound to a single transaction.
// Calling Transaction on a transactional set opens a savepoint, so a failing
// inner fn only rolls back its own writes.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
