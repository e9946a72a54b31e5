package repository

import (
	"context"

	"github.com/sjperalta/lotes-api/internal/models"
	"gorm.io/gorm"
)

// DashboardCounts holds the headline numbers of the dashboard
type DashboardCounts struct {
	TotalCustomers      int64 `json:"total_customers"`
	TotalLots           int64 `json:"total_lots"`
	AvailableLots       int64 `json:"available_lots"`
	SoldLots            int64 `json:"sold_lots"`
	ReservedLots        int64 `json:"reserved_lots"`
	SettledLots         int64 `json:"settled_lots"`
	ActiveSales         int64 `json:"active_sales"`
	OverdueInstallments int64 `json:"overdue_installments"`
}

// DashboardRepository aggregates counts across lots, customers and installments
type DashboardRepository interface {
	GetCounts(ctx context.Context) (*DashboardCounts, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository creates a new dashboard repository
func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) GetCounts(ctx context.Context) (*DashboardCounts, error) {
	counts := &DashboardCounts{}
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Customer{}).Count(&counts.TotalCustomers).Error; err != nil {
		return nil, err
	}

	rows, err := db.Model(&models.Lot{}).
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
		counts.TotalLots += count
		switch status {
		case models.LotStatusAvailable:
			counts.AvailableLots = count
		case models.LotStatusSold:
			counts.SoldLots = count
		case models.LotStatusReserved:
			counts.ReservedLots = count
		case models.LotStatusSettled:
			counts.SettledLots = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.Model(&models.Sale{}).
		Where("status = ?", models.SaleStatusActive).
		Count(&counts.ActiveSales).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Installment{}).
		Joins("JOIN sales ON sales.id = installments.sale_id").
		Where("sales.status = ? AND installments.status = ?", models.SaleStatusActive, models.InstallmentStatusOverdue).
		Count(&counts.OverdueInstallments).Error; err != nil {
		return nil, err
	}

	return counts, nil
}
