package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/pkg/logger"
)

// CreateLotInput registers a parcel
type CreateLotInput struct {
	Block     string          `json:"block" validate:"required,max=50"`
	LotNumber string          `json:"lot_number" validate:"required,max=50"`
	Area      decimal.Decimal `json:"area" validate:"gt=0"`
	Price     decimal.Decimal `json:"price" validate:"gt=0"`
	Status    string          `json:"status" validate:"omitempty,oneof=available reserved"`
	Notes     string          `json:"notes" validate:"max=2000"`
}

// UpdateLotInput changes a parcel. Nil fields are left as they are.
// Status may only be set by hand between available and reserved.
type UpdateLotInput struct {
	Block     *string          `json:"block" validate:"omitempty,min=1,max=50"`
	LotNumber *string          `json:"lot_number" validate:"omitempty,min=1,max=50"`
	Area      *decimal.Decimal `json:"area" validate:"omitempty,gt=0"`
	Price     *decimal.Decimal `json:"price" validate:"omitempty,gt=0"`
	Status    *string          `json:"status" validate:"omitempty,oneof=available reserved"`
	Notes     *string          `json:"notes" validate:"omitempty,max=2000"`
}

type LotService struct {
	repos    *repository.Repositories
	auditSvc *AuditService
	notify   func()
}

func NewLotService(repos *repository.Repositories, auditSvc *AuditService, notify func()) *LotService {
	return &LotService{repos: repos, auditSvc: auditSvc, notify: notify}
}

// GetLot returns a lot by ID
func (s *LotService) GetLot(ctx context.Context, id uint) (*models.Lot, error) {
	lot, err := s.repos.Lot.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "lote")
	}
	return lot, nil
}

func (s *LotService) ListLots(ctx context.Context, query *repository.LotQuery) ([]models.Lot, int64, error) {
	return s.repos.Lot.List(ctx, query)
}

// CreateLot registers a single lot. Block and lot number must be unique together.
func (s *LotService) CreateLot(ctx context.Context, input CreateLotInput, actor Actor) (*models.Lot, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	lot := newLot(input)
	if err := s.repos.Lot.Create(ctx, lot); err != nil {
		return nil, translateRepoError(err, "lote "+lot.Display())
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionCreate, "Lot", lot.ID,
		fmt.Sprintf("Lote creado: %s, precio %s", lot.Display(), lot.Price.StringFixed(2)))
	s.changed()
	return lot, nil
}

// BulkCreateLots registers many lots at once; any invalid or duplicate row aborts the whole batch
func (s *LotService) BulkCreateLots(ctx context.Context, inputs []CreateLotInput, actor Actor) ([]models.Lot, error) {
	if len(inputs) == 0 {
		return nil, invalid("no se enviaron lotes")
	}

	lots := make([]models.Lot, 0, len(inputs))
	seen := make(map[string]int, len(inputs))
	for i, input := range inputs {
		if err := validateStruct(input); err != nil {
			return nil, fmt.Errorf("fila %d: %w", i+1, err)
		}
		lot := newLot(input)
		key := strings.ToLower(lot.Block + "/" + lot.LotNumber)
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("filas %d y %d: %s: %w", prev, i+1, lot.Display(), ErrDuplicate)
		}
		seen[key] = i + 1
		lots = append(lots, *lot)
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Lot.CreateBatch(ctx, lots); err != nil {
			return translateRepoError(err, "lotes")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("lots created in bulk", "count", len(lots))
	s.auditSvc.Log(ctx, actor, models.AuditActionCreate, "Lot", 0, fmt.Sprintf("%d lotes creados en lote", len(lots)))
	s.changed()
	return lots, nil
}

// UpdateLot changes lot data. Manual status changes are refused once the lot is sold or settled.
func (s *LotService) UpdateLot(ctx context.Context, id uint, input UpdateLotInput, actor Actor) (*models.Lot, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var lot *models.Lot
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		lot, err = tx.Lot.FindByID(ctx, id)
		if err != nil {
			return translateRepoError(err, "lote")
		}

		if input.Block != nil {
			if lot.Block = strings.TrimSpace(*input.Block); lot.Block == "" {
				return invalid("el campo block es obligatorio")
			}
		}
		if input.LotNumber != nil {
			if lot.LotNumber = strings.TrimSpace(*input.LotNumber); lot.LotNumber == "" {
				return invalid("el campo lot_number es obligatorio")
			}
		}
		if input.Area != nil {
			lot.Area = *input.Area
		}
		if input.Price != nil {
			lot.Price = *input.Price
		}
		if input.Notes != nil {
			lot.Notes = strings.TrimSpace(*input.Notes)
		}
		if input.Status != nil && *input.Status != lot.Status {
			active, err := tx.Sale.HasActiveByLot(ctx, id, 0)
			if err != nil {
				return fmt.Errorf("failed to check active sales: %w", err)
			}
			if active || lot.Status == models.LotStatusSold || lot.Status == models.LotStatusSettled {
				return fmt.Errorf("%w: el lote está %s", ErrInvalidState, lot.Status)
			}
			lot.Status = *input.Status
		}

		if err := tx.Lot.Update(ctx, lot); err != nil {
			return translateRepoError(err, "lote "+lot.Display())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionUpdate, "Lot", lot.ID, "Lote actualizado: "+lot.Display())
	s.changed()
	return lot, nil
}

// DeleteLot removes a lot that never had a sale
func (s *LotService) DeleteLot(ctx context.Context, id uint, actor Actor) error {
	var lot *models.Lot
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		lot, err = tx.Lot.FindByID(ctx, id)
		if err != nil {
			return translateRepoError(err, "lote")
		}
		count, err := tx.Sale.CountByLot(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count sales: %w", err)
		}
		if count > 0 {
			return ErrLotHasSales
		}
		return tx.Lot.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionDelete, "Lot", id, "Lote eliminado: "+lot.Display())
	s.changed()
	return nil
}

func (s *LotService) changed() {
	if s.notify != nil {
		s.notify()
	}
}

func newLot(input CreateLotInput) *models.Lot {
	status := input.Status
	if status == "" {
		status = models.LotStatusAvailable
	}
	return &models.Lot{
		Block:     strings.TrimSpace(input.Block),
		LotNumber: strings.TrimSpace(input.LotNumber),
		Area:      input.Area,
		Price:     input.Price,
		Status:    status,
		Notes:     strings.TrimSpace(input.Notes),
	}
}
