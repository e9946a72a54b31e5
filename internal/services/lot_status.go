package services

import (
	"context"
	"fmt"

	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/pkg/logger"
)

// RecomputeLotStatus derives a lot's status from its sales and persists it when it changed.
// An active sale means sold, otherwise a completed sale means settled, otherwise available.
// A lot marked reserved by hand keeps that status while it has no sales at all.
func RecomputeLotStatus(ctx context.Context, tx *repository.Repositories, lotID uint) (string, error) {
	lot, err := tx.Lot.FindByID(ctx, lotID)
	if err != nil {
		return "", translateRepoError(err, "lote")
	}

	status, err := deriveLotStatus(ctx, tx, lot)
	if err != nil {
		return "", err
	}
	if status == lot.Status {
		return status, nil
	}

	if err := tx.Lot.UpdateStatus(ctx, lotID, status); err != nil {
		return "", fmt.Errorf("failed to update lot status: %w", err)
	}
	logger.Debug("lot status recomputed", "lot_id", lotID, "from", lot.Status, "to", status)
	return status, nil
}

func deriveLotStatus(ctx context.Context, tx *repository.Repositories, lot *models.Lot) (string, error) {
	active, err := tx.Sale.HasActiveByLot(ctx, lot.ID, 0)
	if err != nil {
		return "", fmt.Errorf("failed to check active sales: %w", err)
	}
	if active {
		return models.LotStatusSold, nil
	}

	completed, err := tx.Sale.HasCompletedByLot(ctx, lot.ID)
	if err != nil {
		return "", fmt.Errorf("failed to check completed sales: %w", err)
	}
	if completed {
		return models.LotStatusSettled, nil
	}

	if lot.Status == models.LotStatusReserved {
		count, err := tx.Sale.CountByLot(ctx, lot.ID)
		if err != nil {
			return "", fmt.Errorf("failed to count sales: %w", err)
		}
		if count == 0 {
			return models.LotStatusReserved, nil
		}
	}
	return models.LotStatusAvailable, nil
}
