package repository

import (
	"context"
	"fmt"

	"salesboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LegacySaleRepository interface {
	FindByTransactionIDs(ctx context.Context, projectID uuid.UUID, ids []string) ([]model.LegacySale, error)
}

type legacySaleRepository struct {
	db *gorm.DB
}

func NewLegacySaleRepository(db *gorm.DB) LegacySaleRepository {
	return &legacySaleRepository{db: db}
}

// FindByTransactionIDs returns the legacy rows for ids, newest update first.
// Callers keep len(ids) within the source's per-request cap.
func (r *legacySaleRepository) FindByTransactionIDs(ctx context.Context, projectID uuid.UUID, ids []string) ([]model.LegacySale, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var sales []model.LegacySale
	if err := GetDB(ctx, r.db).
		Where("project_id = ? AND transaction_id IN ?", projectID, ids).
		Order("updated_at DESC").
		Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to query legacy sales: %w", err)
	}
	return sales, nil
}
