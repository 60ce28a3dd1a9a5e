package repository

import (
	"context"
	"fmt"

	"salesboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OfferMappingRepository interface {
	OfferCodesByFunnels(ctx context.Context, projectID uuid.UUID, funnelIDs []uuid.UUID) ([]string, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.OfferMapping, error)
	ListFunnels(ctx context.Context, projectID uuid.UUID) ([]model.Funnel, error)
	ListProjectIDs(ctx context.Context) ([]uuid.UUID, error)
}

type offerMappingRepository struct {
	db *gorm.DB
}

func NewOfferMappingRepository(db *gorm.DB) OfferMappingRepository {
	return &offerMappingRepository{db: db}
}

func (r *offerMappingRepository) OfferCodesByFunnels(ctx context.Context, projectID uuid.UUID, funnelIDs []uuid.UUID) ([]string, error) {
	if len(funnelIDs) == 0 {
		return nil, nil
	}

	var codes []string
	if err := GetDB(ctx, r.db).Model(&model.OfferMapping{}).
		Distinct("offer_code").
		Where("project_id = ? AND funnel_id IN ? AND offer_code <> ''", projectID, funnelIDs).
		Pluck("offer_code", &codes).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve funnel offers: %w", err)
	}
	return codes, nil
}

// ListByProject also returns mappings that lost their project id but still
// point at one of the project's funnels.
func (r *offerMappingRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.OfferMapping, error) {
	db := GetDB(ctx, r.db)
	funnels := db.Model(&model.Funnel{}).Select("id").Where("project_id = ?", projectID)

	var mappings []model.OfferMapping
	if err := db.
		Where("project_id = ?", projectID).
		Or("project_id IS NULL AND funnel_id IN (?)", funnels).
		Order("created_at").
		Find(&mappings).Error; err != nil {
		return nil, fmt.Errorf("failed to list offer mappings: %w", err)
	}
	return mappings, nil
}

func (r *offerMappingRepository) ListFunnels(ctx context.Context, projectID uuid.UUID) ([]model.Funnel, error) {
	var funnels []model.Funnel
	if err := GetDB(ctx, r.db).Where("project_id = ?", projectID).Order("name").Find(&funnels).Error; err != nil {
		return nil, fmt.Errorf("failed to list funnels: %w", err)
	}
	return funnels, nil
}

func (r *offerMappingRepository) ListProjectIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := GetDB(ctx, r.db).Model(&model.Funnel{}).Distinct("project_id").Pluck("project_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return ids, nil
}
