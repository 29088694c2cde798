package services

import (
	"context"
	"fmt"

	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/repositories"

	"github.com/google/uuid"
)

// MaterialService handles stocked parts and their stock bookkeeping
type MaterialService interface {
	CreateMaterial(ctx context.Context, tenantID uuid.UUID, material *models.Material) error
	GetMaterialByID(ctx context.Context, tenantID, materialID uuid.UUID) (*models.Material, error)
	ListMaterials(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Material, error)
	UpdateMaterial(ctx context.Context, tenantID, materialID uuid.UUID, patch map[string]any) (int64, error)
	AdjustStock(ctx context.Context, tenantID, materialID uuid.UUID, delta int) (*models.Material, error)
	DeleteMaterial(ctx context.Context, tenantID, materialID uuid.UUID) (int64, error)
}

type materialService struct {
	materialRepo repositories.MaterialRepository
}

func NewMaterialService(materialRepo repositories.MaterialRepository) MaterialService {
	return &materialService{materialRepo: materialRepo}
}

func (s *materialService) CreateMaterial(ctx context.Context, tenantID uuid.UUID, material *models.Material) error {
	if err := common.ValidateRequiredString(material.Name, "name"); err != nil {
		return err
	}
	if err := common.ValidateRequiredString(material.SKU, "sku"); err != nil {
		return err
	}
	if material.UnitPriceCents < 0 {
		return fmt.Errorf("unit price cannot be negative")
	}
	if material.Stock < 0 {
		return fmt.Errorf("stock cannot be negative")
	}

	if err := s.materialRepo.Create(ctx, tenantID, material); err != nil {
		return common.SecureErrorMessage("create material", err)
	}
	return nil
}

func (s *materialService) GetMaterialByID(ctx context.Context, tenantID, materialID uuid.UUID) (*models.Material, error) {
	return s.materialRepo.GetByID(ctx, tenantID, materialID)
}

func (s *materialService) ListMaterials(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Material, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.materialRepo.List(ctx, tenantID, limit, offset)
}

func (s *materialService) UpdateMaterial(ctx context.Context, tenantID, materialID uuid.UUID, patch map[string]any) (int64, error) {
	if price, ok := patch["unit_price_cents"].(int64); ok && price < 0 {
		return 0, fmt.Errorf("unit price cannot be negative")
	}

	affected, err := s.materialRepo.Update(ctx, tenantID, materialID, patch)
	if err != nil {
		return 0, common.SecureErrorMessage("update material", err)
	}
	return affected, nil
}

// AdjustStock applies a delta after checking it keeps stock non-negative. The
// read-modify-write goes through the scoped store, so a foreign material id
// still reads as not found.
func (s *materialService) AdjustStock(ctx context.Context, tenantID, materialID uuid.UUID, delta int) (*models.Material, error) {
	material, err := s.materialRepo.GetByID(ctx, tenantID, materialID)
	if err != nil {
		return nil, fmt.Errorf("material not found")
	}

	newStock := material.Stock + delta
	if newStock < 0 {
		return nil, fmt.Errorf("stock adjustment would go negative: %d%+d", material.Stock, delta)
	}

	if _, err := s.materialRepo.Update(ctx, tenantID, materialID, map[string]any{"stock": newStock}); err != nil {
		return nil, common.SecureErrorMessage("adjust stock", err)
	}

	material.Stock = newStock
	return material, nil
}

func (s *materialService) DeleteMaterial(ctx context.Context, tenantID, materialID uuid.UUID) (int64, error) {
	return s.materialRepo.Delete(ctx, tenantID, materialID)
}
