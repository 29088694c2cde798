package repositories

import (
	"context"
	"time"

	"plumbline/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type MaterialRepository interface {
	Create(ctx context.Context, tenantID uuid.UUID, material *models.Material) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Material, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Material, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, patch map[string]any) (int64, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error)
}

type materialRepo struct {
	store *ScopedStore
}

func NewMaterialRepo(store *ScopedStore) MaterialRepository {
	return &materialRepo{store: store}
}

func (r *materialRepo) Create(ctx context.Context, tenantID uuid.UUID, material *models.Material) error {
	if material.ID == uuid.Nil {
		material.ID = uuid.New()
	}
	now := time.Now()
	material.CreatedAt = now
	material.UpdatedAt = now
	material.TenantID = tenantID

	return r.store.Insert(ctx, tenantID, "materials", map[string]any{
		"id":               material.ID,
		"name":             material.Name,
		"sku":              material.SKU,
		"unit_price_cents": material.UnitPriceCents,
		"stock":            material.Stock,
		"created_at":       material.CreatedAt,
		"updated_at":       material.UpdatedAt,
	})
}

func (r *materialRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Material, error) {
	row, err := r.store.QueryByID(ctx, tenantID, "materials", id)
	if err != nil {
		return nil, err
	}
	return scanMaterial(row)
}

func (r *materialRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Material, error) {
	rows, err := r.store.Query(ctx, tenantID, "materials", map[string]any{}, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []*models.Material
	for rows.Next() {
		material, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, material)
	}
	return materials, rows.Err()
}

func (r *materialRepo) Update(ctx context.Context, tenantID, id uuid.UUID, patch map[string]any) (int64, error) {
	return r.store.Update(ctx, tenantID, "materials", id, patch)
}

func (r *materialRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	return r.store.Delete(ctx, tenantID, "materials", id)
}

func scanMaterial(row pgx.Row) (*models.Material, error) {
	material := &models.Material{}
	err := row.Scan(
		&material.ID,
		&material.TenantID,
		&material.Name,
		&material.SKU,
		&material.UnitPriceCents,
		&material.Stock,
		&material.CreatedAt,
		&material.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return material, nil
}
