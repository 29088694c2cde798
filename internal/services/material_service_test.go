package services

import (
	"context"
	"testing"

	"plumbline/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMaterialRepo struct {
	mock.Mock
}

func (m *MockMaterialRepo) Create(ctx context.Context, tenantID uuid.UUID, material *models.Material) error {
	args := m.Called(ctx, tenantID, material)
	return args.Error(0)
}

func (m *MockMaterialRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Material, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Material), args.Error(1)
}

func (m *MockMaterialRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Material, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Material), args.Error(1)
}

func (m *MockMaterialRepo) Update(ctx context.Context, tenantID, id uuid.UUID, patch map[string]any) (int64, error) {
	args := m.Called(ctx, tenantID, id, patch)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMaterialRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Get(0).(int64), args.Error(1)
}

func TestCreateMaterialValidatesFields(t *testing.T) {
	repo := new(MockMaterialRepo)
	svc := NewMaterialService(repo)
	tenantID := uuid.New()

	err := svc.CreateMaterial(context.Background(), tenantID, &models.Material{SKU: "CU-15", UnitPriceCents: 100})
	assert.Error(t, err, "missing name")

	err = svc.CreateMaterial(context.Background(), tenantID, &models.Material{Name: "Koperbuis 15mm", UnitPriceCents: -1, SKU: "CU-15"})
	assert.Error(t, err, "negative price")

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdjustStockAppliesDelta(t *testing.T) {
	repo := new(MockMaterialRepo)
	svc := NewMaterialService(repo)
	tenantID := uuid.New()
	materialID := uuid.New()

	repo.On("GetByID", mock.Anything, tenantID, materialID).Return(&models.Material{
		ID: materialID, TenantID: tenantID, Name: "Koperbuis 15mm", SKU: "CU-15", Stock: 10,
	}, nil)
	repo.On("Update", mock.Anything, tenantID, materialID, map[string]any{"stock": 7}).Return(int64(1), nil)

	material, err := svc.AdjustStock(context.Background(), tenantID, materialID, -3)
	require.NoError(t, err)
	assert.Equal(t, 7, material.Stock)
	repo.AssertExpectations(t)
}

func TestAdjustStockRejectsNegativeResult(t *testing.T) {
	repo := new(MockMaterialRepo)
	svc := NewMaterialService(repo)
	tenantID := uuid.New()
	materialID := uuid.New()

	repo.On("GetByID", mock.Anything, tenantID, materialID).Return(&models.Material{
		ID: materialID, TenantID: tenantID, Name: "Koperbuis 15mm", SKU: "CU-15", Stock: 2,
	}, nil)

	_, err := svc.AdjustStock(context.Background(), tenantID, materialID, -5)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
