package handlers

import (
	"net/http"

	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/services"

	"github.com/labstack/echo/v4"
)

// MaterialHandlers handles HTTP requests for the materials catalog
type MaterialHandlers struct {
	materialService services.MaterialService
}

func NewMaterialHandlers(materialService services.MaterialService) *MaterialHandlers {
	return &MaterialHandlers{materialService: materialService}
}

// CreateMaterial handles POST /materials
func (h *MaterialHandlers) CreateMaterial(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		Name           string `json:"name"`
		SKU            string `json:"sku"`
		UnitPriceCents int64  `json:"unit_price_cents"`
		Stock          int    `json:"stock"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	material := &models.Material{
		Name:           req.Name,
		SKU:            req.SKU,
		UnitPriceCents: req.UnitPriceCents,
		Stock:          req.Stock,
	}
	if err := h.materialService.CreateMaterial(ctx, tenantID, material); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, material)
}

// GetMaterial handles GET /materials/:id
func (h *MaterialHandlers) GetMaterial(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	materialID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	material, err := h.materialService.GetMaterialByID(ctx, tenantID, materialID)
	if err != nil {
		return common.SendNotFoundError(c, "material")
	}

	return c.JSON(http.StatusOK, material)
}

// ListMaterials handles GET /materials
func (h *MaterialHandlers) ListMaterials(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := parsePagination(c)
	materials, err := h.materialService.ListMaterials(ctx, tenantID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list materials")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"materials": materials,
		"limit":     limit,
		"offset":    offset,
	})
}

// UpdateMaterial handles PUT /materials/:id
func (h *MaterialHandlers) UpdateMaterial(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	materialID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	patch := map[string]any{}
	if err := c.Bind(&patch); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	affected, err := h.materialService.UpdateMaterial(ctx, tenantID, materialID, patch)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "material")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Material updated successfully"})
}

// AdjustStock handles PATCH /materials/:id/stock
func (h *MaterialHandlers) AdjustStock(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	materialID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		Delta int `json:"delta"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	material, err := h.materialService.AdjustStock(ctx, tenantID, materialID, req.Delta)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, material)
}

// DeleteMaterial handles DELETE /materials/:id
func (h *MaterialHandlers) DeleteMaterial(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	materialID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	affected, err := h.materialService.DeleteMaterial(ctx, tenantID, materialID)
	if err != nil {
		return common.SendServerError(c, "Failed to delete material")
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "material")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Material deleted successfully"})
}
