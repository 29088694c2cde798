package handlers

import (
	"net/http"
	"strings"

	"plumbline/internal/common"
	"plumbline/internal/identity"
	"plumbline/internal/services"

	"github.com/labstack/echo/v4"
)

// TenantHandlers handles tenant lifecycle requests. Signup needs a verified
// token but no membership yet; the rest operate on the caller's own tenant.
type TenantHandlers struct {
	tenantService services.TenantService
	verifier      identity.TokenVerifier
}

func NewTenantHandlers(tenantService services.TenantService, verifier identity.TokenVerifier) *TenantHandlers {
	return &TenantHandlers{tenantService: tenantService, verifier: verifier}
}

// CreateTenant handles POST /tenants. The caller has no membership yet, so
// this skips the resolver and verifies the token directly; the owner is the
// token's subject, never a body field.
func (h *TenantHandlers) CreateTenant(c echo.Context) error {
	ctx := c.Request().Context()

	authHeader := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return common.SendUnauthorizedError(c)
	}
	claims, err := h.verifier.Verify(ctx, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return common.SendUnauthorizedError(c)
	}

	var req services.CreateTenantRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	req.OwnerSubject = claims.Subject
	req.OwnerEmail = claims.Email

	tenant, err := h.tenantService.Create(ctx, &req)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, tenant)
}

// GetTenant handles GET /tenants/current
func (h *TenantHandlers) GetTenant(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tenant, err := h.tenantService.GetByID(ctx, tenantID)
	if err != nil {
		return common.SendNotFoundError(c, "tenant")
	}

	return c.JSON(http.StatusOK, tenant)
}

// UpdateTenant handles PUT /tenants/current
func (h *TenantHandlers) UpdateTenant(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req services.UpdateTenantRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	req.ID = tenantID

	if err := h.tenantService.Update(ctx, &req); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Tenant updated successfully"})
}

// SuspendTenant handles POST /tenants/current/suspend
func (h *TenantHandlers) SuspendTenant(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	if err := h.tenantService.Suspend(ctx, tenantID); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Tenant suspended"})
}

// ReactivateTenant handles POST /tenants/current/reactivate
func (h *TenantHandlers) ReactivateTenant(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	if err := h.tenantService.Reactivate(ctx, tenantID); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Tenant reactivated"})
}
