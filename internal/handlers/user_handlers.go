package handlers

import (
	"net/http"

	"plumbline/internal/common"
	"plumbline/internal/services"

	"github.com/labstack/echo/v4"
)

// UserHandlers handles membership management within a tenant
type UserHandlers struct {
	userService services.UserService
}

func NewUserHandlers(userService services.UserService) *UserHandlers {
	return &UserHandlers{userService: userService}
}

// InviteMember handles POST /members
func (h *UserHandlers) InviteMember(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req services.InviteMemberRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	membership, err := h.userService.InviteMember(ctx, tenantID, &req)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, membership)
}

// ListMembers handles GET /members
func (h *UserHandlers) ListMembers(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := parsePagination(c)
	members, err := h.userService.ListMembers(ctx, tenantID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list members")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"members": members,
		"limit":   limit,
		"offset":  offset,
	})
}

// ChangeRole handles PATCH /members/:id/role
func (h *UserHandlers) ChangeRole(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	userID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	if err := h.userService.ChangeRole(ctx, tenantID, userID, req.Role); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Role updated", "role": req.Role})
}

// RemoveMember handles DELETE /members/:id
func (h *UserHandlers) RemoveMember(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	userID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.userService.RemoveMember(ctx, tenantID, userID); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Member removed"})
}
