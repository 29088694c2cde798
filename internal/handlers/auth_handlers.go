package handlers

import (
	"net/http"

	"plumbline/internal/common"
	"plumbline/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers exposes the resolved identity of the current request
type AuthHandlers struct {
	userService services.UserService
}

func NewAuthHandlers(userService services.UserService) *AuthHandlers {
	return &AuthHandlers{userService: userService}
}

// Me handles GET /auth/me and reflects the identity the request resolved to
func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	role, _ := common.GetRoleFromContext(ctx)

	user, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		return common.SendNotFoundError(c, "user")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":      user,
		"tenant_id": tenantID,
		"role":      role,
	})
}
