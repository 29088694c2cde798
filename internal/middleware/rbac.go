package middleware

import (
	"net/http"

	"plumbline/internal/authz"
	"plumbline/internal/common"
	"plumbline/internal/services"

	"github.com/labstack/echo/v4"
)

type RBACMiddleware struct {
	auditService services.AuditLogsService
}

func NewRBACMiddleware(auditService services.AuditLogsService) *RBACMiddleware {
	return &RBACMiddleware{
		auditService: auditService,
	}
}

// RequirePermission gates a route on the resolved role's allow-list. A denial
// is recorded in the audit trail; the evaluation itself never touches the
// database, so a missing grant cannot be confused with an outage.
func (m *RBACMiddleware) RequirePermission(operation string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID, ok := common.GetUserIDFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			tenantID, ok := common.GetTenantIDFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
			}
			role, ok := common.GetRoleFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Role not resolved")
			}

			decision := authz.Authorize(role, operation)
			if !decision.Allowed {
				if err := m.auditService.LogAccessDenied(ctx, tenantID, operation, &userID); err != nil {
					c.Logger().Errorf("Failed to audit denial of %s: %v", operation, err)
				}
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}

			return next(c)
		}
	}
}
