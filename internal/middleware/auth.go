package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"plumbline/internal/common"
	"plumbline/internal/identity"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TenantHeader lets a principal with several memberships pick the tenant for
// this request. It selects among the caller's own memberships only; it can
// never reach a tenant the caller does not belong to.
const TenantHeader = "X-Tenant-ID"

// AuthMiddleware resolves the bearer token to a principal, tenant and role
// and stamps them on the request context. Everything downstream trusts these
// three values and nothing else from the caller.
func AuthMiddleware(resolver *identity.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
			}

			identityCtx, err := resolver.Resolve(c.Request().Context(), tokenString, c.Request().Header.Get(TenantHeader))
			if err != nil {
				return resolveError(err)
			}

			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, identityCtx.PrincipalID)
			ctx = context.WithValue(ctx, common.TenantIDKey, identityCtx.TenantID)
			ctx = context.WithValue(ctx, common.RoleKey, identityCtx.Role)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func resolveError(err error) error {
	switch {
	case errors.Is(err, common.ErrAmbiguousTenant):
		return echo.NewHTTPError(http.StatusForbidden, "Multiple tenants; set the X-Tenant-ID header")
	case errors.Is(err, common.ErrNoTenantContext):
		return echo.NewHTTPError(http.StatusForbidden, "No tenant membership")
	case errors.Is(err, common.ErrTenantSuspended):
		return echo.NewHTTPError(http.StatusForbidden, "Tenant is suspended")
	case errors.Is(err, common.ErrTransientStore):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Temporarily unavailable")
	default:
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}
}

// GetTenantIDFromContext extracts tenant ID from request context
func GetTenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return common.GetTenantIDFromContext(ctx)
}
