package middleware

import (
	"net/http"
	"time"

	"plumbline/internal/caching"
	"plumbline/internal/common"

	"github.com/labstack/echo/v4"
)

// Per-minute request budgets by plan tier
const (
	FreeTierLimit = 60
	ProTierLimit  = 600

	rateLimitWindow = time.Minute
)

type RateLimitMiddleware struct {
	cache caching.CacheService
	// tierFor maps a tenant to its plan tier; resolved per request because
	// plans change without a restart
	tierFor func(c echo.Context) string
}

func NewRateLimitMiddleware(cache caching.CacheService, tierFor func(c echo.Context) string) *RateLimitMiddleware {
	return &RateLimitMiddleware{cache: cache, tierFor: tierFor}
}

// LimitByTenant throttles per tenant so one noisy tenant cannot starve the
// rest. Unresolved requests fall back to a per-IP budget.
func (m *RateLimitMiddleware) LimitByTenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			limit := FreeTierLimit

			if tenantID, ok := common.GetTenantIDFromContext(c.Request().Context()); ok {
				key = "tenant:" + tenantID.String()
				if m.tierFor != nil && m.tierFor(c) == "pro" {
					limit = ProTierLimit
				}
			}

			limited, err := m.cache.IsRateLimited(c.Request().Context(), key, limit, rateLimitWindow)
			if err != nil {
				// Redis trouble should not take the API down
				c.Logger().Warnf("rate limit check failed for %s: %v", key, err)
				return next(c)
			}
			if limited {
				return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
			}

			return next(c)
		}
	}
}

// LimitByIP throttles unauthenticated endpoints (webhooks, health) per source
func (m *RateLimitMiddleware) LimitByIP(limit int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limited, err := m.cache.IsRateLimited(c.Request().Context(), "ip:"+c.RealIP(), limit, rateLimitWindow)
			if err != nil {
				c.Logger().Warnf("rate limit check failed for %s: %v", c.RealIP(), err)
				return next(c)
			}
			if limited {
				return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
			}
			return next(c)
		}
	}
}
