package middleware

import (
	"net/http"
	"time"

	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AuditMiddleware logs HTTP requests to the audit trail
type AuditMiddleware struct {
	auditService services.AuditLogsService
}

func NewAuditMiddleware(auditService services.AuditLogsService) *AuditMiddleware {
	return &AuditMiddleware{
		auditService: auditService,
	}
}

// Sensitivity levels for the request audit trail
const (
	SensitivityHigh = "high"
	SensitivityLow  = "low"
)

// AuditRequest records requests after the handler ran, with the outcome the
// caller observed. At high sensitivity granted reads are recorded too; at
// low sensitivity only writes. Denials are logged by the permission gate
// either way.
func (m *AuditMiddleware) AuditRequest(sensitivityLevel string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			method := c.Request().Method
			if isReadMethod(method) && sensitivityLevel != SensitivityHigh {
				return err
			}

			ctx := c.Request().Context()
			tenantID, ok := common.GetTenantIDFromContext(ctx)
			if !ok {
				// No tenant context, nothing to attribute the write to
				return err
			}

			userID, ok := common.GetUserIDFromContext(ctx)
			var userPtr *uuid.UUID
			if ok {
				userPtr = &userID
			}

			outcome := models.OutcomeGranted
			data := models.JSONB{
				"method":    method,
				"path":      c.Path(),
				"ip":        c.RealIP(),
				"timestamp": time.Now().Format(time.RFC3339),
			}
			if err != nil {
				outcome = models.OutcomeDenied
				data["error"] = err.Error()
			}

			action := method + " " + c.Path()
			if logErr := m.auditService.LogActivity(ctx, tenantID, "http_requests", c.Path(), action, outcome, userPtr, nil, data); logErr != nil {
				c.Logger().Errorf("Failed to log audit activity: %v", logErr)
			}

			return err
		}
	}
}

func isReadMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
