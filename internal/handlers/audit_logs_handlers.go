package handlers

import (
	"net/http"
	"time"

	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AuditLogsHandlers handles read access to the audit trail
type AuditLogsHandlers struct {
	auditService services.AuditLogsService
}

func NewAuditLogsHandlers(auditService services.AuditLogsService) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditService: auditService}
}

// ListAuditLogs handles GET /audit-logs
func (h *AuditLogsHandlers) ListAuditLogs(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	filters := &models.AuditLogFilters{}
	if v := c.QueryParam("table_name"); v != "" {
		filters.TableName = &v
	}
	if v := c.QueryParam("record_id"); v != "" {
		filters.RecordID = &v
	}
	if v := c.QueryParam("action"); v != "" {
		filters.Action = &v
	}
	if v := c.QueryParam("outcome"); v != "" {
		filters.Outcome = &v
	}
	if v := c.QueryParam("changed_by"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return common.SendClientError(c, "changed_by must be a valid UUID")
		}
		filters.ChangedBy = &id
	}
	if v := c.QueryParam("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return common.SendClientError(c, "start_date must be RFC3339")
		}
		filters.StartDate = &t
	}
	if v := c.QueryParam("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return common.SendClientError(c, "end_date must be RFC3339")
		}
		filters.EndDate = &t
	}
	filters.Limit, filters.Offset = parsePagination(c)

	if err := h.auditService.ValidateAuditFilters(filters); err != nil {
		return common.SendClientError(c, err.Error())
	}

	logs, err := h.auditService.ListAuditLogs(ctx, tenantID, filters)
	if err != nil {
		return common.SendServerError(c, "Failed to list audit logs")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"audit_logs": logs,
		"limit":      filters.Limit,
		"offset":     filters.Offset,
	})
}

// GetAuditLog handles GET /audit-logs/:id
func (h *AuditLogsHandlers) GetAuditLog(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	auditLogID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	log, err := h.auditService.GetAuditLog(ctx, tenantID, auditLogID)
	if err != nil {
		return common.SendNotFoundError(c, "audit log")
	}

	return c.JSON(http.StatusOK, log)
}

// GetEntityHistory handles GET /audit-logs/history/:table/:id
func (h *AuditLogsHandlers) GetEntityHistory(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tableName := c.Param("table")
	recordID := c.Param("id")
	if tableName == "" || recordID == "" {
		return common.SendClientError(c, "table and id are required")
	}

	limit, offset := parsePagination(c)
	history, err := h.auditService.GetEntityHistory(ctx, tenantID, tableName, recordID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to load entity history")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"history": history,
		"limit":   limit,
		"offset":  offset,
	})
}
