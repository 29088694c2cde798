package services

import (
	"context"
	"errors"
	"time"

	"plumbline/internal/models"
	"plumbline/internal/repositories"

	"github.com/google/uuid"
)

type AuditLogsService interface {
	// LogActivity creates an audit log entry
	LogActivity(ctx context.Context, tenantID uuid.UUID, tableName, recordID, action, outcome string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error

	// Query audit logs
	GetAuditLog(ctx context.Context, tenantID, auditLogID uuid.UUID) (*models.AuditLog, error)
	ListAuditLogs(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
	GetEntityHistory(ctx context.Context, tenantID uuid.UUID, tableName, recordID string, limit, offset int) ([]*models.AuditLog, error)

	// Helper methods for common audit scenarios
	LogEntityCreate(ctx context.Context, tenantID uuid.UUID, tableName, recordID string, changedBy *uuid.UUID, newValues models.JSONB) error
	LogEntityUpdate(ctx context.Context, tenantID uuid.UUID, tableName, recordID string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error
	LogEntityDelete(ctx context.Context, tenantID uuid.UUID, tableName, recordID string, changedBy *uuid.UUID, oldValues models.JSONB) error
	LogAccessDenied(ctx context.Context, tenantID uuid.UUID, operation string, changedBy *uuid.UUID) error

	ValidateAuditFilters(filters *models.AuditLogFilters) error
}

type auditLogsService struct {
	auditLogsRepo repositories.AuditLogsRepository
}

func NewAuditLogsService(auditLogsRepo repositories.AuditLogsRepository) AuditLogsService {
	return &auditLogsService{
		auditLogsRepo: auditLogsRepo,
	}
}

func (s *auditLogsService) LogActivity(ctx context.Context, tenantID uuid.UUID, tableName, recordID, action, outcome string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error {
	if tableName == "" {
		return errors.New("table_name is required")
	}
	if action == "" {
		return errors.New("action is required")
	}
	if outcome == "" {
		outcome = models.OutcomeGranted
	}

	auditLog := &models.AuditLog{
		ID:        uuid.New(),
		TenantID:  tenantID,
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
		Outcome:   outcome,
		NewValues: newValues,
		OldValues: oldValues,
		ChangedBy: changedBy,
		CreatedAt: time.Now(),
	}

	return s.auditLogsRepo.Create(ctx, auditLog)
}

func (s *auditLogsService) GetAuditLog(ctx context.Context, tenantID, auditLogID uuid.UUID) (*models.AuditLog, error) {
	return s.auditLogsRepo.GetByID(ctx, tenantID, auditLogID)
}

func (s *auditLogsService) ListAuditLogs(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{Limit: 50}
	}
	if filters.Limit <= 0 || filters.Limit > 1000 {
		filters.Limit = 50
	}

	return s.auditLogsRepo.List(ctx, tenantID, filters)
}

func (s *auditLogsService) GetEntityHistory(ctx context.Context, tenantID uuid.UUID, tableName, recordID string, limit, offset int) ([]*models.AuditLog, error) {
	return s.auditLogsRepo.GetByTableAndRecord(ctx, tenantID, tableName, recordID, limit, offset)
}

func (s *auditLogsService) LogEntityCreate(ctx context.Context, tenantID uuid.UUID, tableName, recordID string, changedBy *uuid.UUID, newValues models.JSONB) error {
	return s.LogActivity(ctx, tenantID, tableName, recordID, models.ActionInsert, models.OutcomeGranted, changedBy, nil, newValues)
}

func (s *auditLogsService) LogEntityUpdate(ctx context.Context, tenantID uuid.UUID, tableName, recordID string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error {
	return s.LogActivity(ctx, tenantID, tableName, recordID, models.ActionUpdate, models.OutcomeGranted, changedBy, oldValues, newValues)
}

func (s *auditLogsService) LogEntityDelete(ctx context.Context, tenantID uuid.UUID, tableName, recordID string, changedBy *uuid.UUID, oldValues models.JSONB) error {
	return s.LogActivity(ctx, tenantID, tableName, recordID, models.ActionDelete, models.OutcomeGranted, changedBy, oldValues, nil)
}

// LogAccessDenied records a permission denial. The denied operation goes in
// new_values so the table/record shape stays uniform.
func (s *auditLogsService) LogAccessDenied(ctx context.Context, tenantID uuid.UUID, operation string, changedBy *uuid.UUID) error {
	return s.LogActivity(ctx, tenantID, "permissions", operation, models.ActionAccess, models.OutcomeDenied, changedBy, nil, models.JSONB{
		"operation": operation,
	})
}

// ValidateAuditFilters performs security and performance validation on audit filters
func (s *auditLogsService) ValidateAuditFilters(filters *models.AuditLogFilters) error {
	if filters == nil {
		return nil
	}

	// Limit date range to prevent excessive data extraction
	if filters.StartDate != nil && filters.EndDate != nil {
		if filters.EndDate.Sub(*filters.StartDate) > 365*24*time.Hour {
			return errors.New("date range cannot exceed 1 year")
		}
	}

	if filters.Limit > 1000 {
		return errors.New("maximum limit is 1000 records")
	}

	return nil
}
