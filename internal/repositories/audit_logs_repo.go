package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"plumbline/internal/models"

	"github.com/google/uuid"
)

type AuditLogsRepository interface {
	// Create a new audit log entry; the table is append-only
	Create(ctx context.Context, auditLog *models.AuditLog) error

	// Get audit log by ID and tenant
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.AuditLog, error)

	// List audit logs with filtering options
	List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error)

	// Get audit logs for a specific table and record
	GetByTableAndRecord(ctx context.Context, tenantID uuid.UUID, tableName, recordID string, limit, offset int) ([]*models.AuditLog, error)
}

type auditLogsRepo struct {
	db DB
}

func NewAuditLogsRepo(db DB) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Create(ctx context.Context, auditLog *models.AuditLog) error {
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.New()
	}
	if auditLog.CreatedAt.IsZero() {
		auditLog.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO audit_logs (id, tenant_id, table_name, record_id, action, outcome, new_values, old_values, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var newValuesBytes, oldValuesBytes []byte
	var err error

	if auditLog.NewValues != nil {
		newValuesBytes, err = json.Marshal(auditLog.NewValues)
		if err != nil {
			return fmt.Errorf("failed to marshal new_values: %w", err)
		}
	}

	if auditLog.OldValues != nil {
		oldValuesBytes, err = json.Marshal(auditLog.OldValues)
		if err != nil {
			return fmt.Errorf("failed to marshal old_values: %w", err)
		}
	}

	_, err = r.db.Exec(ctx, query,
		auditLog.ID,
		auditLog.TenantID,
		auditLog.TableName,
		auditLog.RecordID,
		auditLog.Action,
		auditLog.Outcome,
		newValuesBytes,
		oldValuesBytes,
		auditLog.ChangedBy,
		auditLog.CreatedAt,
	)

	return err
}

func (r *auditLogsRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.AuditLog, error) {
	auditLog := &models.AuditLog{}
	var newValuesBytes, oldValuesBytes []byte

	query := `
		SELECT id, tenant_id, table_name, record_id, action, outcome, new_values, old_values, changed_by, created_at
		FROM audit_logs
		WHERE tenant_id = $1 AND id = $2
	`

	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(
		&auditLog.ID,
		&auditLog.TenantID,
		&auditLog.TableName,
		&auditLog.RecordID,
		&auditLog.Action,
		&auditLog.Outcome,
		&newValuesBytes,
		&oldValuesBytes,
		&auditLog.ChangedBy,
		&auditLog.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalAuditValues(auditLog, newValuesBytes, oldValuesBytes); err != nil {
		return nil, err
	}

	return auditLog, nil
}

func (r *auditLogsRepo) List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, tenant_id, table_name, record_id, action, outcome, new_values, old_values, changed_by, created_at
		FROM audit_logs
		WHERE tenant_id = $1
	`
	args := []any{tenantID}

	if filters.TableName != nil {
		args = append(args, *filters.TableName)
		query += fmt.Sprintf(" AND table_name = $%d", len(args))
	}
	if filters.RecordID != nil {
		args = append(args, *filters.RecordID)
		query += fmt.Sprintf(" AND record_id = $%d", len(args))
	}
	if filters.Action != nil {
		args = append(args, *filters.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filters.Outcome != nil {
		args = append(args, *filters.Outcome)
		query += fmt.Sprintf(" AND outcome = $%d", len(args))
	}
	if filters.ChangedBy != nil {
		args = append(args, *filters.ChangedBy)
		query += fmt.Sprintf(" AND changed_by = $%d", len(args))
	}
	if filters.StartDate != nil {
		args = append(args, *filters.StartDate)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filters.EndDate != nil {
		args = append(args, *filters.EndDate)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	return r.queryAuditLogs(ctx, query, args...)
}

func (r *auditLogsRepo) GetByTableAndRecord(ctx context.Context, tenantID uuid.UUID, tableName, recordID string, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, tenant_id, table_name, record_id, action, outcome, new_values, old_values, changed_by, created_at
		FROM audit_logs
		WHERE tenant_id = $1 AND table_name = $2 AND record_id = $3
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	return r.queryAuditLogs(ctx, query, tenantID, tableName, recordID, limit, offset)
}

func (r *auditLogsRepo) queryAuditLogs(ctx context.Context, query string, args ...any) ([]*models.AuditLog, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		auditLog := &models.AuditLog{}
		var newValuesBytes, oldValuesBytes []byte

		if err := rows.Scan(
			&auditLog.ID,
			&auditLog.TenantID,
			&auditLog.TableName,
			&auditLog.RecordID,
			&auditLog.Action,
			&auditLog.Outcome,
			&newValuesBytes,
			&oldValuesBytes,
			&auditLog.ChangedBy,
			&auditLog.CreatedAt,
		); err != nil {
			return nil, err
		}

		if err := unmarshalAuditValues(auditLog, newValuesBytes, oldValuesBytes); err != nil {
			return nil, err
		}

		logs = append(logs, auditLog)
	}
	return logs, rows.Err()
}

func unmarshalAuditValues(auditLog *models.AuditLog, newValuesBytes, oldValuesBytes []byte) error {
	if len(newValuesBytes) > 0 {
		if err := json.Unmarshal(newValuesBytes, &auditLog.NewValues); err != nil {
			return fmt.Errorf("failed to unmarshal new_values: %w", err)
		}
	}
	if len(oldValuesBytes) > 0 {
		if err := json.Unmarshal(oldValuesBytes, &auditLog.OldValues); err != nil {
			return fmt.Errorf("failed to unmarshal old_values: %w", err)
		}
	}
	return nil
}
