package models

import (
	"time"

	"github.com/google/uuid"
)

// JSONB represents PostgreSQL JSONB type
type JSONB map[string]interface{}

// AuditLog is an append-only record of who did what to which record, with the
// grant/deny outcome. Retention is a compliance concern handled outside this
// core.
type AuditLog struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TenantID  uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	TableName string     `json:"table_name" db:"table_name"`
	RecordID  string     `json:"record_id" db:"record_id"`
	Action    string     `json:"action" db:"action"`
	Outcome   string     `json:"outcome" db:"outcome"`
	NewValues JSONB      `json:"new_values" db:"new_values"`
	OldValues JSONB      `json:"old_values" db:"old_values"`
	ChangedBy *uuid.UUID `json:"changed_by" db:"changed_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Action constants for audit logs
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionAccess = "ACCESS"
)

// Outcome constants for audit logs
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
)

// AuditLogFilters represents filters for querying audit logs
type AuditLogFilters struct {
	TableName *string    `json:"table_name"`
	RecordID  *string    `json:"record_id"`
	Action    *string    `json:"action"`
	Outcome   *string    `json:"outcome"`
	ChangedBy *uuid.UUID `json:"changed_by"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}
