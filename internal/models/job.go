package models

import (
	"time"

	"github.com/google/uuid"
)

// Job is a plumbing work order
type Job struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TenantID     uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	CustomerID   uuid.UUID  `json:"customer_id" db:"customer_id"`
	TechnicianID *uuid.UUID `json:"technician_id,omitempty" db:"technician_id"`
	Title        string     `json:"title" db:"title"`
	Description  *string    `json:"description,omitempty" db:"description"`
	Status       string     `json:"status" db:"status"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Job status pipeline
const (
	JobStatusScheduled = "scheduled"
	JobStatusEnRoute   = "en_route"
	JobStatusStarted   = "started"
	JobStatusCompleted = "completed"
	JobStatusInvoiced  = "invoiced"
	JobStatusCancelled = "cancelled"
)
