package models

import (
	"time"

	"github.com/google/uuid"
)

// Appointment is a calendar slot reserving a technician for a job
type Appointment struct {
	ID           uuid.UUID `json:"id" db:"id"`
	TenantID     uuid.UUID `json:"tenant_id" db:"tenant_id"`
	JobID        uuid.UUID `json:"job_id" db:"job_id"`
	TechnicianID uuid.UUID `json:"technician_id" db:"technician_id"`
	StartsAt     time.Time `json:"starts_at" db:"starts_at"`
	EndsAt       time.Time `json:"ends_at" db:"ends_at"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

const (
	AppointmentStatusPlanned   = "planned"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCancelled = "cancelled"
)
