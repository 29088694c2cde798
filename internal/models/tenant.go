package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Subdomain string    `json:"subdomain" db:"subdomain"`
	PlanTier  string    `json:"plan_tier" db:"plan_tier"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Tenant status values. Tenants are deactivated on churn, never hard-deleted
// while historical records reference them.
const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

// Plan tiers bound per-tenant rate limits
const (
	PlanTierFree = "free"
	PlanTierPro  = "pro"
)
