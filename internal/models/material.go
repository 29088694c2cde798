package models

import (
	"time"

	"github.com/google/uuid"
)

// Material is a stocked part (pipe, fitting, boiler component) billable on jobs
type Material struct {
	ID             uuid.UUID `json:"id" db:"id"`
	TenantID       uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name           string    `json:"name" db:"name"`
	SKU            string    `json:"sku" db:"sku"`
	UnitPriceCents int64     `json:"unit_price_cents" db:"unit_price_cents"`
	Stock          int       `json:"stock" db:"stock"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
