package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership binds a principal to a tenant under a single role. A principal
// may hold memberships in several tenants, but every request resolves to
// exactly one of them.
type Membership struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
