package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated principal. Identity (credentials, sessions, MFA)
// lives with the external provider; this row only mirrors what the gateway
// needs for membership resolution and audit attribution.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Subject   string    `json:"subject" db:"subject"`
	Email     string    `json:"email" db:"email"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)
