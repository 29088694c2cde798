package models

import (
	"time"

	"github.com/google/uuid"
)

type Invoice struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	TenantID        uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	CustomerID      uuid.UUID  `json:"customer_id" db:"customer_id"`
	JobID           *uuid.UUID `json:"job_id,omitempty" db:"job_id"`
	Number          string     `json:"number" db:"number"`
	Status          string     `json:"status" db:"status"`
	AmountExclCents int64      `json:"amount_excl_cents" db:"amount_excl_cents"`
	BTWCents        int64      `json:"btw_cents" db:"btw_cents"`
	AmountInclCents int64      `json:"amount_incl_cents" db:"amount_incl_cents"`
	DueDate         time.Time  `json:"due_date" db:"due_date"`
	PaidAt          *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	PaymentID       *string    `json:"payment_id,omitempty" db:"payment_id"`
	PDFObject       *string    `json:"pdf_object,omitempty" db:"pdf_object"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Invoice statuses
const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusOpen    = "open"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
)

// InvoiceLine is a single billable line; amounts are in euro cents to avoid
// float rounding in tax math.
type InvoiceLine struct {
	ID             uuid.UUID `json:"id" db:"id"`
	TenantID       uuid.UUID `json:"tenant_id" db:"tenant_id"`
	InvoiceID      uuid.UUID `json:"invoice_id" db:"invoice_id"`
	Description    string    `json:"description" db:"description"`
	Quantity       int       `json:"quantity" db:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents" db:"unit_price_cents"`
	BTWRateID      string    `json:"btw_rate_id" db:"btw_rate_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
