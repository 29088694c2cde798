package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent records one logical provider event. The (provider, event_id)
// unique constraint is what collapses at-least-once delivery to at-most-once
// side effects: concurrent deliveries race on the insert and exactly one wins.
type WebhookEvent struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Provider    string     `json:"provider" db:"provider"`
	EventID     string     `json:"event_id" db:"event_id"`
	EventType   string     `json:"event_type" db:"event_type"`
	PaymentID   *string    `json:"payment_id,omitempty" db:"payment_id"`
	Status      string     `json:"status" db:"status"`
	Attempts    int        `json:"attempts" db:"attempts"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty" db:"next_retry_at"`
	Outcome     JSONB      `json:"outcome,omitempty" db:"outcome"`
	LastError   *string    `json:"last_error,omitempty" db:"last_error"`
	ReceivedAt  time.Time  `json:"received_at" db:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

// Webhook event lifecycle: received -> pending -> processed | failed.
// failed goes back to pending only through the retry sweep, and only while
// attempts remain under budget.
const (
	WebhookStatusReceived  = "received"
	WebhookStatusPending   = "pending"
	WebhookStatusProcessed = "processed"
	WebhookStatusFailed    = "failed"
)
