package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"plumbline/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WebhookEventRepository persists provider events. The server is stateless
// and horizontally scaled, so the (provider, event_id) unique constraint is
// the lock: concurrent deliveries race on Claim and only one wins.
type WebhookEventRepository interface {
	// Claim inserts the event as received. Returns true when this delivery
	// owns the event, false when another delivery already recorded it.
	Claim(ctx context.Context, event *models.WebhookEvent) (bool, error)

	GetByProviderEventID(ctx context.Context, provider, eventID string) (*models.WebhookEvent, error)

	MarkPending(ctx context.Context, id uuid.UUID) error

	// MarkProcessed runs inside the same transaction as the business effect so
	// the effect and the processed transition commit or roll back together.
	MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, outcome models.JSONB) error

	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string, nextRetryAt *time.Time) error

	// RequeueForRetry moves failed back to pending; only the retry sweep calls it
	RequeueForRetry(ctx context.Context, id uuid.UUID) (bool, error)

	ListDueForRetry(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*models.WebhookEvent, error)

	// ListStale finds events abandoned in received or pending, where the
	// delivery that claimed them died before recording an outcome.
	ListStale(ctx context.Context, now, cutoff time.Time, limit int) ([]*models.WebhookEvent, error)

	// ReclaimStale takes ownership of an abandoned event. The next_retry_at
	// bump is the lease: a sweep that lost the race sees a future
	// next_retry_at and leaves the row alone.
	ReclaimStale(ctx context.Context, id uuid.UUID, now, leaseUntil time.Time) (bool, error)

	// PruneOlderThan drops terminal events past the replay-detection window
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type webhookEventRepo struct {
	db DB
}

func NewWebhookEventRepo(db DB) WebhookEventRepository {
	return &webhookEventRepo{db: db}
}

const webhookEventColumns = "id, provider, event_id, event_type, payment_id, status, attempts, next_retry_at, outcome, last_error, received_at, processed_at"

func (r *webhookEventRepo) Claim(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}
	event.Status = models.WebhookStatusReceived

	query := `
		INSERT INTO webhook_events (id, provider, event_id, event_type, payment_id, status, attempts, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
		ON CONFLICT (provider, event_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, event.ID, event.Provider, event.EventID, event.EventType, event.PaymentID, event.Status, event.ReceivedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *webhookEventRepo) GetByProviderEventID(ctx context.Context, provider, eventID string) (*models.WebhookEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_events WHERE provider = $1 AND event_id = $2`, webhookEventColumns)
	return scanWebhookEvent(r.db.QueryRow(ctx, query, provider, eventID))
}

func (r *webhookEventRepo) MarkPending(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE webhook_events SET status = $1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, models.WebhookStatusPending, id)
	return err
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, outcome models.JSONB) error {
	outcomeBytes, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	query := `
		UPDATE webhook_events
		SET status = $1, outcome = $2, processed_at = NOW(), last_error = NULL
		WHERE id = $3
	`
	_, err = tx.Exec(ctx, query, models.WebhookStatusProcessed, outcomeBytes, id)
	return err
}

func (r *webhookEventRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string, nextRetryAt *time.Time) error {
	query := `
		UPDATE webhook_events
		SET status = $1, attempts = $2, last_error = $3, next_retry_at = $4
		WHERE id = $5
	`
	_, err := r.db.Exec(ctx, query, models.WebhookStatusFailed, attempts, lastError, nextRetryAt, id)
	return err
}

func (r *webhookEventRepo) RequeueForRetry(ctx context.Context, id uuid.UUID) (bool, error) {
	// Guarded transition: only failed events move back to pending, so two
	// concurrent sweeps cannot both pick the same event up.
	query := `
		UPDATE webhook_events
		SET status = $1, next_retry_at = NULL
		WHERE id = $2 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, models.WebhookStatusPending, id, models.WebhookStatusFailed)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *webhookEventRepo) ListDueForRetry(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*models.WebhookEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM webhook_events
		WHERE status = $1 AND attempts < $2 AND next_retry_at IS NOT NULL AND next_retry_at <= $3
		ORDER BY next_retry_at ASC
		LIMIT $4
	`, webhookEventColumns)

	rows, err := r.db.Query(ctx, query, models.WebhookStatusFailed, maxAttempts, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.WebhookEvent
	for rows.Next() {
		event, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *webhookEventRepo) ListStale(ctx context.Context, now, cutoff time.Time, limit int) ([]*models.WebhookEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM webhook_events
		WHERE status IN ($1, $2) AND received_at < $3
		AND (next_retry_at IS NULL OR next_retry_at <= $4)
		ORDER BY received_at ASC
		LIMIT $5
	`, webhookEventColumns)

	rows, err := r.db.Query(ctx, query, models.WebhookStatusReceived, models.WebhookStatusPending, cutoff, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.WebhookEvent
	for rows.Next() {
		event, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *webhookEventRepo) ReclaimStale(ctx context.Context, id uuid.UUID, now, leaseUntil time.Time) (bool, error) {
	query := `
		UPDATE webhook_events
		SET status = $1, next_retry_at = $2
		WHERE id = $3 AND status IN ($1, $4)
		AND (next_retry_at IS NULL OR next_retry_at <= $5)
	`
	tag, err := r.db.Exec(ctx, query, models.WebhookStatusPending, leaseUntil, id, models.WebhookStatusReceived, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *webhookEventRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	// Parked failures stay for manual inspection; only terminal processed
	// events age out of the replay window.
	query := `DELETE FROM webhook_events WHERE status = $1 AND received_at < $2`
	tag, err := r.db.Exec(ctx, query, models.WebhookStatusProcessed, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanWebhookEvent(row pgx.Row) (*models.WebhookEvent, error) {
	event := &models.WebhookEvent{}
	var outcomeBytes []byte

	err := row.Scan(
		&event.ID,
		&event.Provider,
		&event.EventID,
		&event.EventType,
		&event.PaymentID,
		&event.Status,
		&event.Attempts,
		&event.NextRetryAt,
		&outcomeBytes,
		&event.LastError,
		&event.ReceivedAt,
		&event.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(outcomeBytes) > 0 {
		if err := json.Unmarshal(outcomeBytes, &event.Outcome); err != nil {
			return nil, fmt.Errorf("unmarshal outcome: %w", err)
		}
	}

	return event, nil
}
