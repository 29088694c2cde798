package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"plumbline/internal/caching"
	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/repositories"

	"github.com/jackc/pgx/v5"
)

const (
	// MaxAttempts is the retry budget; an event that fails this many times is
	// parked for manual inspection and never retried automatically.
	MaxAttempts = 5

	baseBackoff = 30 * time.Second
	maxBackoff  = 30 * time.Minute

	// staleReclaimAfter is how long an event may sit in received or pending
	// before the sweep assumes the delivery that claimed it died and takes
	// the event over.
	staleReclaimAfter = 5 * time.Minute

	// outcomeCacheTTL matches the prune window; a cached outcome must never
	// outlive the event row it mirrors
	outcomeCacheTTL = 24 * time.Hour
)

// PaymentEvent is the parsed provider payload. Deliveries carry no tenant
// context; the payment id is the only key back into our data.
type PaymentEvent struct {
	EventID   string     `json:"id"`
	EventType string     `json:"type"`
	PaymentID string     `json:"payment_id"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

// PaymentApplier applies the business effect of a payment event inside the
// caller's transaction, so the effect and the processed transition commit
// together. The returned outcome is cached on the event for duplicate replies.
type PaymentApplier interface {
	Apply(ctx context.Context, tx pgx.Tx, event *PaymentEvent) (models.JSONB, error)
}

// ApplierFunc adapts a function to the PaymentApplier interface
type ApplierFunc func(ctx context.Context, tx pgx.Tx, event *PaymentEvent) (models.JSONB, error)

func (f ApplierFunc) Apply(ctx context.Context, tx pgx.Tx, event *PaymentEvent) (models.JSONB, error) {
	return f(ctx, tx, event)
}

// Result is what a delivery gets back. Duplicate deliveries of a processed
// event get the original outcome, not a re-run of the effect.
type Result struct {
	Status    string       `json:"status"`
	Duplicate bool         `json:"duplicate,omitempty"`
	Outcome   models.JSONB `json:"outcome,omitempty"`
}

// Service runs the webhook pipeline: verify, claim, apply, record. The
// (provider, event_id) unique constraint does the deduplication, so multiple
// instances can receive the same delivery concurrently without coordination.
type Service struct {
	db       repositories.DB
	events   repositories.WebhookEventRepository
	applier  PaymentApplier
	provider string
	secret   string
	cache    caching.CacheService
}

func NewService(db repositories.DB, events repositories.WebhookEventRepository, applier PaymentApplier, provider, secret string) *Service {
	return &Service{
		db:       db,
		events:   events,
		applier:  applier,
		provider: provider,
		secret:   secret,
	}
}

// WithOutcomeCache answers duplicate deliveries of processed events from
// redis instead of the database. Optional; without it duplicates read the
// event row.
func (s *Service) WithOutcomeCache(cache caching.CacheService) *Service {
	s.cache = cache
	return s
}

func (s *Service) outcomeKey(eventID string) string {
	return fmt.Sprintf("plumbline:webhook:%s:%s", s.provider, eventID)
}

// HandleDelivery processes one raw webhook delivery. An invalid signature is
// rejected before anything is recorded; a forged body must leave no trace.
func (s *Service) HandleDelivery(ctx context.Context, body []byte, signature string) (*Result, error) {
	if !VerifySignature(s.secret, body, signature) {
		return nil, common.ErrInvalidSignature
	}

	var payload PaymentEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	if payload.EventID == "" {
		return nil, fmt.Errorf("webhook payload missing event id")
	}

	event := &models.WebhookEvent{
		Provider:  s.provider,
		EventID:   payload.EventID,
		EventType: payload.EventType,
	}
	if payload.PaymentID != "" {
		event.PaymentID = &payload.PaymentID
	}

	claimed, err := s.events.Claim(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("%w: claim webhook event: %v", common.ErrTransientStore, err)
	}
	if !claimed {
		return s.duplicateResult(ctx, payload.EventID)
	}

	if err := s.events.MarkPending(ctx, event.ID); err != nil {
		return nil, fmt.Errorf("%w: mark pending: %v", common.ErrTransientStore, err)
	}

	if err := s.process(ctx, event, &payload); err != nil {
		// The delivery is acknowledged; the retry sweep owns it from here.
		log.Printf("webhook event %s/%s attempt 1 failed: %v", s.provider, payload.EventID, err)
		return &Result{Status: models.WebhookStatusFailed}, nil
	}

	return &Result{Status: models.WebhookStatusProcessed}, nil
}

// duplicateResult answers a redelivery of an event another delivery owns.
func (s *Service) duplicateResult(ctx context.Context, eventID string) (*Result, error) {
	if s.cache != nil {
		if raw, err := s.cache.GetString(ctx, s.outcomeKey(eventID)); err == nil && raw != "" {
			var result Result
			if err := json.Unmarshal([]byte(raw), &result); err == nil {
				result.Duplicate = true
				return &result, nil
			}
		}
	}

	existing, err := s.events.GetByProviderEventID(ctx, s.provider, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup duplicate event: %v", common.ErrTransientStore, err)
	}
	return &Result{
		Status:    existing.Status,
		Duplicate: true,
		Outcome:   existing.Outcome,
	}, nil
}

// process applies the business effect and the processed transition in one
// transaction. Failure records the attempt and schedules the next retry.
func (s *Service) process(ctx context.Context, event *models.WebhookEvent, payload *PaymentEvent) error {
	err := s.applyInTx(ctx, event, payload)
	if err == nil {
		return nil
	}

	attempts := event.Attempts + 1
	var nextRetryAt *time.Time
	if attempts < MaxAttempts {
		at := time.Now().Add(backoffFor(attempts))
		nextRetryAt = &at
	}
	if markErr := s.events.MarkFailed(ctx, event.ID, attempts, err.Error(), nextRetryAt); markErr != nil {
		log.Printf("webhook event %s: failed to record failure: %v", event.ID, markErr)
	}
	return err
}

func (s *Service) applyInTx(ctx context.Context, event *models.WebhookEvent, payload *PaymentEvent) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	outcome, err := s.applier.Apply(ctx, tx, payload)
	if err != nil {
		return err
	}

	if err := s.events.MarkProcessed(ctx, tx, event.ID, outcome); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(Result{Status: models.WebhookStatusProcessed, Outcome: outcome}); err == nil {
			if err := s.cache.SetString(ctx, s.outcomeKey(event.EventID), string(raw), outcomeCacheTTL); err != nil {
				log.Printf("webhook event %s/%s: outcome cache write failed: %v", s.provider, event.EventID, err)
			}
		}
	}

	return nil
}

// RetryDue sweeps failed events whose backoff has elapsed. The guarded
// failed-to-pending transition keeps concurrent sweeps off the same event.
func (s *Service) RetryDue(ctx context.Context, now time.Time) error {
	due, err := s.events.ListDueForRetry(ctx, now, MaxAttempts, 100)
	if err != nil {
		return fmt.Errorf("list due for retry: %w", err)
	}

	for _, event := range due {
		requeued, err := s.events.RequeueForRetry(ctx, event.ID)
		if err != nil {
			log.Printf("webhook retry: requeue %s failed: %v", event.ID, err)
			continue
		}
		if !requeued {
			continue
		}

		if err := s.process(ctx, event, payloadFrom(event)); err != nil {
			log.Printf("webhook event %s/%s attempt %d failed: %v", event.Provider, event.EventID, event.Attempts+1, err)
		}
	}
	return nil
}

// ReclaimStuck takes over events abandoned between claim and commit, for
// example when the process died after Claim succeeded. Without this sweep
// such an event would sit in received or pending forever while every
// redelivery is answered as a duplicate, and the payment would never land.
func (s *Service) ReclaimStuck(ctx context.Context, now time.Time) error {
	stale, err := s.events.ListStale(ctx, now, now.Add(-staleReclaimAfter), 100)
	if err != nil {
		return fmt.Errorf("list stale events: %w", err)
	}

	for _, event := range stale {
		reclaimed, err := s.events.ReclaimStale(ctx, event.ID, now, now.Add(staleReclaimAfter))
		if err != nil {
			log.Printf("webhook reclaim: %s failed: %v", event.ID, err)
			continue
		}
		if !reclaimed {
			continue
		}

		if err := s.process(ctx, event, payloadFrom(event)); err != nil {
			log.Printf("webhook event %s/%s reclaim attempt failed: %v", event.Provider, event.EventID, err)
		}
	}
	return nil
}

func payloadFrom(event *models.WebhookEvent) *PaymentEvent {
	payload := &PaymentEvent{
		EventID:   event.EventID,
		EventType: event.EventType,
	}
	if event.PaymentID != nil {
		payload.PaymentID = *event.PaymentID
	}
	return payload
}

// Prune drops processed events older than the replay-detection window.
func (s *Service) Prune(ctx context.Context, window time.Duration) (int64, error) {
	return s.events.PruneOlderThan(ctx, time.Now().Add(-window))
}

// backoffFor doubles the delay per attempt: 30s, 1m, 2m, 4m, capped.
func backoffFor(attempts int) time.Duration {
	d := baseBackoff << (attempts - 1)
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}
