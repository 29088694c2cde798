package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"plumbline/internal/common"
	"plumbline/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockWebhookEventRepo struct {
	mock.Mock
}

func (m *MockWebhookEventRepo) Claim(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepo) GetByProviderEventID(ctx context.Context, provider, eventID string) (*models.WebhookEvent, error) {
	args := m.Called(ctx, provider, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepo) MarkPending(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWebhookEventRepo) MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, outcome models.JSONB) error {
	args := m.Called(ctx, tx, id, outcome)
	return args.Error(0)
}

func (m *MockWebhookEventRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string, nextRetryAt *time.Time) error {
	args := m.Called(ctx, id, attempts, lastError, nextRetryAt)
	return args.Error(0)
}

func (m *MockWebhookEventRepo) RequeueForRetry(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepo) ListDueForRetry(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*models.WebhookEvent, error) {
	args := m.Called(ctx, now, maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepo) ListStale(ctx context.Context, now, cutoff time.Time, limit int) ([]*models.WebhookEvent, error) {
	args := m.Called(ctx, now, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepo) ReclaimStale(ctx context.Context, id uuid.UUID, now, leaseUntil time.Time) (bool, error) {
	args := m.Called(ctx, id, now, leaseUntil)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockPaymentApplier struct {
	mock.Mock
}

func (m *MockPaymentApplier) Apply(ctx context.Context, tx pgx.Tx, event *PaymentEvent) (models.JSONB, error) {
	args := m.Called(ctx, tx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.JSONB), args.Error(1)
}

type WebhookServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	db      pgxmock.PgxPoolIface
	events  *MockWebhookEventRepo
	applier *MockPaymentApplier
	service *Service
	secret  string
}

func (s *WebhookServiceTestSuite) SetupTest() {
	db, err := pgxmock.NewPool()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.db = db
	s.events = new(MockWebhookEventRepo)
	s.applier = new(MockPaymentApplier)
	s.secret = "whsec_test"
	s.service = NewService(db, s.events, s.applier, "mollie", s.secret)
}

func (s *WebhookServiceTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *WebhookServiceTestSuite) signedBody(payload PaymentEvent) ([]byte, string) {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)
	return body, ComputeSignature(s.secret, body)
}

func (s *WebhookServiceTestSuite) TestFirstDeliveryProcessed() {
	body, sig := s.signedBody(PaymentEvent{EventID: "evt_1", EventType: "payment.paid", PaymentID: "tr_abc"})
	outcome := models.JSONB{"invoice_id": "inv-1", "applied": true}

	s.events.On("Claim", s.ctx, mock.MatchedBy(func(ev *models.WebhookEvent) bool {
		return ev.Provider == "mollie" && ev.EventID == "evt_1" && *ev.PaymentID == "tr_abc"
	})).Return(true, nil)
	s.events.On("MarkPending", s.ctx, mock.Anything).Return(nil)

	s.db.ExpectBegin()
	s.applier.On("Apply", s.ctx, mock.Anything, mock.MatchedBy(func(ev *PaymentEvent) bool {
		return ev.PaymentID == "tr_abc"
	})).Return(outcome, nil)
	s.events.On("MarkProcessed", s.ctx, mock.Anything, mock.Anything, outcome).Return(nil)
	s.db.ExpectCommit()

	result, err := s.service.HandleDelivery(s.ctx, body, sig)

	s.NoError(err)
	s.Equal(models.WebhookStatusProcessed, result.Status)
	s.False(result.Duplicate)
	s.events.AssertExpectations(s.T())
	s.applier.AssertExpectations(s.T())
	s.NoError(s.db.ExpectationsWereMet())
}

func (s *WebhookServiceTestSuite) TestInvalidSignatureLeavesNoTrace() {
	body := []byte(`{"id":"evt_1","payment_id":"tr_abc"}`)

	result, err := s.service.HandleDelivery(s.ctx, body, "forged")

	s.Nil(result)
	s.ErrorIs(err, common.ErrInvalidSignature)
	// A forged delivery must not touch storage at all.
	s.events.AssertNotCalled(s.T(), "Claim", mock.Anything, mock.Anything)
	s.NoError(s.db.ExpectationsWereMet())
}

func (s *WebhookServiceTestSuite) TestDuplicateDeliveryReturnsCachedOutcome() {
	body, sig := s.signedBody(PaymentEvent{EventID: "evt_1", EventType: "payment.paid", PaymentID: "tr_abc"})
	outcome := models.JSONB{"invoice_id": "inv-1"}

	s.events.On("Claim", s.ctx, mock.Anything).Return(false, nil)
	s.events.On("GetByProviderEventID", s.ctx, "mollie", "evt_1").Return(&models.WebhookEvent{
		Status:  models.WebhookStatusProcessed,
		Outcome: outcome,
	}, nil)

	result, err := s.service.HandleDelivery(s.ctx, body, sig)

	s.NoError(err)
	s.True(result.Duplicate)
	s.Equal(models.WebhookStatusProcessed, result.Status)
	s.Equal(outcome, result.Outcome)
	// The business effect must not run twice.
	s.applier.AssertNotCalled(s.T(), "Apply", mock.Anything, mock.Anything, mock.Anything)
}

func (s *WebhookServiceTestSuite) TestDuplicateOfInFlightEvent() {
	body, sig := s.signedBody(PaymentEvent{EventID: "evt_1", PaymentID: "tr_abc"})

	s.events.On("Claim", s.ctx, mock.Anything).Return(false, nil)
	s.events.On("GetByProviderEventID", s.ctx, "mollie", "evt_1").Return(&models.WebhookEvent{
		Status: models.WebhookStatusPending,
	}, nil)

	result, err := s.service.HandleDelivery(s.ctx, body, sig)

	s.NoError(err)
	s.True(result.Duplicate)
	s.Equal(models.WebhookStatusPending, result.Status)
}

func (s *WebhookServiceTestSuite) TestFailedEffectSchedulesRetry() {
	body, sig := s.signedBody(PaymentEvent{EventID: "evt_1", EventType: "payment.paid", PaymentID: "tr_abc"})

	s.events.On("Claim", s.ctx, mock.Anything).Return(true, nil)
	s.events.On("MarkPending", s.ctx, mock.Anything).Return(nil)

	s.db.ExpectBegin()
	s.applier.On("Apply", s.ctx, mock.Anything, mock.Anything).Return(nil, errors.New("invoice store unavailable"))
	s.db.ExpectRollback()

	s.events.On("MarkFailed", s.ctx, mock.Anything, 1, "invoice store unavailable", mock.MatchedBy(func(at *time.Time) bool {
		return at != nil && at.After(time.Now())
	})).Return(nil)

	result, err := s.service.HandleDelivery(s.ctx, body, sig)

	// The delivery is still acknowledged; retries are ours, not the provider's.
	s.NoError(err)
	s.Equal(models.WebhookStatusFailed, result.Status)
	s.events.AssertExpectations(s.T())
}

func (s *WebhookServiceTestSuite) TestFinalAttemptParksEvent() {
	eventID := uuid.New()
	paymentID := "tr_abc"
	now := time.Now()

	s.events.On("ListDueForRetry", s.ctx, now, MaxAttempts, 100).Return([]*models.WebhookEvent{
		{ID: eventID, Provider: "mollie", EventID: "evt_1", EventType: "payment.paid", PaymentID: &paymentID, Attempts: MaxAttempts - 1},
	}, nil)
	s.events.On("RequeueForRetry", s.ctx, eventID).Return(true, nil)

	s.db.ExpectBegin()
	s.applier.On("Apply", s.ctx, mock.Anything, mock.Anything).Return(nil, errors.New("still down"))
	s.db.ExpectRollback()

	// Budget exhausted: no next retry time, the event stays parked.
	s.events.On("MarkFailed", s.ctx, eventID, MaxAttempts, "still down", (*time.Time)(nil)).Return(nil)

	err := s.service.RetryDue(s.ctx, now)

	s.NoError(err)
	s.events.AssertExpectations(s.T())
}

func (s *WebhookServiceTestSuite) TestRetrySkipsEventsAnotherSweepTook() {
	eventID := uuid.New()
	now := time.Now()

	s.events.On("ListDueForRetry", s.ctx, now, MaxAttempts, 100).Return([]*models.WebhookEvent{
		{ID: eventID, Provider: "mollie", EventID: "evt_1", Attempts: 1},
	}, nil)
	s.events.On("RequeueForRetry", s.ctx, eventID).Return(false, nil)

	err := s.service.RetryDue(s.ctx, now)

	s.NoError(err)
	s.applier.AssertNotCalled(s.T(), "Apply", mock.Anything, mock.Anything, mock.Anything)
}

func (s *WebhookServiceTestSuite) TestRetrySucceeds() {
	eventID := uuid.New()
	paymentID := "tr_abc"
	now := time.Now()
	outcome := models.JSONB{"invoice_id": "inv-1"}

	s.events.On("ListDueForRetry", s.ctx, now, MaxAttempts, 100).Return([]*models.WebhookEvent{
		{ID: eventID, Provider: "mollie", EventID: "evt_1", EventType: "payment.paid", PaymentID: &paymentID, Attempts: 2},
	}, nil)
	s.events.On("RequeueForRetry", s.ctx, eventID).Return(true, nil)

	s.db.ExpectBegin()
	s.applier.On("Apply", s.ctx, mock.Anything, mock.MatchedBy(func(ev *PaymentEvent) bool {
		return ev.PaymentID == "tr_abc" && ev.EventID == "evt_1"
	})).Return(outcome, nil)
	s.events.On("MarkProcessed", s.ctx, mock.Anything, eventID, outcome).Return(nil)
	s.db.ExpectCommit()

	err := s.service.RetryDue(s.ctx, now)

	s.NoError(err)
	s.events.AssertExpectations(s.T())
	s.NoError(s.db.ExpectationsWereMet())
}

func (s *WebhookServiceTestSuite) TestAbandonedEventIsReclaimedAndApplied() {
	// A delivery claims the event and then dies before the pending
	// transition lands. The caller sees a transient error and later
	// redeliveries lose the claim race, so only the reclaim sweep can
	// still get the payment applied.
	body, sig := s.signedBody(PaymentEvent{EventID: "evt_1", EventType: "payment.paid", PaymentID: "tr_abc"})

	s.events.On("Claim", s.ctx, mock.Anything).Return(true, nil)
	s.events.On("MarkPending", s.ctx, mock.Anything).Return(errors.New("connection reset"))

	result, err := s.service.HandleDelivery(s.ctx, body, sig)
	s.Nil(result)
	s.ErrorIs(err, common.ErrTransientStore)

	paymentID := "tr_abc"
	stuck := &models.WebhookEvent{
		ID:        uuid.New(),
		Provider:  "mollie",
		EventID:   "evt_1",
		EventType: "payment.paid",
		PaymentID: &paymentID,
		Status:    models.WebhookStatusReceived,
	}
	now := time.Now().Add(10 * time.Minute)
	outcome := models.JSONB{"invoice_id": "inv-1"}

	s.events.On("ListStale", s.ctx, now, now.Add(-staleReclaimAfter), 100).Return([]*models.WebhookEvent{stuck}, nil)
	s.events.On("ReclaimStale", s.ctx, stuck.ID, now, now.Add(staleReclaimAfter)).Return(true, nil)

	s.db.ExpectBegin()
	s.applier.On("Apply", s.ctx, mock.Anything, mock.MatchedBy(func(ev *PaymentEvent) bool {
		return ev.EventID == "evt_1" && ev.PaymentID == "tr_abc"
	})).Return(outcome, nil)
	s.events.On("MarkProcessed", s.ctx, mock.Anything, stuck.ID, outcome).Return(nil)
	s.db.ExpectCommit()

	s.NoError(s.service.ReclaimStuck(s.ctx, now))
	s.events.AssertExpectations(s.T())
	s.applier.AssertExpectations(s.T())
	s.NoError(s.db.ExpectationsWereMet())
}

func (s *WebhookServiceTestSuite) TestReclaimSkipsEventsAnotherSweepHolds() {
	eventID := uuid.New()
	now := time.Now()

	s.events.On("ListStale", s.ctx, now, now.Add(-staleReclaimAfter), 100).Return([]*models.WebhookEvent{
		{ID: eventID, Provider: "mollie", EventID: "evt_1", Status: models.WebhookStatusPending},
	}, nil)
	s.events.On("ReclaimStale", s.ctx, eventID, now, now.Add(staleReclaimAfter)).Return(false, nil)

	s.NoError(s.service.ReclaimStuck(s.ctx, now))
	s.applier.AssertNotCalled(s.T(), "Apply", mock.Anything, mock.Anything, mock.Anything)
}

func (s *WebhookServiceTestSuite) TestMalformedPayloadRejected() {
	body := []byte(`not json`)
	sig := ComputeSignature(s.secret, body)

	result, err := s.service.HandleDelivery(s.ctx, body, sig)

	s.Nil(result)
	s.Error(err)
	s.events.AssertNotCalled(s.T(), "Claim", mock.Anything, mock.Anything)
}

func (s *WebhookServiceTestSuite) TestMissingEventIDRejected() {
	body, sig := s.signedBody(PaymentEvent{PaymentID: "tr_abc"})

	result, err := s.service.HandleDelivery(s.ctx, body, sig)

	s.Nil(result)
	s.Error(err)
}

func TestBackoffDoubles(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
	}
	for _, tc := range cases {
		if got := backoffFor(tc.attempts); got != tc.want {
			t.Errorf("backoffFor(%d) = %v, want %v", tc.attempts, got, tc.want)
		}
	}
	if got := backoffFor(20); got != maxBackoff {
		t.Errorf("backoffFor(20) = %v, want cap %v", got, maxBackoff)
	}
}

func TestWebhookServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WebhookServiceTestSuite))
}
