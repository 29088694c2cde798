package services

import (
	"context"
	"testing"
	"time"

	"plumbline/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockCustomerRepo struct {
	mock.Mock
}

func (m *MockCustomerRepo) Create(ctx context.Context, tenantID uuid.UUID, customer *models.Customer) error {
	args := m.Called(ctx, tenantID, customer)
	return args.Error(0)
}

func (m *MockCustomerRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Customer, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Customer, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Customer), args.Error(1)
}

func (m *MockCustomerRepo) Update(ctx context.Context, tenantID, id uuid.UUID, patch map[string]any) (int64, error) {
	args := m.Called(ctx, tenantID, id, patch)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCustomerRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Get(0).(int64), args.Error(1)
}

// MockCacheService is a no-op-friendly cache mock
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (*models.Customer, error) {
	args := m.Called(ctx, tenantID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCacheService) SetCustomer(ctx context.Context, tenantID uuid.UUID, customer *models.Customer, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, customer, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteCustomer(ctx context.Context, tenantID, customerID uuid.UUID) error {
	args := m.Called(ctx, tenantID, customerID)
	return args.Error(0)
}

func (m *MockCacheService) GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, tenantID, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockCacheService) SetJob(ctx context.Context, tenantID uuid.UUID, job *models.Job, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, job, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteJob(ctx context.Context, tenantID, jobID uuid.UUID) error {
	args := m.Called(ctx, tenantID, jobID)
	return args.Error(0)
}

func (m *MockCacheService) GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockCacheService) SetTenant(ctx context.Context, tenant *models.Tenant, ttl time.Duration) error {
	args := m.Called(ctx, tenant, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteTenant(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateAllCache(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) GetString(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type JobServiceTestSuite struct {
	suite.Suite
	ctx          context.Context
	jobRepo      *MockJobRepo
	customerRepo *MockCustomerRepo
	cache        *MockCacheService
	service      JobService
	tenantID     uuid.UUID
}

func (s *JobServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.jobRepo = new(MockJobRepo)
	s.customerRepo = new(MockCustomerRepo)
	s.cache = new(MockCacheService)
	s.service = NewJobService(s.jobRepo, s.customerRepo, s.cache)
	s.tenantID = uuid.New()
}

func (s *JobServiceTestSuite) TestCreateJobDefaultsToScheduled() {
	customerID := uuid.New()
	s.customerRepo.On("GetByID", s.ctx, s.tenantID, customerID).Return(&models.Customer{ID: customerID}, nil)
	s.jobRepo.On("Create", s.ctx, s.tenantID, mock.Anything).Return(nil)

	job := &models.Job{CustomerID: customerID, Title: "Lekkage keuken"}
	err := s.service.CreateJob(s.ctx, s.tenantID, job)

	s.NoError(err)
	s.Equal(models.JobStatusScheduled, job.Status)
}

func (s *JobServiceTestSuite) TestCreateJobRejectsForeignCustomer() {
	customerID := uuid.New()
	// A customer of another tenant reads as not found through the scoped store
	s.customerRepo.On("GetByID", s.ctx, s.tenantID, customerID).Return(nil, errNotFound())

	err := s.service.CreateJob(s.ctx, s.tenantID, &models.Job{CustomerID: customerID, Title: "CV ketel storing"})

	s.Error(err)
	s.jobRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything, mock.Anything)
}

func (s *JobServiceTestSuite) TestStatusPipelineEnforced() {
	jobID := uuid.New()
	s.jobRepo.On("GetByID", s.ctx, s.tenantID, jobID).Return(&models.Job{
		ID:     jobID,
		Status: models.JobStatusScheduled,
	}, nil)

	err := s.service.UpdateJobStatus(s.ctx, s.tenantID, jobID, models.JobStatusInvoiced)

	s.Error(err)
	s.Contains(err.Error(), "transition")
	s.jobRepo.AssertNotCalled(s.T(), "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *JobServiceTestSuite) TestCompletionStampsTimestamp() {
	jobID := uuid.New()
	s.jobRepo.On("GetByID", s.ctx, s.tenantID, jobID).Return(&models.Job{
		ID:     jobID,
		Status: models.JobStatusStarted,
	}, nil)
	s.jobRepo.On("Update", s.ctx, s.tenantID, jobID, mock.MatchedBy(func(patch map[string]any) bool {
		_, hasCompletedAt := patch["completed_at"]
		return patch["status"] == models.JobStatusCompleted && hasCompletedAt
	})).Return(int64(1), nil)
	s.cache.On("DeleteJob", s.ctx, s.tenantID, jobID).Return(nil)

	err := s.service.UpdateJobStatus(s.ctx, s.tenantID, jobID, models.JobStatusCompleted)

	s.NoError(err)
	s.jobRepo.AssertExpectations(s.T())
}

func (s *JobServiceTestSuite) TestUpdateJobStripsStatus() {
	jobID := uuid.New()
	s.jobRepo.On("Update", s.ctx, s.tenantID, jobID, mock.MatchedBy(func(patch map[string]any) bool {
		_, hasStatus := patch["status"]
		return !hasStatus && patch["title"] == "Nieuwe titel"
	})).Return(int64(1), nil)
	s.cache.On("DeleteJob", s.ctx, s.tenantID, jobID).Return(nil)

	affected, err := s.service.UpdateJob(s.ctx, s.tenantID, jobID, map[string]any{
		"title":  "Nieuwe titel",
		"status": models.JobStatusInvoiced,
	})

	s.NoError(err)
	s.Equal(int64(1), affected)
	s.jobRepo.AssertExpectations(s.T())
}

func (s *JobServiceTestSuite) TestAssignTechnicianRejectsTerminalJob() {
	jobID := uuid.New()
	s.jobRepo.On("GetByID", s.ctx, s.tenantID, jobID).Return(&models.Job{
		ID:     jobID,
		Status: models.JobStatusCancelled,
	}, nil)

	err := s.service.AssignTechnician(s.ctx, s.tenantID, jobID, uuid.New())

	s.Error(err)
}

func (s *JobServiceTestSuite) TestGetJobPrefersCache() {
	jobID := uuid.New()
	cached := &models.Job{ID: jobID, Title: "Cached"}
	s.cache.On("GetJob", s.ctx, s.tenantID, jobID).Return(cached, nil)

	job, err := s.service.GetJobByID(s.ctx, s.tenantID, jobID)

	s.NoError(err)
	s.Equal(cached, job)
	s.jobRepo.AssertNotCalled(s.T(), "GetByID", mock.Anything, mock.Anything, mock.Anything)
}

func errNotFound() error {
	return pgx.ErrNoRows
}

func TestJobServiceTestSuite(t *testing.T) {
	suite.Run(t, new(JobServiceTestSuite))
}
