package services

import (
	"context"
	"errors"
	"testing"

	"plumbline/internal/authz"
	"plumbline/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockTenantRepo struct {
	mock.Mock
}

func (m *MockTenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepo) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTenantRepo) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

type MockMembershipRepo struct {
	mock.Mock
}

func (m *MockMembershipRepo) Create(ctx context.Context, membership *models.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Membership), args.Error(1)
}

func (m *MockMembershipRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Membership, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Membership), args.Error(1)
}

func (m *MockMembershipRepo) GetRole(ctx context.Context, userID, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID, tenantID)
	return args.String(0), args.Error(1)
}

func (m *MockMembershipRepo) Delete(ctx context.Context, userID, tenantID uuid.UUID) error {
	args := m.Called(ctx, userID, tenantID)
	return args.Error(0)
}

type TenantServiceTestSuite struct {
	suite.Suite
	ctx            context.Context
	tenantRepo     *MockTenantRepo
	membershipRepo *MockMembershipRepo
	userRepo       *MockUserRepo
	service        TenantService
}

func (s *TenantServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.tenantRepo = new(MockTenantRepo)
	s.membershipRepo = new(MockMembershipRepo)
	s.userRepo = new(MockUserRepo)
	s.service = NewTenantService(s.tenantRepo, s.membershipRepo, s.userRepo)
}

func (s *TenantServiceTestSuite) TestCreateGrantsOwnerMembership() {
	owner := &models.User{ID: uuid.New(), Subject: "auth0|jansen", Email: "piet@jansen.nl"}
	s.userRepo.On("GetBySubject", s.ctx, "auth0|jansen").Return(owner, nil)
	s.tenantRepo.On("Create", s.ctx, mock.MatchedBy(func(t *models.Tenant) bool {
		return t.Name == "Jansen Loodgieters" && t.Subdomain == "jansen" &&
			t.Status == models.TenantStatusActive && t.PlanTier == models.PlanTierFree
	})).Return(nil)
	s.membershipRepo.On("Create", s.ctx, mock.MatchedBy(func(m *models.Membership) bool {
		return m.UserID == owner.ID && m.Role == authz.RoleOwner
	})).Return(nil)

	tenant, err := s.service.Create(s.ctx, &CreateTenantRequest{
		Name:         "Jansen Loodgieters",
		Subdomain:    "Jansen",
		OwnerSubject: "auth0|jansen",
		OwnerEmail:   "piet@jansen.nl",
	})

	s.NoError(err)
	s.Equal("jansen", tenant.Subdomain)
	s.membershipRepo.AssertExpectations(s.T())
}

func (s *TenantServiceTestSuite) TestCreateMirrorsUnknownOwnerSubject() {
	s.userRepo.On("GetBySubject", s.ctx, "auth0|nieuw").Return(nil, errors.New("no rows"))
	s.userRepo.On("Create", s.ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Subject == "auth0|nieuw" && u.Email == "nieuw@voorbeeld.nl" && u.Status == models.UserStatusActive
	})).Return(nil)
	s.tenantRepo.On("Create", s.ctx, mock.Anything).Return(nil)
	s.membershipRepo.On("Create", s.ctx, mock.MatchedBy(func(m *models.Membership) bool {
		return m.Role == authz.RoleOwner
	})).Return(nil)

	_, err := s.service.Create(s.ctx, &CreateTenantRequest{
		Name:         "Nieuw Bedrijf",
		Subdomain:    "nieuw",
		OwnerSubject: "auth0|nieuw",
		OwnerEmail:   "nieuw@voorbeeld.nl",
	})

	s.NoError(err)
	s.userRepo.AssertExpectations(s.T())
}

func (s *TenantServiceTestSuite) TestCreateRequiresOwner() {
	_, err := s.service.Create(s.ctx, &CreateTenantRequest{
		Name:      "Jansen Loodgieters",
		Subdomain: "jansen",
	})

	s.Error(err)
	s.tenantRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *TenantServiceTestSuite) TestCreateRejectsBadSubdomain() {
	_, err := s.service.Create(s.ctx, &CreateTenantRequest{
		Name:         "Jansen Loodgieters",
		Subdomain:    "jansen loodgieters!",
		OwnerSubject: "auth0|jansen",
	})

	s.Error(err)
}

func (s *TenantServiceTestSuite) TestCreateRejectsUnknownPlanTier() {
	_, err := s.service.Create(s.ctx, &CreateTenantRequest{
		Name:         "Jansen Loodgieters",
		Subdomain:    "jansen",
		PlanTier:     "enterprise",
		OwnerSubject: "auth0|jansen",
	})

	s.Error(err)
}

func (s *TenantServiceTestSuite) TestSuspendSetsStatus() {
	tenantID := uuid.New()
	s.tenantRepo.On("SetStatus", s.ctx, tenantID, models.TenantStatusSuspended).Return(nil)

	s.NoError(s.service.Suspend(s.ctx, tenantID))
	s.tenantRepo.AssertExpectations(s.T())
}

func (s *TenantServiceTestSuite) TestReactivateSetsStatus() {
	tenantID := uuid.New()
	s.tenantRepo.On("SetStatus", s.ctx, tenantID, models.TenantStatusActive).Return(nil)

	s.NoError(s.service.Reactivate(s.ctx, tenantID))
}

func TestTenantServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TenantServiceTestSuite))
}
