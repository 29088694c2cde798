package services

import (
	"context"
	"testing"

	"plumbline/internal/authz"
	"plumbline/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

type UserServiceTestSuite struct {
	suite.Suite
	ctx            context.Context
	userRepo       *MockUserRepo
	membershipRepo *MockMembershipRepo
	service        UserService
	tenantID       uuid.UUID
}

func (s *UserServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.userRepo = new(MockUserRepo)
	s.membershipRepo = new(MockMembershipRepo)
	s.service = NewUserService(s.userRepo, s.membershipRepo)
	s.tenantID = uuid.New()
}

func (s *UserServiceTestSuite) TestInviteExistingSubjectReusesUser() {
	existing := &models.User{ID: uuid.New(), Subject: "auth0|abc", Status: models.UserStatusActive}
	s.userRepo.On("GetBySubject", s.ctx, "auth0|abc").Return(existing, nil)
	s.membershipRepo.On("Create", s.ctx, mock.MatchedBy(func(m *models.Membership) bool {
		return m.UserID == existing.ID && m.TenantID == s.tenantID && m.Role == authz.RoleTechnician
	})).Return(nil)

	membership, err := s.service.InviteMember(s.ctx, s.tenantID, &InviteMemberRequest{
		Subject: "auth0|abc",
		Email:   "piet@jansen.nl",
		Role:    authz.RoleTechnician,
	})

	s.NoError(err)
	s.Equal(existing.ID, membership.UserID)
	s.userRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *UserServiceTestSuite) TestInviteNewSubjectMirrorsUser() {
	s.userRepo.On("GetBySubject", s.ctx, "auth0|new").Return(nil, errNotFound())
	s.userRepo.On("Create", s.ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Subject == "auth0|new" && u.Status == models.UserStatusActive
	})).Return(nil)
	s.membershipRepo.On("Create", s.ctx, mock.Anything).Return(nil)

	_, err := s.service.InviteMember(s.ctx, s.tenantID, &InviteMemberRequest{
		Subject: "auth0|new",
		Email:   "kees@jansen.nl",
		Role:    authz.RoleViewer,
	})

	s.NoError(err)
	s.userRepo.AssertExpectations(s.T())
}

func (s *UserServiceTestSuite) TestInviteRejectsUnknownRole() {
	_, err := s.service.InviteMember(s.ctx, s.tenantID, &InviteMemberRequest{
		Subject: "auth0|abc",
		Email:   "piet@jansen.nl",
		Role:    "superadmin",
	})

	s.Error(err)
	s.membershipRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *UserServiceTestSuite) TestCannotDemoteLastOwner() {
	userID := uuid.New()
	s.membershipRepo.On("GetRole", s.ctx, userID, s.tenantID).Return(authz.RoleOwner, nil)
	s.membershipRepo.On("ListByTenant", s.ctx, s.tenantID, 1000, 0).Return([]*models.Membership{
		{UserID: userID, TenantID: s.tenantID, Role: authz.RoleOwner},
	}, nil)

	err := s.service.ChangeRole(s.ctx, s.tenantID, userID, authz.RoleAdmin)

	s.Error(err)
	s.Contains(err.Error(), "owner")
}

func (s *UserServiceTestSuite) TestCannotRemoveLastOwner() {
	userID := uuid.New()
	s.membershipRepo.On("GetRole", s.ctx, userID, s.tenantID).Return(authz.RoleOwner, nil)
	s.membershipRepo.On("ListByTenant", s.ctx, s.tenantID, 1000, 0).Return([]*models.Membership{
		{UserID: userID, TenantID: s.tenantID, Role: authz.RoleOwner},
	}, nil)

	err := s.service.RemoveMember(s.ctx, s.tenantID, userID)

	s.Error(err)
	s.membershipRepo.AssertNotCalled(s.T(), "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func (s *UserServiceTestSuite) TestRemoveOwnerWithAnotherOwner() {
	userID := uuid.New()
	otherOwner := uuid.New()
	s.membershipRepo.On("GetRole", s.ctx, userID, s.tenantID).Return(authz.RoleOwner, nil)
	s.membershipRepo.On("ListByTenant", s.ctx, s.tenantID, 1000, 0).Return([]*models.Membership{
		{UserID: userID, TenantID: s.tenantID, Role: authz.RoleOwner},
		{UserID: otherOwner, TenantID: s.tenantID, Role: authz.RoleOwner},
	}, nil)
	s.membershipRepo.On("Delete", s.ctx, userID, s.tenantID).Return(nil)

	err := s.service.RemoveMember(s.ctx, s.tenantID, userID)

	s.NoError(err)
	s.membershipRepo.AssertExpectations(s.T())
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
