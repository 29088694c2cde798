package services

import (
	"context"
	"errors"
	"fmt"

	"plumbline/internal/authz"
	"plumbline/internal/models"
	"plumbline/internal/repositories"

	"github.com/google/uuid"
)

// UserService manages tenant members. Credentials live with the external
// identity provider; here we only bind subjects to tenants and roles.
type UserService interface {
	InviteMember(ctx context.Context, tenantID uuid.UUID, req *InviteMemberRequest) (*models.Membership, error)
	ListMembers(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.User, error)
	ChangeRole(ctx context.Context, tenantID, userID uuid.UUID, role string) error
	RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type InviteMemberRequest struct {
	Subject   string `json:"subject" validate:"required"`
	Email     string `json:"email" validate:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" validate:"required"`
}

type userService struct {
	userRepo       repositories.UserRepository
	membershipRepo repositories.MembershipRepository
}

func NewUserService(userRepo repositories.UserRepository, membershipRepo repositories.MembershipRepository) UserService {
	return &userService{
		userRepo:       userRepo,
		membershipRepo: membershipRepo,
	}
}

func (s *userService) InviteMember(ctx context.Context, tenantID uuid.UUID, req *InviteMemberRequest) (*models.Membership, error) {
	if req.Subject == "" || req.Email == "" {
		return nil, errors.New("subject and email are required")
	}
	if !authz.KnownRole(req.Role) {
		return nil, fmt.Errorf("unknown role: %s", req.Role)
	}

	user, err := s.userRepo.GetBySubject(ctx, req.Subject)
	if err != nil {
		// First time this subject appears; mirror it locally
		user = &models.User{
			ID:        uuid.New(),
			Subject:   req.Subject,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Status:    models.UserStatusActive,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
	}

	membership := &models.Membership{
		ID:       uuid.New(),
		UserID:   user.ID,
		TenantID: tenantID,
		Role:     req.Role,
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return nil, err
	}
	return membership, nil
}

func (s *userService) ListMembers(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.User, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return s.userRepo.ListByTenant(ctx, tenantID, limit, offset)
}

func (s *userService) ChangeRole(ctx context.Context, tenantID, userID uuid.UUID, role string) error {
	if !authz.KnownRole(role) {
		return fmt.Errorf("unknown role: %s", role)
	}

	// Never demote the last owner; the tenant would become unmanageable
	if role != authz.RoleOwner {
		current, err := s.membershipRepo.GetRole(ctx, userID, tenantID)
		if err != nil {
			return fmt.Errorf("membership not found")
		}
		if current == authz.RoleOwner {
			if err := s.requireAnotherOwner(ctx, tenantID, userID); err != nil {
				return err
			}
		}
	}

	membership := &models.Membership{
		ID:       uuid.New(),
		UserID:   userID,
		TenantID: tenantID,
		Role:     role,
	}
	return s.membershipRepo.Create(ctx, membership)
}

func (s *userService) RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	role, err := s.membershipRepo.GetRole(ctx, userID, tenantID)
	if err != nil {
		return fmt.Errorf("membership not found")
	}
	if role == authz.RoleOwner {
		if err := s.requireAnotherOwner(ctx, tenantID, userID); err != nil {
			return err
		}
	}
	return s.membershipRepo.Delete(ctx, userID, tenantID)
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) requireAnotherOwner(ctx context.Context, tenantID, excludeUserID uuid.UUID) error {
	memberships, err := s.membershipRepo.ListByTenant(ctx, tenantID, 1000, 0)
	if err != nil {
		return err
	}
	for _, m := range memberships {
		if m.Role == authz.RoleOwner && m.UserID != excludeUserID {
			return nil
		}
	}
	return errors.New("a tenant must keep at least one owner")
}
