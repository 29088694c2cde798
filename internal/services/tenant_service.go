package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"plumbline/internal/authz"
	"plumbline/internal/models"
	"plumbline/internal/repositories"

	"github.com/google/uuid"
)

type TenantService interface {
	Create(ctx context.Context, req *CreateTenantRequest) (*models.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	Update(ctx context.Context, req *UpdateTenantRequest) error
	Suspend(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
}

type tenantService struct {
	tenantRepo     repositories.TenantRepository
	membershipRepo repositories.MembershipRepository
	userRepo       repositories.UserRepository
}

func NewTenantService(tenantRepo repositories.TenantRepository, membershipRepo repositories.MembershipRepository, userRepo repositories.UserRepository) TenantService {
	return &tenantService{
		tenantRepo:     tenantRepo,
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
	}
}

type CreateTenantRequest struct {
	Name      string `json:"name" validate:"required"`
	Subdomain string `json:"subdomain" validate:"required"`
	PlanTier  string `json:"plan_tier"`
	// OwnerSubject and OwnerEmail come from the caller's verified token, never
	// from the request body: signup must not let the payload name someone
	// else's account as owner.
	OwnerSubject string `json:"-"`
	OwnerEmail   string `json:"-"`
}

type UpdateTenantRequest struct {
	ID       uuid.UUID
	Name     string `json:"name" validate:"required"`
	PlanTier string `json:"plan_tier"`
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

func (s *tenantService) Create(ctx context.Context, req *CreateTenantRequest) (*models.Tenant, error) {
	if req.Name == "" || req.Subdomain == "" {
		return nil, errors.New("name and subdomain are required")
	}
	if req.OwnerSubject == "" {
		return nil, errors.New("owner subject is required")
	}
	if !subdomainPattern.MatchString(strings.ToLower(req.Subdomain)) {
		return nil, errors.New("subdomain must be lowercase alphanumeric with hyphens")
	}

	planTier := req.PlanTier
	if planTier == "" {
		planTier = models.PlanTierFree
	}
	if planTier != models.PlanTierFree && planTier != models.PlanTierPro {
		return nil, errors.New("invalid plan tier")
	}

	tenant := &models.Tenant{
		ID:        uuid.New(),
		Name:      req.Name,
		Subdomain: strings.ToLower(req.Subdomain),
		PlanTier:  planTier,
		Status:    models.TenantStatusActive,
	}

	owner, err := s.userRepo.GetBySubject(ctx, req.OwnerSubject)
	if err != nil {
		// First time this subject appears; mirror it locally
		owner = &models.User{
			ID:      uuid.New(),
			Subject: req.OwnerSubject,
			Email:   req.OwnerEmail,
			Status:  models.UserStatusActive,
		}
		if err := s.userRepo.Create(ctx, owner); err != nil {
			return nil, err
		}
	}

	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	membership := &models.Membership{
		ID:       uuid.New(),
		UserID:   owner.ID,
		TenantID: tenant.ID,
		Role:     authz.RoleOwner,
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return nil, err
	}

	return tenant, nil
}

func (s *tenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.tenantRepo.GetByID(ctx, id)
}

func (s *tenantService) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	if subdomain == "" {
		return nil, errors.New("subdomain is required")
	}
	return s.tenantRepo.GetBySubdomain(ctx, subdomain)
}

func (s *tenantService) Update(ctx context.Context, req *UpdateTenantRequest) error {
	existing, err := s.tenantRepo.GetByID(ctx, req.ID)
	if err != nil {
		return err
	}

	existing.Name = req.Name
	if req.PlanTier != "" {
		if req.PlanTier != models.PlanTierFree && req.PlanTier != models.PlanTierPro {
			return errors.New("invalid plan tier")
		}
		existing.PlanTier = req.PlanTier
	}

	return s.tenantRepo.Update(ctx, existing)
}

// Suspend deactivates a tenant. Data stays; every request into the tenant is
// refused from the next resolution on.
func (s *tenantService) Suspend(ctx context.Context, id uuid.UUID) error {
	return s.tenantRepo.SetStatus(ctx, id, models.TenantStatusSuspended)
}

func (s *tenantService) Reactivate(ctx context.Context, id uuid.UUID) error {
	return s.tenantRepo.SetStatus(ctx, id, models.TenantStatusActive)
}

func (s *tenantService) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return s.tenantRepo.List(ctx, limit, offset)
}
