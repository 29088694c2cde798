package identity

import (
	"context"
	"errors"
	"log"
	"time"

	"plumbline/internal/common"
	"plumbline/internal/models"

	"github.com/google/uuid"
)

// Lookup timeout for the identity-provider and membership calls. Expiry maps
// to a retryable error, never to a denial.
const resolveTimeout = 3 * time.Second

// Context is the resolved caller identity every protected request runs under
type Context struct {
	PrincipalID uuid.UUID
	TenantID    uuid.UUID
	Role        string
	Email       string
}

// UserSource mirrors principals synced from the identity provider
type UserSource interface {
	GetBySubject(ctx context.Context, subject string) (*models.User, error)
}

// MembershipSource lists a principal's (tenant, role) memberships
type MembershipSource interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error)
}

// TenantSource loads tenants for the active/suspended check
type TenantSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// Resolver turns a bearer token plus an optional tenant selector into a
// resolved Context or one of the taxonomy errors. Pure lookup, no writes.
type Resolver struct {
	verifier    TokenVerifier
	users       UserSource
	memberships MembershipSource
	tenants     TenantSource
}

func NewResolver(verifier TokenVerifier, users UserSource, memberships MembershipSource, tenants TenantSource) *Resolver {
	return &Resolver{
		verifier:    verifier,
		users:       users,
		memberships: memberships,
		tenants:     tenants,
	}
}

// Resolve validates the token, loads the principal's memberships and picks
// the active tenant. tenantSelector is the raw X-Tenant-ID header value, empty
// when absent.
func (r *Resolver) Resolve(ctx context.Context, token, tenantSelector string) (*Context, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	claims, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return nil, classifyLookupErr(err)
	}

	user, err := r.users.GetBySubject(ctx, claims.Subject)
	if err != nil {
		// An unknown or disabled principal looks identical to a bad token
		return nil, classifyLookupErr(err)
	}
	if user.Status != models.UserStatusActive {
		return nil, common.ErrUnauthenticated
	}

	memberships, err := r.memberships.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, classifyLookupErr(err)
	}
	if len(memberships) == 0 {
		return nil, common.ErrNoTenantContext
	}

	membership, err := pickMembership(claims, tenantSelector, memberships)
	if err != nil {
		return nil, err
	}

	tenant, err := r.tenants.GetByID(ctx, membership.TenantID)
	if err != nil {
		return nil, classifyLookupErr(err)
	}
	if tenant.Status != models.TenantStatusActive {
		return nil, common.ErrTenantSuspended
	}

	resolved := &Context{
		PrincipalID: user.ID,
		TenantID:    membership.TenantID,
		Role:        membership.Role,
		Email:       user.Email,
	}

	log.Printf("identity: resolved principal=%s tenant=%s role=%s", resolved.PrincipalID, resolved.TenantID, resolved.Role)

	return resolved, nil
}

// pickMembership chooses the active tenant: token claim first, then the
// explicit selector header, then the sole membership. Selecting a tenant the
// principal does not belong to fails the same way as having none, so the
// response shape never confirms a foreign tenant exists.
func pickMembership(claims *Claims, tenantSelector string, memberships []*models.Membership) (*models.Membership, error) {
	if claims.OrgID != "" {
		tenantID, err := uuid.Parse(claims.OrgID)
		if err != nil {
			return nil, common.ErrUnauthenticated
		}
		if m := membershipFor(memberships, tenantID); m != nil {
			return m, nil
		}
		return nil, common.ErrNoTenantContext
	}

	if tenantSelector != "" {
		tenantID, err := uuid.Parse(tenantSelector)
		if err != nil {
			return nil, common.ErrNoTenantContext
		}
		if m := membershipFor(memberships, tenantID); m != nil {
			return m, nil
		}
		return nil, common.ErrNoTenantContext
	}

	if len(memberships) == 1 {
		return memberships[0], nil
	}

	return nil, common.ErrAmbiguousTenant
}

func membershipFor(memberships []*models.Membership, tenantID uuid.UUID) *models.Membership {
	for _, m := range memberships {
		if m.TenantID == tenantID {
			return m
		}
	}
	return nil
}

// classifyLookupErr keeps timeouts retryable and everything else a 401
func classifyLookupErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return common.ErrTransientStore
	}
	if errors.Is(err, common.ErrTransientStore) {
		return common.ErrTransientStore
	}
	return common.ErrUnauthenticated
}
