package repositories

import (
	"context"

	"plumbline/internal/models"

	"github.com/google/uuid"
)

type MembershipRepository interface {
	Create(ctx context.Context, membership *models.Membership) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Membership, error)
	GetRole(ctx context.Context, userID, tenantID uuid.UUID) (string, error)
	Delete(ctx context.Context, userID, tenantID uuid.UUID) error
}

type membershipRepo struct {
	db DB
}

func NewMembershipRepo(db DB) MembershipRepository {
	return &membershipRepo{db: db}
}

func (r *membershipRepo) Create(ctx context.Context, membership *models.Membership) error {
	query := `
		INSERT INTO memberships (id, user_id, tenant_id, role, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, tenant_id) DO UPDATE SET role = EXCLUDED.role
	`
	_, err := r.db.Exec(ctx, query, membership.ID, membership.UserID, membership.TenantID, membership.Role)
	return err
}

func (r *membershipRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	query := `
		SELECT id, user_id, tenant_id, role, created_at
		FROM memberships
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m := &models.Membership{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.TenantID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *membershipRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Membership, error) {
	query := `
		SELECT id, user_id, tenant_id, role, created_at
		FROM memberships
		WHERE tenant_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m := &models.Membership{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.TenantID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *membershipRepo) GetRole(ctx context.Context, userID, tenantID uuid.UUID) (string, error) {
	var role string
	query := `SELECT role FROM memberships WHERE user_id = $1 AND tenant_id = $2`
	err := r.db.QueryRow(ctx, query, userID, tenantID).Scan(&role)
	if err != nil {
		return "", err
	}
	return role, nil
}

func (r *membershipRepo) Delete(ctx context.Context, userID, tenantID uuid.UUID) error {
	query := `DELETE FROM memberships WHERE user_id = $1 AND tenant_id = $2`
	_, err := r.db.Exec(ctx, query, userID, tenantID)
	return err
}
