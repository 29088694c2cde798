package repositories

import (
	"context"
	"time"

	"plumbline/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CustomerRepository is a typed view over the ScopedStore; every call takes
// the tenant id resolved for the request, never one from a payload.
type CustomerRepository interface {
	Create(ctx context.Context, tenantID uuid.UUID, customer *models.Customer) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Customer, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, patch map[string]any) (int64, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error)
}

type customerRepo struct {
	store *ScopedStore
}

func NewCustomerRepo(store *ScopedStore) CustomerRepository {
	return &customerRepo{store: store}
}

func (r *customerRepo) Create(ctx context.Context, tenantID uuid.UUID, customer *models.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	now := time.Now()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	customer.TenantID = tenantID

	return r.store.Insert(ctx, tenantID, "customers", map[string]any{
		"id":          customer.ID,
		"name":        customer.Name,
		"email":       customer.Email,
		"phone":       customer.Phone,
		"street":      customer.Street,
		"postal_code": customer.PostalCode,
		"city":        customer.City,
		"notes":       customer.Notes,
		"created_at":  customer.CreatedAt,
		"updated_at":  customer.UpdatedAt,
	})
}

func (r *customerRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Customer, error) {
	row, err := r.store.QueryByID(ctx, tenantID, "customers", id)
	if err != nil {
		return nil, err
	}
	return scanCustomer(row)
}

func (r *customerRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Customer, error) {
	rows, err := r.store.Query(ctx, tenantID, "customers", map[string]any{}, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}

func (r *customerRepo) Update(ctx context.Context, tenantID, id uuid.UUID, patch map[string]any) (int64, error) {
	return r.store.Update(ctx, tenantID, "customers", id, patch)
}

func (r *customerRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	return r.store.Delete(ctx, tenantID, "customers", id)
}

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	customer := &models.Customer{}
	err := row.Scan(
		&customer.ID,
		&customer.TenantID,
		&customer.Name,
		&customer.Email,
		&customer.Phone,
		&customer.Street,
		&customer.PostalCode,
		&customer.City,
		&customer.Notes,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return customer, nil
}
