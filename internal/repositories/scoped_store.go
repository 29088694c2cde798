package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ScopedStore is the single choke point for tenant-scoped persistence. Every
// business repository goes through it, so the tenant filter is injected in one
// place instead of being re-derived at each call site. The tenant id always
// comes from the resolved request context, never from a payload: tenant_id
// keys in filters or values are stripped, not validated, which removes the
// injection vector entirely.
//
// Row-level security policies on the same tables are the second, independent
// enforcement layer; see migrations/0001_schema.sql and database.WithTenant.

// Entity describes one tenant-scoped table. Columns are in scan order; id and
// tenant_id always come first.
type Entity struct {
	Table   string
	Columns []string
}

var entityRegistry = map[string]Entity{
	"customers": {
		Table:   "customers",
		Columns: []string{"id", "tenant_id", "name", "email", "phone", "street", "postal_code", "city", "notes", "created_at", "updated_at"},
	},
	"jobs": {
		Table:   "jobs",
		Columns: []string{"id", "tenant_id", "customer_id", "technician_id", "title", "description", "status", "scheduled_at", "completed_at", "created_at", "updated_at"},
	},
	"appointments": {
		Table:   "appointments",
		Columns: []string{"id", "tenant_id", "job_id", "technician_id", "starts_at", "ends_at", "status", "created_at", "updated_at"},
	},
	"invoices": {
		Table:   "invoices",
		Columns: []string{"id", "tenant_id", "customer_id", "job_id", "number", "status", "amount_excl_cents", "btw_cents", "amount_incl_cents", "due_date", "paid_at", "payment_id", "pdf_object", "created_at", "updated_at"},
	},
	"invoice_lines": {
		Table:   "invoice_lines",
		Columns: []string{"id", "tenant_id", "invoice_id", "description", "quantity", "unit_price_cents", "btw_rate_id", "created_at"},
	},
	"materials": {
		Table:   "materials",
		Columns: []string{"id", "tenant_id", "name", "sku", "unit_price_cents", "stock", "created_at", "updated_at"},
	},
}

type ScopedStore struct {
	db DB
}

func NewScopedStore(db DB) *ScopedStore {
	return &ScopedStore{db: db}
}

// WithTx returns a store bound to tx so multi-statement writes commit together
func (s *ScopedStore) WithTx(tx pgx.Tx) *ScopedStore {
	return &ScopedStore{db: tx}
}

func lookupEntity(name string) (Entity, error) {
	entity, ok := entityRegistry[name]
	if !ok {
		return Entity{}, fmt.Errorf("unknown entity %q", name)
	}
	return entity, nil
}

// columnAllowed guards filter/patch keys against the registry so caller input
// can never reach the SQL text.
func columnAllowed(entity Entity, column string) bool {
	for _, c := range entity.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Query selects all registered columns filtered to the active tenant. Keys in
// filter are matched in registered column order so the generated SQL is
// deterministic; a tenant_id key is dropped before the query is built.
func (s *ScopedStore) Query(ctx context.Context, tenantID uuid.UUID, entityName string, filter map[string]any, limit, offset int) (pgx.Rows, error) {
	entity, err := lookupEntity(entityName)
	if err != nil {
		return nil, err
	}

	delete(filter, "tenant_id")
	for key := range filter {
		if !columnAllowed(entity, key) {
			return nil, fmt.Errorf("unknown column %q for entity %q", key, entityName)
		}
	}

	var sb strings.Builder
	args := []any{tenantID}
	fmt.Fprintf(&sb, "SELECT %s FROM %s WHERE tenant_id = $1", strings.Join(entity.Columns, ", "), entity.Table)

	for _, col := range entity.Columns {
		value, ok := filter[col]
		if !ok {
			continue
		}
		args = append(args, value)
		fmt.Fprintf(&sb, " AND %s = $%d", col, len(args))
	}

	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	return s.db.Query(ctx, sb.String(), args...)
}

// QueryByID selects one row by id within the active tenant. A cross-tenant id
// scans as pgx.ErrNoRows, identical to a nonexistent one.
func (s *ScopedStore) QueryByID(ctx context.Context, tenantID uuid.UUID, entityName string, id uuid.UUID) (pgx.Row, error) {
	entity, err := lookupEntity(entityName)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE tenant_id = $1 AND id = $2", strings.Join(entity.Columns, ", "), entity.Table)
	return s.db.QueryRow(ctx, query, tenantID, id), nil
}

// Insert stamps the active tenant id onto the row. A tenant_id in values is
// overwritten, not rejected, so a spoofed payload still lands in the caller's
// own tenant.
func (s *ScopedStore) Insert(ctx context.Context, tenantID uuid.UUID, entityName string, values map[string]any) error {
	entity, err := lookupEntity(entityName)
	if err != nil {
		return err
	}

	delete(values, "tenant_id")
	for key := range values {
		if !columnAllowed(entity, key) {
			return fmt.Errorf("unknown column %q for entity %q", key, entityName)
		}
	}
	values["tenant_id"] = tenantID

	var columns []string
	var placeholders []string
	var args []any
	for _, col := range entity.Columns {
		value, ok := values[col]
		if !ok {
			continue
		}
		args = append(args, value)
		columns = append(columns, col)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		entity.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	_, err = s.db.Exec(ctx, query, args...)
	return err
}

// Update patches one row within the active tenant and reports affected rows.
// Zero means the id does not exist in this tenant; whether it exists elsewhere
// is not observable. tenant_id and id keys in the patch are stripped.
func (s *ScopedStore) Update(ctx context.Context, tenantID uuid.UUID, entityName string, id uuid.UUID, patch map[string]any) (int64, error) {
	entity, err := lookupEntity(entityName)
	if err != nil {
		return 0, err
	}

	delete(patch, "tenant_id")
	delete(patch, "id")
	for key := range patch {
		if !columnAllowed(entity, key) {
			return 0, fmt.Errorf("unknown column %q for entity %q", key, entityName)
		}
	}
	if len(patch) == 0 {
		return 0, fmt.Errorf("empty patch for entity %q", entityName)
	}

	var assignments []string
	args := []any{tenantID, id}
	for _, col := range entity.Columns {
		value, ok := patch[col]
		if !ok {
			continue
		}
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if columnAllowed(entity, "updated_at") {
		if _, ok := patch["updated_at"]; !ok {
			assignments = append(assignments, "updated_at = NOW()")
		}
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE tenant_id = $1 AND id = $2",
		entity.Table, strings.Join(assignments, ", "))

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes one row within the active tenant and reports affected rows
func (s *ScopedStore) Delete(ctx context.Context, tenantID uuid.UUID, entityName string, id uuid.UUID) (int64, error) {
	entity, err := lookupEntity(entityName)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE tenant_id = $1 AND id = $2", entity.Table)
	tag, err := s.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
