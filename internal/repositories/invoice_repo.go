package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plumbline/internal/models"
	"plumbline/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type InvoiceRepository interface {
	Create(ctx context.Context, tenantID uuid.UUID, invoice *models.Invoice, lines []*models.InvoiceLine) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Invoice, error)
	GetLines(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*models.InvoiceLine, error)
	List(ctx context.Context, tenantID uuid.UUID, filter map[string]any, limit, offset int) ([]*models.Invoice, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, patch map[string]any) (int64, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error)

	// MarkPaidByPaymentID applies the payment side effect inside the caller's
	// transaction. It is keyed by the provider's payment id because webhook
	// deliveries carry no tenant context; the row itself pins the tenant. The
	// returned bool is false when the invoice was already paid.
	MarkPaidByPaymentID(ctx context.Context, tx pgx.Tx, paymentID string, paidAt time.Time) (*models.Invoice, bool, error)

	// MarkOverdue flips open invoices past their due date, maintenance sweep
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)

	// NextNumber produces the next sequential invoice number for the tenant's
	// year, e.g. INV-2026-0042
	NextNumber(ctx context.Context, tenantID uuid.UUID, year int) (string, error)
}

type invoiceRepo struct {
	store *ScopedStore
	db    DB
}

func NewInvoiceRepo(store *ScopedStore, db DB) InvoiceRepository {
	return &invoiceRepo{store: store, db: db}
}

func (r *invoiceRepo) Create(ctx context.Context, tenantID uuid.UUID, invoice *models.Invoice, lines []*models.InvoiceLine) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	now := time.Now()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	invoice.TenantID = tenantID

	// The invoice and its lines land together or not at all
	return database.WithTenant(ctx, r.db, tenantID, func(tx pgx.Tx) error {
		txStore := r.store.WithTx(tx)

		err := txStore.Insert(ctx, tenantID, "invoices", map[string]any{
			"id":                invoice.ID,
			"customer_id":       invoice.CustomerID,
			"job_id":            invoice.JobID,
			"number":            invoice.Number,
			"status":            invoice.Status,
			"amount_excl_cents": invoice.AmountExclCents,
			"btw_cents":         invoice.BTWCents,
			"amount_incl_cents": invoice.AmountInclCents,
			"due_date":          invoice.DueDate,
			"paid_at":           invoice.PaidAt,
			"payment_id":        invoice.PaymentID,
			"pdf_object":        invoice.PDFObject,
			"created_at":        invoice.CreatedAt,
			"updated_at":        invoice.UpdatedAt,
		})
		if err != nil {
			return err
		}

		for _, line := range lines {
			if line.ID == uuid.Nil {
				line.ID = uuid.New()
			}
			line.InvoiceID = invoice.ID
			line.TenantID = tenantID
			line.CreatedAt = now

			err := txStore.Insert(ctx, tenantID, "invoice_lines", map[string]any{
				"id":               line.ID,
				"invoice_id":       line.InvoiceID,
				"description":      line.Description,
				"quantity":         line.Quantity,
				"unit_price_cents": line.UnitPriceCents,
				"btw_rate_id":      line.BTWRateID,
				"created_at":       line.CreatedAt,
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *invoiceRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Invoice, error) {
	row, err := r.store.QueryByID(ctx, tenantID, "invoices", id)
	if err != nil {
		return nil, err
	}
	return scanInvoice(row)
}

func (r *invoiceRepo) GetLines(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*models.InvoiceLine, error) {
	rows, err := r.store.Query(ctx, tenantID, "invoice_lines", map[string]any{"invoice_id": invoiceID}, 1000, 0)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*models.InvoiceLine
	for rows.Next() {
		line := &models.InvoiceLine{}
		if err := rows.Scan(
			&line.ID,
			&line.TenantID,
			&line.InvoiceID,
			&line.Description,
			&line.Quantity,
			&line.UnitPriceCents,
			&line.BTWRateID,
			&line.CreatedAt,
		); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *invoiceRepo) List(ctx context.Context, tenantID uuid.UUID, filter map[string]any, limit, offset int) ([]*models.Invoice, error) {
	if filter == nil {
		filter = map[string]any{}
	}
	rows, err := r.store.Query(ctx, tenantID, "invoices", filter, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (r *invoiceRepo) Update(ctx context.Context, tenantID, id uuid.UUID, patch map[string]any) (int64, error) {
	return r.store.Update(ctx, tenantID, "invoices", id, patch)
}

func (r *invoiceRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	return r.store.Delete(ctx, tenantID, "invoices", id)
}

const invoiceColumns = "id, tenant_id, customer_id, job_id, number, status, amount_excl_cents, btw_cents, amount_incl_cents, due_date, paid_at, payment_id, pdf_object, created_at, updated_at"

func (r *invoiceRepo) MarkPaidByPaymentID(ctx context.Context, tx pgx.Tx, paymentID string, paidAt time.Time) (*models.Invoice, bool, error) {
	query := `
		UPDATE invoices
		SET status = $1, paid_at = $2, updated_at = NOW()
		WHERE payment_id = $3 AND status <> $1
		RETURNING ` + invoiceColumns

	invoice, err := scanInvoice(tx.QueryRow(ctx, query, models.InvoiceStatusPaid, paidAt, paymentID))
	if err == nil {
		return invoice, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	// Either already paid or an unknown payment id
	lookup := `SELECT ` + invoiceColumns + ` FROM invoices WHERE payment_id = $1`
	invoice, err = scanInvoice(tx.QueryRow(ctx, lookup, paymentID))
	if err != nil {
		return nil, false, err
	}
	return invoice, false, nil
}

func (r *invoiceRepo) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE invoices
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND due_date < $3
	`
	tag, err := r.db.Exec(ctx, query, models.InvoiceStatusOverdue, models.InvoiceStatusOpen, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *invoiceRepo) NextNumber(ctx context.Context, tenantID uuid.UUID, year int) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", year)

	// Highest issued suffix, not a row count: deleting a draft leaves a gap
	// in the sequence, and a count would reissue a number that is still
	// taken under the (tenant_id, number) unique constraint.
	query := `
		SELECT COALESCE(MAX(substring(number FROM '[0-9]+$')::int), 0)
		FROM invoices
		WHERE tenant_id = $1 AND number LIKE $2
	`
	var last int64
	if err := r.db.QueryRow(ctx, query, tenantID, prefix+"%").Scan(&last); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, last+1), nil
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	err := row.Scan(
		&invoice.ID,
		&invoice.TenantID,
		&invoice.CustomerID,
		&invoice.JobID,
		&invoice.Number,
		&invoice.Status,
		&invoice.AmountExclCents,
		&invoice.BTWCents,
		&invoice.AmountInclCents,
		&invoice.DueDate,
		&invoice.PaidAt,
		&invoice.PaymentID,
		&invoice.PDFObject,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}
