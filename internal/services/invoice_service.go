package services

import (
	"context"
	"fmt"
	"time"

	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/repositories"
	"plumbline/internal/webhooks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InvoiceLineInput is one billable line before tax computation
type InvoiceLineInput struct {
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	BTWRateID      string `json:"btw_rate_id"`
}

// InvoiceService handles invoicing: drafting from completed jobs, BTW
// computation in cents, the status pipeline, and payment application.
type InvoiceService interface {
	CreateInvoiceForJob(ctx context.Context, tenantID, jobID uuid.UUID, lines []InvoiceLineInput) (*models.Invoice, error)
	GetInvoiceByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error)
	GetInvoiceLines(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*models.InvoiceLine, error)
	ListInvoices(ctx context.Context, tenantID uuid.UUID, filter map[string]any, limit, offset int) ([]*models.Invoice, error)
	SendInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, tenantID, invoiceID uuid.UUID, status string) error
	DeleteInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) error
	AttachPDF(ctx context.Context, tenantID, invoiceID uuid.UUID, objectName string) error
	MarkOverdueInvoices(ctx context.Context) (int64, error)

	// ApplyPayment satisfies the webhook pipeline's applier contract
	ApplyPayment(ctx context.Context, tx pgx.Tx, event *webhooks.PaymentEvent) (models.JSONB, error)
}

type invoiceService struct {
	invoiceRepo repositories.InvoiceRepository
	jobRepo     repositories.JobRepository
	mollieSvc   MollieService
}

func NewInvoiceService(invoiceRepo repositories.InvoiceRepository, jobRepo repositories.JobRepository, mollieSvc MollieService) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		jobRepo:     jobRepo,
		mollieSvc:   mollieSvc,
	}
}

// Valid invoice status transitions. Paid is terminal; overdue invoices can
// still be paid.
var invoiceTransitions = map[string][]string{
	models.InvoiceStatusDraft:   {models.InvoiceStatusOpen},
	models.InvoiceStatusOpen:    {models.InvoiceStatusPaid, models.InvoiceStatusOverdue},
	models.InvoiceStatusOverdue: {models.InvoiceStatusPaid},
	models.InvoiceStatusPaid:    {},
}

func isValidInvoiceTransition(current, next string) bool {
	for _, allowed := range invoiceTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s *invoiceService) CreateInvoiceForJob(ctx context.Context, tenantID, jobID uuid.UUID, lines []InvoiceLineInput) (*models.Invoice, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("an invoice needs at least one line")
	}

	job, err := s.jobRepo.GetByID(ctx, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("job not found")
	}
	if job.Status != models.JobStatusCompleted {
		return nil, fmt.Errorf("only completed jobs can be invoiced, job is %s", job.Status)
	}

	issuedAt := time.Now()
	var amountExcl, btwTotal int64
	invoiceLines := make([]*models.InvoiceLine, 0, len(lines))

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line quantity must be positive")
		}
		if line.UnitPriceCents < 0 {
			return nil, fmt.Errorf("line unit price cannot be negative")
		}
		if err := common.ValidateRequiredString(line.Description, "description"); err != nil {
			return nil, err
		}

		rate, err := models.BTWRateFor(line.BTWRateID, issuedAt)
		if err != nil {
			return nil, err
		}

		net := int64(line.Quantity) * line.UnitPriceCents
		amountExcl += net
		btwTotal += rate.BTWAmount(net)

		invoiceLines = append(invoiceLines, &models.InvoiceLine{
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			BTWRateID:      line.BTWRateID,
		})
	}

	number, err := s.invoiceRepo.NextNumber(ctx, tenantID, issuedAt.Year())
	if err != nil {
		return nil, common.SecureErrorMessage("generate invoice number", err)
	}

	invoice := &models.Invoice{
		CustomerID:      job.CustomerID,
		JobID:           &jobID,
		Number:          number,
		Status:          models.InvoiceStatusDraft,
		AmountExclCents: amountExcl,
		BTWCents:        btwTotal,
		AmountInclCents: amountExcl + btwTotal,
		DueDate:         issuedAt.AddDate(0, 0, 30),
	}

	if err := s.invoiceRepo.Create(ctx, tenantID, invoice, invoiceLines); err != nil {
		return nil, common.SecureErrorMessage("create invoice", err)
	}

	if _, err := s.jobRepo.Update(ctx, tenantID, jobID, map[string]any{"status": models.JobStatusInvoiced}); err != nil {
		return nil, common.SecureErrorMessage("mark job invoiced", err)
	}

	return invoice, nil
}

func (s *invoiceService) GetInvoiceByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error) {
	return s.invoiceRepo.GetByID(ctx, tenantID, invoiceID)
}

func (s *invoiceService) GetInvoiceLines(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*models.InvoiceLine, error) {
	return s.invoiceRepo.GetLines(ctx, tenantID, invoiceID)
}

func (s *invoiceService) ListInvoices(ctx context.Context, tenantID uuid.UUID, filter map[string]any, limit, offset int) ([]*models.Invoice, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	if status, ok := filter["status"].(string); ok {
		if err := common.ValidateInvoiceStatus(status); err != nil {
			return nil, err
		}
	}
	return s.invoiceRepo.List(ctx, tenantID, filter, limit, offset)
}

// SendInvoice opens a draft invoice and registers a payment with the provider
func (s *invoiceService) SendInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoice not found")
	}
	if invoice.Status != models.InvoiceStatusDraft {
		return nil, fmt.Errorf("only draft invoices can be sent, invoice is %s", invoice.Status)
	}

	payment, err := s.mollieSvc.CreatePayment(ctx, &CreatePaymentRequest{
		AmountCents: invoice.AmountInclCents,
		Description: fmt.Sprintf("Invoice %s", invoice.Number),
		Reference:   invoice.ID.String(),
	})
	if err != nil {
		return nil, common.SecureErrorMessage("create payment", err)
	}

	patch := map[string]any{
		"status":     models.InvoiceStatusOpen,
		"payment_id": payment.ID,
	}
	if _, err := s.invoiceRepo.Update(ctx, tenantID, invoiceID, patch); err != nil {
		return nil, common.SecureErrorMessage("open invoice", err)
	}

	invoice.Status = models.InvoiceStatusOpen
	invoice.PaymentID = &payment.ID
	return invoice, nil
}

func (s *invoiceService) UpdateInvoiceStatus(ctx context.Context, tenantID, invoiceID uuid.UUID, status string) error {
	if err := common.ValidateInvoiceStatus(status); err != nil {
		return err
	}

	invoice, err := s.invoiceRepo.GetByID(ctx, tenantID, invoiceID)
	if err != nil {
		return fmt.Errorf("invoice not found")
	}
	if !isValidInvoiceTransition(invoice.Status, status) {
		return fmt.Errorf("invalid status transition from %s to %s", invoice.Status, status)
	}

	patch := map[string]any{"status": status}
	if status == models.InvoiceStatusPaid {
		patch["paid_at"] = time.Now()
	}

	if _, err := s.invoiceRepo.Update(ctx, tenantID, invoiceID, patch); err != nil {
		return common.SecureErrorMessage("update invoice status", err)
	}
	return nil
}

// DeleteInvoice removes a draft. Issued invoices are immutable records.
func (s *invoiceService) DeleteInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	invoice, err := s.invoiceRepo.GetByID(ctx, tenantID, invoiceID)
	if err != nil {
		return fmt.Errorf("invoice not found")
	}
	if invoice.Status != models.InvoiceStatusDraft {
		return fmt.Errorf("only draft invoices can be deleted")
	}

	if _, err := s.invoiceRepo.Delete(ctx, tenantID, invoiceID); err != nil {
		return common.SecureErrorMessage("delete invoice", err)
	}
	return nil
}

func (s *invoiceService) AttachPDF(ctx context.Context, tenantID, invoiceID uuid.UUID, objectName string) error {
	_, err := s.invoiceRepo.Update(ctx, tenantID, invoiceID, map[string]any{"pdf_object": objectName})
	return err
}

func (s *invoiceService) MarkOverdueInvoices(ctx context.Context) (int64, error) {
	return s.invoiceRepo.MarkOverdue(ctx, time.Now())
}

// ApplyPayment marks the invoice behind a provider payment as paid. It runs
// inside the webhook pipeline's transaction; applying twice is harmless
// because the paid state is checked in the same statement.
func (s *invoiceService) ApplyPayment(ctx context.Context, tx pgx.Tx, event *webhooks.PaymentEvent) (models.JSONB, error) {
	if event.PaymentID == "" {
		return nil, fmt.Errorf("payment event %s carries no payment id", event.EventID)
	}

	paidAt := time.Now()
	if event.PaidAt != nil {
		paidAt = *event.PaidAt
	}

	invoice, applied, err := s.invoiceRepo.MarkPaidByPaymentID(ctx, tx, event.PaymentID, paidAt)
	if err != nil {
		return nil, fmt.Errorf("apply payment %s: %w", event.PaymentID, err)
	}

	return models.JSONB{
		"invoice_id": invoice.ID.String(),
		"tenant_id":  invoice.TenantID.String(),
		"number":     invoice.Number,
		"applied":    applied,
	}, nil
}
