package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/services"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/labstack/echo/v4"
)

const invoiceBucket = "invoices"

// InvoiceHandlers handles HTTP requests for invoices
type InvoiceHandlers struct {
	invoiceService  services.InvoiceService
	customerService services.CustomerService
	minioSvc        services.MinioService
}

func NewInvoiceHandlers(invoiceService services.InvoiceService, customerService services.CustomerService, minioSvc services.MinioService) *InvoiceHandlers {
	return &InvoiceHandlers{
		invoiceService:  invoiceService,
		customerService: customerService,
		minioSvc:        minioSvc,
	}
}

// CreateInvoice handles POST /invoices
func (h *InvoiceHandlers) CreateInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		JobID string                       `json:"job_id"`
		Lines []services.InvoiceLineInput `json:"lines"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	jobID, err := common.ValidateUUID(req.JobID, "job_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.CreateInvoiceForJob(ctx, tenantID, jobID, req.Lines)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, invoice)
}

// GetInvoice handles GET /invoices/:id
func (h *InvoiceHandlers) GetInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.GetInvoiceByID(ctx, tenantID, invoiceID)
	if err != nil {
		return common.SendNotFoundError(c, "invoice")
	}

	lines, err := h.invoiceService.GetInvoiceLines(ctx, tenantID, invoiceID)
	if err != nil {
		return common.SendServerError(c, "Failed to load invoice lines")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoice": invoice,
		"lines":   lines,
	})
}

// ListInvoices handles GET /invoices
func (h *InvoiceHandlers) ListInvoices(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	filter := map[string]any{}
	if status := c.QueryParam("status"); status != "" {
		filter["status"] = status
	}
	if customerID := c.QueryParam("customer_id"); customerID != "" {
		id, err := common.ValidateUUID(customerID, "customer_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter["customer_id"] = id
	}

	limit, offset := parsePagination(c)
	invoices, err := h.invoiceService.ListInvoices(ctx, tenantID, filter, limit, offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"limit":    limit,
		"offset":   offset,
	})
}

// SendInvoice handles POST /invoices/:id/send
func (h *InvoiceHandlers) SendInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.SendInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, invoice)
}

// UpdateInvoiceStatus handles PATCH /invoices/:id/status
func (h *InvoiceHandlers) UpdateInvoiceStatus(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	if err := h.invoiceService.UpdateInvoiceStatus(ctx, tenantID, invoiceID, req.Status); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Invoice status updated", "status": req.Status})
}

// DeleteInvoice handles DELETE /invoices/:id
func (h *InvoiceHandlers) DeleteInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.invoiceService.DeleteInvoice(ctx, tenantID, invoiceID); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Invoice deleted successfully"})
}

// GetInvoicePDF handles GET /invoices/:id/pdf. The PDF is generated once,
// stored, and served through a presigned URL afterwards.
func (h *InvoiceHandlers) GetInvoicePDF(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.GetInvoiceByID(ctx, tenantID, invoiceID)
	if err != nil {
		return common.SendNotFoundError(c, "invoice")
	}

	if invoice.PDFObject == nil {
		objectName, err := h.renderAndStorePDF(ctx, tenantID, invoice)
		if err != nil {
			return common.SendServerError(c, "Failed to generate invoice PDF")
		}
		invoice.PDFObject = &objectName
	}

	url, err := h.minioSvc.GetPresignedURL(invoiceBucket, *invoice.PDFObject, 15*time.Minute)
	if err != nil {
		return common.SendServerError(c, "Failed to create download link")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"url":     url,
		"expires": time.Now().Add(15 * time.Minute).UTC().Format(time.RFC3339),
	})
}

func (h *InvoiceHandlers) renderAndStorePDF(ctx context.Context, tenantID uuid.UUID, invoice *models.Invoice) (string, error) {
	customer, err := h.customerService.GetCustomerByID(ctx, tenantID, invoice.CustomerID)
	if err != nil {
		return "", fmt.Errorf("failed to load customer: %w", err)
	}

	lines, err := h.invoiceService.GetInvoiceLines(ctx, tenantID, invoice.ID)
	if err != nil {
		return "", fmt.Errorf("failed to load lines: %w", err)
	}

	pdfBytes, err := generateInvoicePDF(invoice, customer, lines)
	if err != nil {
		return "", err
	}

	// Object names are tenant-prefixed so a bucket listing never mixes tenants
	objectName := fmt.Sprintf("%s/%s.pdf", tenantID, invoice.Number)
	if err := h.minioSvc.UploadDocument(ctx, invoiceBucket, objectName, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		return "", fmt.Errorf("failed to store PDF: %w", err)
	}

	if err := h.invoiceService.AttachPDF(ctx, tenantID, invoice.ID, objectName); err != nil {
		return "", err
	}
	return objectName, nil
}

// euros formats cents as a euro amount with a comma decimal separator
func euros(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sEUR %d,%02d", sign, cents/100, cents%100)
}

// generateInvoicePDF renders an invoice as an A4 PDF
func generateInvoicePDF(invoice *models.Invoice, customer *models.Customer, lines []*models.InvoiceLine) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	marginX := 20.0
	marginY := 20.0
	pdf.SetMargins(marginX, marginY, marginX)
	pdf.SetAutoPageBreak(true, marginY)

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(33, 37, 41)

	pdf.SetXY(marginX, marginY)
	pdf.Cell(0, 10, "FACTUUR")
	pdf.Ln(15)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Factuurnummer: %s", invoice.Number))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Factuurdatum: %s", invoice.CreatedAt.Format("02-01-2006")))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Vervaldatum: %s", invoice.DueDate.Format("02-01-2006")))
	pdf.Ln(10)

	// Billing address
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 8, "FACTUURADRES:")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, customer.Name)
	pdf.Ln(6)
	if customer.Street != nil {
		pdf.Cell(0, 6, *customer.Street)
		pdf.Ln(6)
	}
	if customer.PostalCode != nil && customer.City != nil {
		pdf.Cell(0, 6, fmt.Sprintf("%s %s", *customer.PostalCode, *customer.City))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	// Line table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)

	headers := []string{"Omschrijving", "Aantal", "Prijs", "Bedrag"}
	colWidths := []float64{80, 20, 30, 40}
	for i, header := range headers {
		pdf.CellFormat(colWidths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(255, 255, 255)
	for _, line := range lines {
		amount := int64(line.Quantity) * line.UnitPriceCents
		pdf.CellFormat(colWidths[0], 8, line.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 8, fmt.Sprintf("%d", line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colWidths[2], 8, euros(line.UnitPriceCents), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[3], 8, euros(amount), "1", 0, "R", false, 0, "")
		pdf.Ln(8)
	}
	pdf.Ln(5)

	// Totals
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(130, 6, "Subtotaal:", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, euros(invoice.AmountExclCents), "", 0, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(130, 5, "BTW:", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 5, euros(invoice.BTWCents), "", 0, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(130, 8, "TOTAAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, euros(invoice.AmountInclCents), "", 0, "R", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 8)
	pdf.Cell(0, 6, "Betaling binnen 30 dagen na factuurdatum.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}
