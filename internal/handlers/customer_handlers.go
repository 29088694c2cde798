package handlers

import (
	"net/http"
	"strconv"

	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/services"

	"github.com/labstack/echo/v4"
)

// CustomerHandlers handles HTTP requests for customers
type CustomerHandlers struct {
	customerService services.CustomerService
}

func NewCustomerHandlers(customerService services.CustomerService) *CustomerHandlers {
	return &CustomerHandlers{
		customerService: customerService,
	}
}

// CreateCustomer handles POST /customers
func (h *CustomerHandlers) CreateCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		Name       string  `json:"name"`
		Email      *string `json:"email"`
		Phone      *string `json:"phone"`
		Street     *string `json:"street"`
		PostalCode *string `json:"postal_code"`
		City       *string `json:"city"`
		Notes      *string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	customer := &models.Customer{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Street:     req.Street,
		PostalCode: req.PostalCode,
		City:       req.City,
		Notes:      req.Notes,
	}

	if err := h.customerService.CreateCustomer(ctx, tenantID, customer); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, customer)
}

// GetCustomer handles GET /customers/:id
func (h *CustomerHandlers) GetCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	customerID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	customer, err := h.customerService.GetCustomerByID(ctx, tenantID, customerID)
	if err != nil {
		return common.SendNotFoundError(c, "customer")
	}

	return c.JSON(http.StatusOK, customer)
}

// ListCustomers handles GET /customers
func (h *CustomerHandlers) ListCustomers(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := parsePagination(c)
	customers, err := h.customerService.ListCustomers(ctx, tenantID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list customers")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"customers": customers,
		"limit":     limit,
		"offset":    offset,
	})
}

// UpdateCustomer handles PUT /customers/:id
func (h *CustomerHandlers) UpdateCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	customerID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	affected, err := h.customerService.UpdateCustomer(ctx, tenantID, customerID, patch)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "customer")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Customer updated successfully"})
}

// DeleteCustomer handles DELETE /customers/:id
func (h *CustomerHandlers) DeleteCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	customerID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	affected, err := h.customerService.DeleteCustomer(ctx, tenantID, customerID)
	if err != nil {
		return common.SendServerError(c, "Failed to delete customer")
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "customer")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Customer deleted successfully"})
}

// parsePagination reads limit/offset query params with defaults
func parsePagination(c echo.Context) (int, int) {
	limit := 10
	offset := 0

	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetParam := c.QueryParam("offset"); offsetParam != "" {
		if o, err := strconv.Atoi(offsetParam); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}
