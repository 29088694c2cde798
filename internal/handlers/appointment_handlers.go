package handlers

import (
	"net/http"
	"time"

	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/services"

	"github.com/labstack/echo/v4"
)

// AppointmentHandlers handles HTTP requests for appointments
type AppointmentHandlers struct {
	appointmentService services.AppointmentService
}

func NewAppointmentHandlers(appointmentService services.AppointmentService) *AppointmentHandlers {
	return &AppointmentHandlers{
		appointmentService: appointmentService,
	}
}

// CreateAppointment handles POST /appointments
func (h *AppointmentHandlers) CreateAppointment(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		JobID        string `json:"job_id"`
		TechnicianID string `json:"technician_id"`
		StartsAt     string `json:"starts_at"`
		EndsAt       string `json:"ends_at"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	jobID, err := common.ValidateUUID(req.JobID, "job_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	technicianID, err := common.ValidateUUID(req.TechnicianID, "technician_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return common.SendValidationError(c, "starts_at", "must be RFC3339")
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return common.SendValidationError(c, "ends_at", "must be RFC3339")
	}

	appointment := &models.Appointment{
		JobID:        jobID,
		TechnicianID: technicianID,
		StartsAt:     startsAt,
		EndsAt:       endsAt,
	}

	if err := h.appointmentService.CreateAppointment(ctx, tenantID, appointment); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, appointment)
}

// GetAppointment handles GET /appointments/:id
func (h *AppointmentHandlers) GetAppointment(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	appointmentID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	appointment, err := h.appointmentService.GetAppointmentByID(ctx, tenantID, appointmentID)
	if err != nil {
		return common.SendNotFoundError(c, "appointment")
	}

	return c.JSON(http.StatusOK, appointment)
}

// ListAppointments handles GET /appointments
func (h *AppointmentHandlers) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	filter := map[string]any{}
	if jobID := c.QueryParam("job_id"); jobID != "" {
		id, err := common.ValidateUUID(jobID, "job_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter["job_id"] = id
	}
	if technicianID := c.QueryParam("technician_id"); technicianID != "" {
		id, err := common.ValidateUUID(technicianID, "technician_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter["technician_id"] = id
	}
	if status := c.QueryParam("status"); status != "" {
		filter["status"] = status
	}

	limit, offset := parsePagination(c)
	appointments, err := h.appointmentService.ListAppointments(ctx, tenantID, filter, limit, offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"appointments": appointments,
		"limit":        limit,
		"offset":       offset,
	})
}

// UpdateAppointment handles PUT /appointments/:id
func (h *AppointmentHandlers) UpdateAppointment(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	appointmentID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	affected, err := h.appointmentService.UpdateAppointment(ctx, tenantID, appointmentID, patch)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "appointment")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Appointment updated successfully"})
}

// CancelAppointment handles PATCH /appointments/:id/cancel
func (h *AppointmentHandlers) CancelAppointment(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	appointmentID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.appointmentService.CancelAppointment(ctx, tenantID, appointmentID); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Appointment cancelled"})
}

// DeleteAppointment handles DELETE /appointments/:id
func (h *AppointmentHandlers) DeleteAppointment(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	appointmentID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	affected, err := h.appointmentService.DeleteAppointment(ctx, tenantID, appointmentID)
	if err != nil {
		return common.SendServerError(c, "Failed to delete appointment")
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "appointment")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Appointment deleted successfully"})
}
