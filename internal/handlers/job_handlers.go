package handlers

import (
	"net/http"
	"time"

	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/services"

	"github.com/labstack/echo/v4"
)

// JobHandlers handles HTTP requests for jobs
type JobHandlers struct {
	jobService services.JobService
}

func NewJobHandlers(jobService services.JobService) *JobHandlers {
	return &JobHandlers{
		jobService: jobService,
	}
}

// CreateJob handles POST /jobs
func (h *JobHandlers) CreateJob(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		CustomerID  string  `json:"customer_id"`
		Title       string  `json:"title"`
		Description *string `json:"description"`
		ScheduledAt *string `json:"scheduled_at"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	customerID, err := common.ValidateUUID(req.CustomerID, "customer_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	job := &models.Job{
		CustomerID:  customerID,
		Title:       req.Title,
		Description: req.Description,
	}
	if req.ScheduledAt != nil {
		scheduledAt, err := time.Parse(time.RFC3339, *req.ScheduledAt)
		if err != nil {
			return common.SendValidationError(c, "scheduled_at", "must be RFC3339")
		}
		job.ScheduledAt = &scheduledAt
	}

	if err := h.jobService.CreateJob(ctx, tenantID, job); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, job)
}

// GetJob handles GET /jobs/:id
func (h *JobHandlers) GetJob(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	jobID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	job, err := h.jobService.GetJobByID(ctx, tenantID, jobID)
	if err != nil {
		return common.SendNotFoundError(c, "job")
	}

	return c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /jobs
func (h *JobHandlers) ListJobs(c echo.Context) error {
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
	if technicianID := c.QueryParam("technician_id"); technicianID != "" {
		id, err := common.ValidateUUID(technicianID, "technician_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter["technician_id"] = id
	}

	limit, offset := parsePagination(c)
	jobs, err := h.jobService.ListJobs(ctx, tenantID, filter, limit, offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobs":   jobs,
		"limit":  limit,
		"offset": offset,
	})
}

// UpdateJob handles PUT /jobs/:id
func (h *JobHandlers) UpdateJob(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	jobID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	affected, err := h.jobService.UpdateJob(ctx, tenantID, jobID, patch)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "job")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Job updated successfully"})
}

// UpdateJobStatus handles PATCH /jobs/:id/status
func (h *JobHandlers) UpdateJobStatus(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	jobID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	if err := h.jobService.UpdateJobStatus(ctx, tenantID, jobID, req.Status); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Job status updated", "status": req.Status})
}

// AssignTechnician handles PATCH /jobs/:id/assign
func (h *JobHandlers) AssignTechnician(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	jobID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		TechnicianID string `json:"technician_id"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	technicianID, err := common.ValidateUUID(req.TechnicianID, "technician_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.jobService.AssignTechnician(ctx, tenantID, jobID, technicianID); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Technician assigned"})
}

// DeleteJob handles DELETE /jobs/:id
func (h *JobHandlers) DeleteJob(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	jobID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	affected, err := h.jobService.DeleteJob(ctx, tenantID, jobID)
	if err != nil {
		return common.SendServerError(c, "Failed to delete job")
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "job")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Job deleted successfully"})
}
