package services

import (
	"context"
	"fmt"

	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/repositories"

	"github.com/google/uuid"
)

// AppointmentService handles technician calendar slots
type AppointmentService interface {
	CreateAppointment(ctx context.Context, tenantID uuid.UUID, appointment *models.Appointment) error
	GetAppointmentByID(ctx context.Context, tenantID, appointmentID uuid.UUID) (*models.Appointment, error)
	ListAppointments(ctx context.Context, tenantID uuid.UUID, filter map[string]any, limit, offset int) ([]*models.Appointment, error)
	UpdateAppointment(ctx context.Context, tenantID, appointmentID uuid.UUID, patch map[string]any) (int64, error)
	CancelAppointment(ctx context.Context, tenantID, appointmentID uuid.UUID) error
	DeleteAppointment(ctx context.Context, tenantID, appointmentID uuid.UUID) (int64, error)
}

type appointmentService struct {
	appointmentRepo repositories.AppointmentRepository
	jobRepo         repositories.JobRepository
}

func NewAppointmentService(appointmentRepo repositories.AppointmentRepository, jobRepo repositories.JobRepository) AppointmentService {
	return &appointmentService{
		appointmentRepo: appointmentRepo,
		jobRepo:         jobRepo,
	}
}

func validAppointmentStatus(status string) bool {
	switch status {
	case models.AppointmentStatusPlanned, models.AppointmentStatusConfirmed, models.AppointmentStatusCancelled:
		return true
	}
	return false
}

func (s *appointmentService) CreateAppointment(ctx context.Context, tenantID uuid.UUID, appointment *models.Appointment) error {
	if appointment.StartsAt.IsZero() || appointment.EndsAt.IsZero() {
		return fmt.Errorf("starts_at and ends_at are required")
	}
	if !appointment.EndsAt.After(appointment.StartsAt) {
		return fmt.Errorf("ends_at must be after starts_at")
	}
	if appointment.Status == "" {
		appointment.Status = models.AppointmentStatusPlanned
	}
	if !validAppointmentStatus(appointment.Status) {
		return fmt.Errorf("invalid appointment status: %s", appointment.Status)
	}

	job, err := s.jobRepo.GetByID(ctx, tenantID, appointment.JobID)
	if err != nil {
		return fmt.Errorf("job not found")
	}
	if job.Status == models.JobStatusCancelled || job.Status == models.JobStatusInvoiced {
		return fmt.Errorf("cannot schedule an appointment for a %s job", job.Status)
	}

	if err := s.appointmentRepo.Create(ctx, tenantID, appointment); err != nil {
		return common.SecureErrorMessage("create appointment", err)
	}
	return nil
}

func (s *appointmentService) GetAppointmentByID(ctx context.Context, tenantID, appointmentID uuid.UUID) (*models.Appointment, error) {
	return s.appointmentRepo.GetByID(ctx, tenantID, appointmentID)
}

func (s *appointmentService) ListAppointments(ctx context.Context, tenantID uuid.UUID, filter map[string]any, limit, offset int) ([]*models.Appointment, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.appointmentRepo.List(ctx, tenantID, filter, limit, offset)
}

func (s *appointmentService) UpdateAppointment(ctx context.Context, tenantID, appointmentID uuid.UUID, patch map[string]any) (int64, error) {
	if status, ok := patch["status"].(string); ok && !validAppointmentStatus(status) {
		return 0, fmt.Errorf("invalid appointment status: %s", status)
	}

	affected, err := s.appointmentRepo.Update(ctx, tenantID, appointmentID, patch)
	if err != nil {
		return 0, common.SecureErrorMessage("update appointment", err)
	}
	return affected, nil
}

func (s *appointmentService) CancelAppointment(ctx context.Context, tenantID, appointmentID uuid.UUID) error {
	affected, err := s.appointmentRepo.Update(ctx, tenantID, appointmentID, map[string]any{
		"status": models.AppointmentStatusCancelled,
	})
	if err != nil {
		return common.SecureErrorMessage("cancel appointment", err)
	}
	if affected == 0 {
		return fmt.Errorf("appointment not found")
	}
	return nil
}

func (s *appointmentService) DeleteAppointment(ctx context.Context, tenantID, appointmentID uuid.UUID) (int64, error) {
	return s.appointmentRepo.Delete(ctx, tenantID, appointmentID)
}
