package repositories

import (
	"context"
	"time"

	"plumbline/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AppointmentRepository interface {
	Create(ctx context.Context, tenantID uuid.UUID, appointment *models.Appointment) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error)
	List(ctx context.Context, tenantID uuid.UUID, filter map[string]any, limit, offset int) ([]*models.Appointment, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, patch map[string]any) (int64, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error)
}

type appointmentRepo struct {
	store *ScopedStore
}

func NewAppointmentRepo(store *ScopedStore) AppointmentRepository {
	return &appointmentRepo{store: store}
}

func (r *appointmentRepo) Create(ctx context.Context, tenantID uuid.UUID, appointment *models.Appointment) error {
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	appointment.TenantID = tenantID
	if appointment.Status == "" {
		appointment.Status = models.AppointmentStatusPlanned
	}

	return r.store.Insert(ctx, tenantID, "appointments", map[string]any{
		"id":            appointment.ID,
		"job_id":        appointment.JobID,
		"technician_id": appointment.TechnicianID,
		"starts_at":     appointment.StartsAt,
		"ends_at":       appointment.EndsAt,
		"status":        appointment.Status,
		"created_at":    appointment.CreatedAt,
		"updated_at":    appointment.UpdatedAt,
	})
}

func (r *appointmentRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error) {
	row, err := r.store.QueryByID(ctx, tenantID, "appointments", id)
	if err != nil {
		return nil, err
	}
	return scanAppointment(row)
}

func (r *appointmentRepo) List(ctx context.Context, tenantID uuid.UUID, filter map[string]any, limit, offset int) ([]*models.Appointment, error) {
	if filter == nil {
		filter = map[string]any{}
	}
	rows, err := r.store.Query(ctx, tenantID, "appointments", filter, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []*models.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	return appointments, rows.Err()
}

func (r *appointmentRepo) Update(ctx context.Context, tenantID, id uuid.UUID, patch map[string]any) (int64, error) {
	return r.store.Update(ctx, tenantID, "appointments", id, patch)
}

func (r *appointmentRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	return r.store.Delete(ctx, tenantID, "appointments", id)
}

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	appointment := &models.Appointment{}
	err := row.Scan(
		&appointment.ID,
		&appointment.TenantID,
		&appointment.JobID,
		&appointment.TechnicianID,
		&appointment.StartsAt,
		&appointment.EndsAt,
		&appointment.Status,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return appointment, nil
}
