package repositories

import (
	"context"
	"time"

	"plumbline/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type JobRepository interface {
	Create(ctx context.Context, tenantID uuid.UUID, job *models.Job) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, tenantID uuid.UUID, filter map[string]any, limit, offset int) ([]*models.Job, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, patch map[string]any) (int64, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error)
}

type jobRepo struct {
	store *ScopedStore
}

func NewJobRepo(store *ScopedStore) JobRepository {
	return &jobRepo{store: store}
}

func (r *jobRepo) Create(ctx context.Context, tenantID uuid.UUID, job *models.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	job.TenantID = tenantID
	if job.Status == "" {
		job.Status = models.JobStatusScheduled
	}

	return r.store.Insert(ctx, tenantID, "jobs", map[string]any{
		"id":            job.ID,
		"customer_id":   job.CustomerID,
		"technician_id": job.TechnicianID,
		"title":         job.Title,
		"description":   job.Description,
		"status":        job.Status,
		"scheduled_at":  job.ScheduledAt,
		"completed_at":  job.CompletedAt,
		"created_at":    job.CreatedAt,
		"updated_at":    job.UpdatedAt,
	})
}

func (r *jobRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Job, error) {
	row, err := r.store.QueryByID(ctx, tenantID, "jobs", id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *jobRepo) List(ctx context.Context, tenantID uuid.UUID, filter map[string]any, limit, offset int) ([]*models.Job, error) {
	if filter == nil {
		filter = map[string]any{}
	}
	rows, err := r.store.Query(ctx, tenantID, "jobs", filter, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *jobRepo) Update(ctx context.Context, tenantID, id uuid.UUID, patch map[string]any) (int64, error) {
	return r.store.Update(ctx, tenantID, "jobs", id, patch)
}

func (r *jobRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	return r.store.Delete(ctx, tenantID, "jobs", id)
}

func scanJob(row pgx.Row) (*models.Job, error) {
	job := &models.Job{}
	err := row.Scan(
		&job.ID,
		&job.TenantID,
		&job.CustomerID,
		&job.TechnicianID,
		&job.Title,
		&job.Description,
		&job.Status,
		&job.ScheduledAt,
		&job.CompletedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
