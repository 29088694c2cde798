package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"plumbline/internal/caching"
	"plumbline/internal/common"
	"plumbline/internal/models"
	"plumbline/internal/repositories"

	"github.com/google/uuid"
)

const jobCacheTTL = 2 * time.Minute

// JobService handles plumbing work orders and their status pipeline
type JobService interface {
	CreateJob(ctx context.Context, tenantID uuid.UUID, job *models.Job) error
	GetJobByID(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, tenantID uuid.UUID, filter map[string]any, limit, offset int) ([]*models.Job, error)
	UpdateJob(ctx context.Context, tenantID, jobID uuid.UUID, patch map[string]any) (int64, error)
	UpdateJobStatus(ctx context.Context, tenantID, jobID uuid.UUID, status string) error
	AssignTechnician(ctx context.Context, tenantID, jobID, technicianID uuid.UUID) error
	DeleteJob(ctx context.Context, tenantID, jobID uuid.UUID) (int64, error)
}

type jobService struct {
	jobRepo      repositories.JobRepository
	customerRepo repositories.CustomerRepository
	cache        caching.CacheService
}

func NewJobService(jobRepo repositories.JobRepository, customerRepo repositories.CustomerRepository, cache caching.CacheService) JobService {
	return &jobService{
		jobRepo:      jobRepo,
		customerRepo: customerRepo,
		cache:        cache,
	}
}

// Valid job status transitions. Completed jobs move to invoiced only, and
// terminal states have no exits.
var jobTransitions = map[string][]string{
	models.JobStatusScheduled: {models.JobStatusEnRoute, models.JobStatusStarted, models.JobStatusCancelled},
	models.JobStatusEnRoute:   {models.JobStatusStarted, models.JobStatusCancelled},
	models.JobStatusStarted:   {models.JobStatusCompleted, models.JobStatusCancelled},
	models.JobStatusCompleted: {models.JobStatusInvoiced},
	models.JobStatusInvoiced:  {},
	models.JobStatusCancelled: {},
}

func isValidJobTransition(current, next string) bool {
	for _, allowed := range jobTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s *jobService) CreateJob(ctx context.Context, tenantID uuid.UUID, job *models.Job) error {
	if err := common.ValidateRequiredString(job.Title, "title"); err != nil {
		return err
	}
	if job.Status == "" {
		job.Status = models.JobStatusScheduled
	}
	if err := common.ValidateJobStatus(job.Status); err != nil {
		return err
	}

	// The customer must exist in this tenant; a foreign customer id reads as
	// not found through the scoped store.
	if _, err := s.customerRepo.GetByID(ctx, tenantID, job.CustomerID); err != nil {
		return fmt.Errorf("customer not found")
	}

	if err := s.jobRepo.Create(ctx, tenantID, job); err != nil {
		return common.SecureErrorMessage("create job", err)
	}
	return nil
}

func (s *jobService) GetJobByID(ctx context.Context, tenantID, jobID uuid.UUID) (*models.Job, error) {
	if cached, err := s.cache.GetJob(ctx, tenantID, jobID); err == nil && cached != nil {
		return cached, nil
	}

	job, err := s.jobRepo.GetByID(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJob(ctx, tenantID, job, jobCacheTTL); err != nil {
		log.Printf("WARN: failed to cache job %s: %v", jobID, err)
	}
	return job, nil
}

func (s *jobService) ListJobs(ctx context.Context, tenantID uuid.UUID, filter map[string]any, limit, offset int) ([]*models.Job, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	if status, ok := filter["status"].(string); ok {
		if err := common.ValidateJobStatus(status); err != nil {
			return nil, err
		}
	}
	return s.jobRepo.List(ctx, tenantID, filter, limit, offset)
}

func (s *jobService) UpdateJob(ctx context.Context, tenantID, jobID uuid.UUID, patch map[string]any) (int64, error) {
	// Status changes go through UpdateJobStatus so the pipeline is enforced
	delete(patch, "status")

	affected, err := s.jobRepo.Update(ctx, tenantID, jobID, patch)
	if err != nil {
		return 0, common.SecureErrorMessage("update job", err)
	}
	if affected > 0 {
		s.invalidate(ctx, tenantID, jobID)
	}
	return affected, nil
}

func (s *jobService) UpdateJobStatus(ctx context.Context, tenantID, jobID uuid.UUID, status string) error {
	if err := common.ValidateJobStatus(status); err != nil {
		return err
	}

	job, err := s.jobRepo.GetByID(ctx, tenantID, jobID)
	if err != nil {
		return fmt.Errorf("job not found")
	}

	if !isValidJobTransition(job.Status, status) {
		return fmt.Errorf("invalid status transition from %s to %s", job.Status, status)
	}

	patch := map[string]any{"status": status}
	if status == models.JobStatusCompleted {
		patch["completed_at"] = time.Now()
	}

	if _, err := s.jobRepo.Update(ctx, tenantID, jobID, patch); err != nil {
		return common.SecureErrorMessage("update job status", err)
	}
	s.invalidate(ctx, tenantID, jobID)
	return nil
}

func (s *jobService) AssignTechnician(ctx context.Context, tenantID, jobID, technicianID uuid.UUID) error {
	job, err := s.jobRepo.GetByID(ctx, tenantID, jobID)
	if err != nil {
		return fmt.Errorf("job not found")
	}
	if job.Status == models.JobStatusInvoiced || job.Status == models.JobStatusCancelled {
		return fmt.Errorf("cannot assign technician to a %s job", job.Status)
	}

	if _, err := s.jobRepo.Update(ctx, tenantID, jobID, map[string]any{"technician_id": technicianID}); err != nil {
		return common.SecureErrorMessage("assign technician", err)
	}
	s.invalidate(ctx, tenantID, jobID)
	return nil
}

func (s *jobService) DeleteJob(ctx context.Context, tenantID, jobID uuid.UUID) (int64, error) {
	affected, err := s.jobRepo.Delete(ctx, tenantID, jobID)
	if err != nil {
		return 0, fmt.Errorf("delete job: %w", err)
	}
	if affected > 0 {
		s.invalidate(ctx, tenantID, jobID)
	}
	return affected, nil
}

func (s *jobService) invalidate(ctx context.Context, tenantID, jobID uuid.UUID) {
	if err := s.cache.DeleteJob(ctx, tenantID, jobID); err != nil {
		log.Printf("WARN: failed to invalidate job cache %s: %v", jobID, err)
	}
}
