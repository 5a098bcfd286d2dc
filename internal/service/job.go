package service

import (
	"context"
	"strings"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/model"
	"github.com/nrahman/jobtrack/internal/repository"
)

const maxJobFieldLength = 2000

// JobService manages a user's application records. Records are strictly
// per-owner: every operation is scoped to the calling user, and a record
// owned by someone else is indistinguishable from one that does not
// exist.
type JobService struct {
	jobs repository.JobRepository
}

func NewJobService(jobs repository.JobRepository) *JobService {
	return &JobService{jobs: jobs}
}

func (s *JobService) List(ctx context.Context, userID string) ([]model.Job, error) {
	return s.jobs.ListJobs(ctx, userID)
}

func (s *JobService) Create(ctx context.Context, userID string, job *model.Job) (*model.Job, error) {
	if err := validateJob(job); err != nil {
		return nil, err
	}
	job.UserID = userID
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *JobService) Update(ctx context.Context, userID, jobID string, upd *model.Job) (*model.Job, error) {
	existing, err := s.owned(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if err := validateJob(upd); err != nil {
		return nil, err
	}

	upd.ID = existing.ID
	upd.UserID = existing.UserID
	upd.CreatedAt = existing.CreatedAt
	if upd.Status == "" {
		upd.Status = existing.Status
	}

	if err := s.jobs.UpdateJob(ctx, upd); err != nil {
		return nil, err
	}
	return upd, nil
}

func (s *JobService) Delete(ctx context.Context, userID, jobID string) error {
	if _, err := s.owned(ctx, userID, jobID); err != nil {
		return err
	}
	return s.jobs.DeleteJob(ctx, jobID)
}

// owned fetches the record and checks ownership. A mismatch reports
// not-found, never forbidden, so probing ids leaks nothing.
func (s *JobService) owned(ctx context.Context, userID, jobID string) (*model.Job, error) {
	job, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, apperror.NotFound("job", jobID)
	}
	return job, nil
}

func validateJob(job *model.Job) error {
	for field, value := range map[string]string{
		"Company":  job.Company,
		"Role":     job.Role,
		"Comments": job.Comments,
	} {
		if len(value) > maxJobFieldLength {
			return apperror.ValidationFailed(field, field+" is too long")
		}
	}
	job.Company = strings.TrimSpace(job.Company)
	job.Role = strings.TrimSpace(job.Role)
	return nil
}
