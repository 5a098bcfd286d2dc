package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/model"
)

func TestJobCreateAndList(t *testing.T) {
	jobs := newFakeJobs()
	svc := NewJobService(jobs)

	created, err := svc.Create(context.Background(), "user-1", &model.Job{Company: "  Acme  ", Role: "Engineer"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", created.UserID)
	assert.Equal(t, "Acme", created.Company, "fields are trimmed")
	assert.Equal(t, model.DefaultJobStatus, created.Status)

	listed, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestJobCreate_RejectsOversizedField(t *testing.T) {
	svc := NewJobService(newFakeJobs())

	_, err := svc.Create(context.Background(), "user-1", &model.Job{
		Comments: strings.Repeat("x", maxJobFieldLength+1),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestJobUpdate_PreservesOwnerAndCreation(t *testing.T) {
	jobs := newFakeJobs()
	svc := NewJobService(jobs)

	created, err := svc.Create(context.Background(), "user-1", &model.Job{Company: "Acme"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), "user-1", created.ID, &model.Job{
		Company: "Acme",
		Status:  "Interview",
		// A hostile payload claiming another owner is ignored.
		UserID: "someone-else",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", updated.UserID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Interview", updated.Status)
}

func TestJobUpdate_EmptyStatusKeepsExisting(t *testing.T) {
	jobs := newFakeJobs()
	svc := NewJobService(jobs)

	created, err := svc.Create(context.Background(), "user-1", &model.Job{Status: "Offer"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), "user-1", created.ID, &model.Job{Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Offer", updated.Status)
}

func TestJobOwnership_OtherOwnersRecordReadsAsMissing(t *testing.T) {
	jobs := newFakeJobs()
	svc := NewJobService(jobs)

	created, err := svc.Create(context.Background(), "owner", &model.Job{Company: "Acme"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "intruder", created.ID, &model.Job{Company: "Evil"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = svc.Delete(context.Background(), "intruder", created.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// The record is untouched.
	still, err := jobs.GetJobByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", still.Company)
}

func TestJobDelete(t *testing.T) {
	jobs := newFakeJobs()
	svc := NewJobService(jobs)

	created, err := svc.Create(context.Background(), "user-1", &model.Job{Company: "Acme"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "user-1", created.ID))
	err = svc.Delete(context.Background(), "user-1", created.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
