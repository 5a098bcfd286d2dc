package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/auth"
	"github.com/nrahman/jobtrack/internal/model"
	"github.com/nrahman/jobtrack/internal/repository"
)

// fakeUsers is an in-memory repository.UserRepository. The mutex makes
// ResolveGoogleUser behave like the real store's transaction: one
// resolution at a time, at most one row per external id.
type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]*model.User
	seq  int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*model.User{}}
}

func (f *fakeUsers) nextID() string {
	f.seq++
	return fmt.Sprintf("user-%d", f.seq)
}

func (f *fakeUsers) CreateUser(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Username, user.Username) {
			return apperror.Conflict("username already taken")
		}
	}
	user.ID = f.nextID()
	user.Username = strings.ToLower(user.Username)
	user.CreatedAt = time.Now().UTC()
	clone := *user
	f.byID[user.ID] = &clone
	return nil
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUsers) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Username, username) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUsers) ResolveGoogleUser(ctx context.Context, externalID, email string, role model.Role) (*model.User, repository.ResolveOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.byID {
		if u.GoogleID == externalID {
			clone := *u
			return &clone, repository.ResolvedExisting, nil
		}
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Username, email) {
			u.GoogleID = externalID
			clone := *u
			return &clone, repository.ResolvedLinked, nil
		}
	}

	user := &model.User{
		ID:        f.nextID(),
		Username:  strings.ToLower(email),
		GoogleID:  externalID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	f.byID[user.ID] = user
	clone := *user
	return &clone, repository.ResolvedCreated, nil
}

func (f *fakeUsers) UpdateUserProfile(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored.DisplayName = user.DisplayName
	stored.Photo = user.Photo
	stored.PasswordHash = user.PasswordHash
	return nil
}

func (f *fakeUsers) ListUsers(ctx context.Context) ([]model.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.UserSummary{}
	for _, u := range f.byID {
		out = append(out, model.UserSummary{ID: u.ID, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt})
	}
	return out, nil
}

func (f *fakeUsers) UpdateUserRole(ctx context.Context, id string, role model.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.Role = role
	return nil
}

func (f *fakeUsers) DeleteUser(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.byID, id)
	return nil
}

// fakeJobs is an in-memory repository.JobRepository.
type fakeJobs struct {
	mu   sync.Mutex
	byID map[string]*model.Job
	seq  int
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{byID: map[string]*model.Job{}}
}

func (f *fakeJobs) CreateJob(ctx context.Context, job *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	job.ID = fmt.Sprintf("job-%d", f.seq)
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = model.DefaultJobStatus
	}
	clone := *job
	f.byID[job.ID] = &clone
	return nil
}

func (f *fakeJobs) ListJobs(ctx context.Context, userID string) ([]model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Job{}
	for _, j := range f.byID {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeJobs) GetJobByID(ctx context.Context, id string) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("job", id)
	}
	clone := *j
	return &clone, nil
}

func (f *fakeJobs) UpdateJob(ctx context.Context, job *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[job.ID]; !ok {
		return apperror.NotFound("job", job.ID)
	}
	job.UpdatedAt = time.Now().UTC()
	clone := *job
	f.byID[job.ID] = &clone
	return nil
}

func (f *fakeJobs) DeleteJob(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return apperror.NotFound("job", id)
	}
	delete(f.byID, id)
	return nil
}

// fakeVerifier returns a canned assertion, or err when set.
type fakeVerifier struct {
	assertion *auth.Assertion
	err       error
}

func (f *fakeVerifier) VerifyCredential(ctx context.Context, credential string) (*auth.Assertion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.assertion, nil
}

// fakeImages returns a canned data URL, or err when set.
type fakeImages struct {
	dataURL string
	err     error
	calls   int
}

func (f *fakeImages) Fetch(ctx context.Context, rawURL string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.dataURL, nil
}
