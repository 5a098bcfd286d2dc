// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage is the only implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/nrahman/jobtrack/internal/model"
)

// ResolveOutcome describes how a federated assertion mapped onto a user
// row. The service layer audits created/linked rows differently and only
// seeds the sample record for a created one.
type ResolveOutcome int

const (
	// ResolvedExisting: the external id was already attached to a row.
	ResolvedExisting ResolveOutcome = iota
	// ResolvedLinked: a password account with the matching email gained
	// the external id.
	ResolvedLinked
	// ResolvedCreated: no matching row existed; a fresh one was inserted.
	ResolvedCreated
)

type UserRepository interface {
	// CreateUser inserts a new row. Returns apperror.ErrConflict when the
	// username is already taken (compared case-insensitively).
	CreateUser(ctx context.Context, user *model.User) error

	// GetUserByID returns apperror.ErrNotFound for a missing id.
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// GetUserByUsername looks up case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// ResolveGoogleUser maps a verified federated assertion to exactly one
	// row, atomically: lookup by external id, else link by email, else a
	// conflict-tolerant insert with a re-lookup when a concurrent attempt
	// wins the race. At most one row is ever created per external id.
	ResolveGoogleUser(ctx context.Context, externalID, email string, role model.Role) (*model.User, ResolveOutcome, error)

	// UpdateUserProfile persists display_name, photo, and password_hash.
	// Returns apperror.ErrNotFound if the row vanished concurrently.
	UpdateUserProfile(ctx context.Context, user *model.User) error

	ListUsers(ctx context.Context) ([]model.UserSummary, error)
	UpdateUserRole(ctx context.Context, id string, role model.Role) error
	DeleteUser(ctx context.Context, id string) error
}

type JobRepository interface {
	CreateJob(ctx context.Context, job *model.Job) error
	ListJobs(ctx context.Context, userID string) ([]model.Job, error)
	GetJobByID(ctx context.Context, id string) (*model.Job, error)
	UpdateJob(ctx context.Context, job *model.Job) error
	DeleteJob(ctx context.Context, id string) error
}

type DropdownRepository interface {
	ListOptions(ctx context.Context) ([]model.DropdownOption, error)
	GetOption(ctx context.Context, id int64) (*model.DropdownOption, error)
	// AddOption appends with the next sort_order for the field. Returns
	// apperror.ErrConflict for a duplicate label within the field.
	AddOption(ctx context.Context, fieldName, label string) (*model.DropdownOption, error)
	RenameOption(ctx context.Context, id int64, label string) (*model.DropdownOption, error)
	// ReorderOptions rewrites sort_order to match position in orderedIDs,
	// transactionally. IDs belonging to other fields are ignored.
	ReorderOptions(ctx context.Context, fieldName string, orderedIDs []int64) error
	DeleteOption(ctx context.Context, id int64) error
}
