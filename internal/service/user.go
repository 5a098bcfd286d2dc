package service

import (
	"context"
	"log/slog"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/audit"
	"github.com/nrahman/jobtrack/internal/model"
	"github.com/nrahman/jobtrack/internal/repository"
)

// UserService implements the admin account-management operations. The
// handler layer gates every call behind the admin role; the rules here
// are the ones that hold even for admins.
type UserService struct {
	users repository.UserRepository
	audit *audit.Logger
	log   *slog.Logger
}

func NewUserService(users repository.UserRepository, auditLog *audit.Logger, log *slog.Logger) *UserService {
	return &UserService{users: users, audit: auditLog, log: log}
}

func (s *UserService) List(ctx context.Context) ([]model.UserSummary, error) {
	return s.users.ListUsers(ctx)
}

// ChangeRole sets the target's role. An admin cannot demote themself:
// that path can strand a deployment with zero administrators.
func (s *UserService) ChangeRole(ctx context.Context, actor *model.User, targetID string, role model.Role) error {
	if !role.Valid() {
		return apperror.ValidationFailed("role", "role must be admin or contributor")
	}
	if actor.ID == targetID && role != model.RoleAdmin {
		return apperror.ValidationFailed("role", "you cannot remove your own admin role")
	}

	if err := s.users.UpdateUserRole(ctx, targetID, role); err != nil {
		return err
	}

	s.audit.Record("ROLE_CHANGED",
		audit.P("actor", actor.Username),
		audit.P("target_id", targetID),
		audit.P("role", string(role)),
	)
	return nil
}

// Delete removes an account and, via the store's cascade, its records.
// Self-deletion is rejected for the same reason self-demotion is.
func (s *UserService) Delete(ctx context.Context, actor *model.User, targetID string) error {
	if actor.ID == targetID {
		return apperror.ValidationFailed("id", "you cannot delete your own account")
	}

	if err := s.users.DeleteUser(ctx, targetID); err != nil {
		return err
	}

	s.audit.Record("USER_DELETED",
		audit.P("actor", actor.Username),
		audit.P("target_id", targetID),
	)
	return nil
}
