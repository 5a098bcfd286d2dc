// Package service implements the application's business rules on top of
// the repository interfaces. Handlers stay thin: parse, call a service,
// write the result.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/audit"
	"github.com/nrahman/jobtrack/internal/auth"
	"github.com/nrahman/jobtrack/internal/config"
	"github.com/nrahman/jobtrack/internal/fetch"
	"github.com/nrahman/jobtrack/internal/model"
	"github.com/nrahman/jobtrack/internal/repository"
)

const (
	maxEmailLength    = 254
	minPasswordLength = 8
	maxPasswordLength = 128

	// invalidCredentials is the one message both password failure paths
	// share, so a response can't confirm whether the username exists.
	invalidCredentials = "invalid username or password"
)

// emailShape is deliberately loose: local@domain.tld. Real validation
// happens when mail (or Google) reaches the address; this only rejects
// obvious garbage before it becomes a username.
var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ImageFetcher downloads a remote image into a data URL. Satisfied by
// fetch.ImageFetcher; service tests substitute a stub.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Session is a signed-in user plus their bearer token.
type Session struct {
	User  *model.User
	Token string
}

// AuthService implements registration, both sign-in paths, and profile
// management.
type AuthService struct {
	users     repository.UserRepository
	jobs      repository.JobRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	verifier  auth.IdentityVerifier
	images    ImageFetcher
	cfg       *config.Config
	audit     *audit.Logger
	log       *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	jobs repository.JobRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	verifier auth.IdentityVerifier,
	images ImageFetcher,
	cfg *config.Config,
	auditLog *audit.Logger,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		jobs:      jobs,
		passwords: passwords,
		tokens:    tokens,
		verifier:  verifier,
		images:    images,
		cfg:       cfg,
		audit:     auditLog,
		log:       log,
	}
}

// Register creates a password account. No token is issued: the client
// signs in explicitly afterwards, so registration and session start stay
// separate steps.
//
// The username must be email-shaped; the first account matching the
// bootstrap admin email becomes admin, everyone else a contributor.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	if username == "" || len(username) > maxEmailLength || !emailShape.MatchString(username) {
		return nil, apperror.ValidationFailed("username", "username must be a valid email address")
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength))
	}
	if !s.cfg.EmailAllowed(username) {
		return nil, apperror.Forbidden("this email is not permitted to register")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password could not be hashed")
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         s.roleFor(username),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.seedSampleJob(ctx, user.ID)
	s.audit.Record("REGISTER", audit.P("user", user.Username), audit.P("role", string(user.Role)))

	return user, nil
}

// Login verifies a password credential.
//
// Every failure path performs exactly one bcrypt comparison before
// returning, so response latency does not reveal whether the username
// exists or whether the account is federated-only.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.DummyVerify(password)
			s.audit.Record("LOGIN_FAILED", audit.P("user", strings.ToLower(username)))
			return nil, apperror.Unauthenticated(invalidCredentials)
		}
		return nil, err
	}

	if !user.HasPassword() {
		s.passwords.DummyVerify(password)
		s.audit.Record("LOGIN_FAILED", audit.P("user", user.Username))
		return nil, apperror.Unauthenticated(invalidCredentials)
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		s.audit.Record("LOGIN_FAILED", audit.P("user", user.Username))
		return nil, apperror.Unauthenticated(invalidCredentials)
	}

	s.audit.Record("LOGIN", audit.P("user", user.Username), audit.P("method", "password"))
	return s.startSession(user)
}

// FederatedLogin verifies a Google credential and resolves it to an
// account, creating or linking one as needed.
func (s *AuthService) FederatedLogin(ctx context.Context, credential string) (*Session, error) {
	assertion, err := s.verifier.VerifyCredential(ctx, credential)
	if err != nil {
		s.log.Warn("federated credential rejected", "error", err)
		return nil, apperror.Unauthenticated("could not verify identity credential")
	}
	return s.SignInWithAssertion(ctx, assertion)
}

// SignInWithAssertion resolves an already-verified provider assertion to
// a session. The OAuth redirect callback lands here directly; the
// credential path goes through FederatedLogin first.
func (s *AuthService) SignInWithAssertion(ctx context.Context, assertion *auth.Assertion) (*Session, error) {
	email := strings.ToLower(assertion.Email)
	if !s.cfg.EmailAllowed(email) {
		s.audit.Record("FEDERATED_DENIED", audit.P("user", email))
		return nil, apperror.Forbidden("this email is not permitted to sign in")
	}

	user, outcome, err := s.users.ResolveGoogleUser(ctx, assertion.ExternalID, email, s.roleFor(email))
	if err != nil {
		return nil, err
	}

	if outcome == repository.ResolvedCreated {
		s.seedSampleJob(ctx, user.ID)
	}
	s.importGoogleProfile(ctx, user, assertion)

	s.audit.Record("LOGIN",
		audit.P("user", user.Username),
		audit.P("method", "google"),
		audit.P("outcome", outcomeLabel(outcome)),
	)
	return s.startSession(user)
}

// Logout records the event. Tokens are stateless and stay valid until
// expiry; the audit trail is the only server-side effect.
func (s *AuthService) Logout(ctx context.Context, user *model.User) {
	s.audit.Record("LOGOUT", audit.P("user", user.Username))
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// ProfileUpdate carries the mutable profile fields. Nil pointers mean
// "leave unchanged"; an empty string clears the field.
type ProfileUpdate struct {
	DisplayName *string
	// Photo replaces the stored photo with an inline image data URL.
	Photo *string
	// PhotoURL imports a remote image (Google profile photos only).
	PhotoURL *string
	// NewPassword sets or changes the password. CurrentPassword must
	// verify when the account already has one.
	NewPassword     *string
	CurrentPassword string
}

// UpdateProfile applies upd to the user's own profile.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.NewPassword != nil {
		if len(*upd.NewPassword) < minPasswordLength || len(*upd.NewPassword) > maxPasswordLength {
			return nil, apperror.ValidationFailed("new_password",
				fmt.Sprintf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength))
		}
		// A federated-only account sets its first password freely; an
		// account that has one must prove it knows it.
		if user.HasPassword() && !s.passwords.Verify(upd.CurrentPassword, user.PasswordHash) {
			return nil, apperror.Unauthenticated("current password is incorrect")
		}
		hash, err := s.passwords.Hash(*upd.NewPassword)
		if err != nil {
			return nil, apperror.ValidationFailed("new_password", "password could not be hashed")
		}
		user.PasswordHash = hash
	}

	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if len(name) > 100 {
			return nil, apperror.ValidationFailed("display_name", "display name must be 100 characters or fewer")
		}
		user.DisplayName = name
	}

	if upd.Photo != nil {
		if *upd.Photo != "" {
			if err := validatePhotoDataURL(*upd.Photo); err != nil {
				return nil, err
			}
		}
		user.Photo = *upd.Photo
	}

	if upd.PhotoURL != nil && *upd.PhotoURL != "" {
		dataURL, err := s.importPhoto(ctx, *upd.PhotoURL)
		if err != nil {
			return nil, err
		}
		user.Photo = dataURL
	}

	if err := s.users.UpdateUserProfile(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record("PROFILE_UPDATED", audit.P("user", user.Username))
	return user, nil
}

func (s *AuthService) startSession(user *model.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, apperror.Internal("could not issue session token")
	}
	return &Session{User: user, Token: token}, nil
}

func (s *AuthService) roleFor(email string) model.Role {
	if s.cfg.BootstrapAdminEmail != "" && strings.EqualFold(email, s.cfg.BootstrapAdminEmail) {
		return model.RoleAdmin
	}
	return model.RoleContributor
}

// seedSampleJob gives every fresh account one editable example record.
// Failures are logged and ignored: a missing sample is cosmetic.
func (s *AuthService) seedSampleJob(ctx context.Context, userID string) {
	sample := &model.Job{
		UserID:   userID,
		Date:     time.Now().UTC().Format("2006-01-02"),
		Role:     "Sample Application",
		Company:  "Example Corp",
		Status:   model.DefaultJobStatus,
		Comments: "This is a sample record. Edit or delete it.",
	}
	if err := s.jobs.CreateJob(ctx, sample); err != nil {
		s.log.Warn("could not seed sample job", "user_id", userID, "error", err)
	}
}

// importGoogleProfile fills in a missing display name and photo from the
// provider assertion. Best-effort on every step: sign-in must succeed
// even when Google's image CDN is down.
func (s *AuthService) importGoogleProfile(ctx context.Context, user *model.User, assertion *auth.Assertion) {
	changed := false

	if user.DisplayName == "" && assertion.Name != "" {
		user.DisplayName = assertion.Name
		changed = true
	}

	if user.Photo == "" && assertion.PictureURL != "" {
		if dataURL, err := s.importPhoto(ctx, assertion.PictureURL); err == nil {
			user.Photo = dataURL
			changed = true
		} else {
			s.log.Warn("could not import google profile photo", "user", user.Username, "error", err)
		}
	}

	if !changed {
		return
	}
	if err := s.users.UpdateUserProfile(ctx, user); err != nil {
		s.log.Warn("could not save imported profile", "user", user.Username, "error", err)
	}
}

// importPhoto fetches a remote image, allowing only Google's profile
// photo CDN as a source host. The fetcher enforces scheme, redirect, and
// size rules; the host restriction here narrows whose images can be
// pulled at all.
func (s *AuthService) importPhoto(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", apperror.ValidationFailed("remote_photo_url", "photo URL is malformed")
	}
	host := parsed.Hostname()
	if host != "googleusercontent.com" && !strings.HasSuffix(host, ".googleusercontent.com") {
		return "", apperror.ValidationFailed("remote_photo_url", "photos can only be imported from Google")
	}

	dataURL, err := s.images.Fetch(ctx, rawURL)
	if err != nil {
		switch {
		case errors.Is(err, fetch.ErrScheme):
			return "", apperror.ValidationFailed("remote_photo_url", "photo URL must use https")
		case errors.Is(err, fetch.ErrTooLarge):
			return "", apperror.ValidationFailed("remote_photo_url", "photo exceeds the 300KB limit")
		default:
			return "", apperror.Upstream("could not fetch photo", err)
		}
	}
	return dataURL, nil
}

// validatePhotoDataURL checks an inline photo: image data URL shape and
// a decoded size within the fetch cap.
func validatePhotoDataURL(dataURL string) error {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return apperror.ValidationFailed("photo", "photo must be an image data URL")
	}
	idx := strings.Index(dataURL, ";base64,")
	if idx < 0 {
		return apperror.ValidationFailed("photo", "photo must be base64-encoded")
	}
	payload := dataURL[idx+len(";base64,"):]
	if base64.StdEncoding.DecodedLen(len(payload)) > fetch.MaxImageBytes {
		return apperror.ValidationFailed("photo", "photo exceeds the 300KB limit")
	}
	return nil
}

func outcomeLabel(o repository.ResolveOutcome) string {
	switch o {
	case repository.ResolvedCreated:
		return "created"
	case repository.ResolvedLinked:
		return "linked"
	default:
		return "existing"
	}
}
