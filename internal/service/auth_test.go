package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/audit"
	"github.com/nrahman/jobtrack/internal/auth"
	"github.com/nrahman/jobtrack/internal/config"
	"github.com/nrahman/jobtrack/internal/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type authFixture struct {
	svc      *AuthService
	users    *fakeUsers
	jobs     *fakeJobs
	verifier *fakeVerifier
	images   *fakeImages
	cfg      *config.Config
	audit    *audit.Logger
}

func newAuthFixture(t *testing.T, cfg *config.Config) *authFixture {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}

	passwords, err := auth.NewPasswordService(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &authFixture{
		users:    newFakeUsers(),
		jobs:     newFakeJobs(),
		verifier: &fakeVerifier{},
		images:   &fakeImages{},
		cfg:      cfg,
		audit:    audit.New(filepath.Join(t.TempDir(), "audit.log"), discard),
	}
	f.svc = NewAuthService(f.users, f.jobs, passwords, tokens, f.verifier, f.images, cfg, f.audit, discard)
	return f
}

// =========================================================================
// REGISTER
// =========================================================================

func TestRegister(t *testing.T) {
	f := newAuthFixture(t, nil)

	user, err := f.svc.Register(context.Background(), "Alice@Example.com", "hunter22-long")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", user.Username)
	assert.Equal(t, model.RoleContributor, user.Role)
	assert.True(t, user.HasPassword())
}

func TestRegister_SeedsSampleJob(t *testing.T) {
	f := newAuthFixture(t, nil)

	user, err := f.svc.Register(context.Background(), "a@x.com", "hunter22-long")
	require.NoError(t, err)

	jobs, err := f.jobs.ListJobs(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.DefaultJobStatus, jobs[0].Status)
}

func TestRegister_BootstrapAdmin(t *testing.T) {
	f := newAuthFixture(t, &config.Config{BootstrapAdminEmail: "boss@x.com"})

	boss, err := f.svc.Register(context.Background(), "BOSS@X.com", "hunter22-long")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, boss.Role)

	other, err := f.svc.Register(context.Background(), "peon@x.com", "hunter22-long")
	require.NoError(t, err)
	assert.Equal(t, model.RoleContributor, other.Role)
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t, nil)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"not an email", "nobody", "hunter22-long"},
		{"empty username", "", "hunter22-long"},
		{"email too long", strings.Repeat("a", 250) + "@x.com", "hunter22-long"},
		{"password too short", "a@x.com", "short"},
		{"password too long", "a@x.com", strings.Repeat("p", 129)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestRegister_AllowlistRejection(t *testing.T) {
	f := newAuthFixture(t, &config.Config{AllowedEmails: []string{"allowed@x.com"}})

	_, err := f.svc.Register(context.Background(), "stranger@x.com", "hunter22-long")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.Register(context.Background(), "ALLOWED@x.com", "hunter22-long")
	assert.NoError(t, err)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, err := f.svc.Register(context.Background(), "a@x.com", "hunter22-long")
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), "A@X.com", "other-password")
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

// =========================================================================
// LOGIN
// =========================================================================

func TestLogin(t *testing.T) {
	f := newAuthFixture(t, nil)
	_, err := f.svc.Register(context.Background(), "a@x.com", "hunter22-long")
	require.NoError(t, err)

	session, err := f.svc.Login(context.Background(), "A@X.com", "hunter22-long")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", session.User.Username)
	assert.NotEmpty(t, session.Token)
}

func TestLogin_FailuresShareOneMessage(t *testing.T) {
	f := newAuthFixture(t, nil)
	_, err := f.svc.Register(context.Background(), "a@x.com", "hunter22-long")
	require.NoError(t, err)

	// Federated-only account: exists, but has no password.
	f.verifier.assertion = &auth.Assertion{ExternalID: "g-1", Email: "fed@x.com"}
	_, err = f.svc.FederatedLogin(context.Background(), "credential")
	require.NoError(t, err)

	var messages []string
	for _, attempt := range []struct{ username, password string }{
		{"nobody@x.com", "whatever-pass"}, // unknown user
		{"a@x.com", "wrong-password"},     // wrong password
		{"fed@x.com", "whatever-pass"},    // no password on account
	} {
		_, err := f.svc.Login(context.Background(), attempt.username, attempt.password)
		require.ErrorIs(t, err, apperror.ErrUnauthenticated)
		messages = append(messages, err.Error())
	}

	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[1], messages[2])
}

func TestLogin_RejectsBlankCredentials(t *testing.T) {
	f := newAuthFixture(t, nil)
	_, err := f.svc.Register(context.Background(), "a@x.com", "hunter22-long")
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "", "hunter22-long")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.Login(context.Background(), "   ", "hunter22-long")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.Login(context.Background(), "a@x.com", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// =========================================================================
// FEDERATED LOGIN
// =========================================================================

func TestFederatedLogin_CreatesAccount(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.verifier.assertion = &auth.Assertion{
		ExternalID: "g-1",
		Email:      "New@X.com",
		Name:       "New Person",
		PictureURL: "https://lh3.googleusercontent.com/photo.jpg",
	}
	f.images.dataURL = "data:image/jpeg;base64,AAAA"

	session, err := f.svc.FederatedLogin(context.Background(), "credential")
	require.NoError(t, err)

	assert.Equal(t, "new@x.com", session.User.Username)
	assert.False(t, session.User.HasPassword())

	stored, err := f.users.GetUserByID(context.Background(), session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Person", stored.DisplayName)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", stored.Photo)

	jobs, _ := f.jobs.ListJobs(context.Background(), session.User.ID)
	assert.Len(t, jobs, 1, "fresh federated account gets the sample record")
}

func TestFederatedLogin_LinksPasswordAccount(t *testing.T) {
	f := newAuthFixture(t, nil)
	registered, err := f.svc.Register(context.Background(), "a@x.com", "hunter22-long")
	require.NoError(t, err)

	f.verifier.assertion = &auth.Assertion{ExternalID: "g-1", Email: "A@X.com"}
	session, err := f.svc.FederatedLogin(context.Background(), "credential")
	require.NoError(t, err)

	assert.Equal(t, registered.ID, session.User.ID)
	assert.True(t, session.User.HasPassword(), "linking keeps the password")

	jobs, _ := f.jobs.ListJobs(context.Background(), session.User.ID)
	assert.Len(t, jobs, 1, "linking must not seed a second sample record")
}

func TestFederatedLogin_BadCredential(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.verifier.err = errors.New("aud mismatch")

	_, err := f.svc.FederatedLogin(context.Background(), "credential")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestFederatedLogin_Allowlist(t *testing.T) {
	f := newAuthFixture(t, &config.Config{AllowedEmails: []string{"allowed@x.com"}})
	f.verifier.assertion = &auth.Assertion{ExternalID: "g-1", Email: "stranger@x.com"}

	_, err := f.svc.FederatedLogin(context.Background(), "credential")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestFederatedLogin_PhotoImportFailureIsNotFatal(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.verifier.assertion = &auth.Assertion{
		ExternalID: "g-1",
		Email:      "a@x.com",
		PictureURL: "https://lh3.googleusercontent.com/photo.jpg",
	}
	f.images.err = errors.New("cdn down")

	session, err := f.svc.FederatedLogin(context.Background(), "credential")
	require.NoError(t, err)
	assert.Empty(t, session.User.Photo)
}

func TestFederatedLogin_ConcurrentAttemptsConverge(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.verifier.assertion = &auth.Assertion{ExternalID: "g-1", Email: "dup@x.com"}

	const attempts = 8
	var wg sync.WaitGroup
	ids := make([]string, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := f.svc.FederatedLogin(context.Background(), "credential")
			if err == nil {
				ids[i] = session.User.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < attempts; i++ {
		assert.Equal(t, ids[0], ids[i])
	}
}

// =========================================================================
// PROFILE
// =========================================================================

func TestUpdateProfile_DisplayNameAndPhoto(t *testing.T) {
	f := newAuthFixture(t, nil)
	user, err := f.svc.Register(context.Background(), "a@x.com", "hunter22-long")
	require.NoError(t, err)

	name := "Alice"
	photo := "data:image/png;base64,AAAA"
	updated, err := f.svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{
		DisplayName: &name,
		Photo:       &photo,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.DisplayName)
	assert.Equal(t, photo, updated.Photo)
}

func TestUpdateProfile_PhotoRejectsNonImageDataURL(t *testing.T) {
	f := newAuthFixture(t, nil)
	user, err := f.svc.Register(context.Background(), "a@x.com", "hunter22-long")
	require.NoError(t, err)

	bad := "data:text/html;base64,AAAA"
	_, err = f.svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{Photo: &bad})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestUpdateProfile_PhotoRejectsOversizedPayload(t *testing.T) {
	f := newAuthFixture(t, nil)
	user, err := f.svc.Register(context.Background(), "a@x.com", "hunter22-long")
	require.NoError(t, err)

	huge := "data:image/png;base64," + strings.Repeat("A", 500*1024)
	_, err = f.svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{Photo: &huge})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestUpdateProfile_ChangePasswordRequiresCurrent(t *testing.T) {
	f := newAuthFixture(t, nil)
	user, err := f.svc.Register(context.Background(), "a@x.com", "hunter22-long")
	require.NoError(t, err)

	newPass := "brand-new-password"
	_, err = f.svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{
		NewPassword:     &newPass,
		CurrentPassword: "wrong-password",
	})
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	_, err = f.svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{
		NewPassword:     &newPass,
		CurrentPassword: "hunter22-long",
	})
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "a@x.com", newPass)
	assert.NoError(t, err)
}

func TestUpdateProfile_FederatedAccountSetsFirstPassword(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.verifier.assertion = &auth.Assertion{ExternalID: "g-1", Email: "fed@x.com"}
	session, err := f.svc.FederatedLogin(context.Background(), "credential")
	require.NoError(t, err)

	first := "my-first-password"
	_, err = f.svc.UpdateProfile(context.Background(), session.User.ID, ProfileUpdate{NewPassword: &first})
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "fed@x.com", first)
	assert.NoError(t, err)
}

func TestUpdateProfile_PhotoImportRestrictedToGoogleCDN(t *testing.T) {
	f := newAuthFixture(t, nil)
	user, err := f.svc.Register(context.Background(), "a@x.com", "hunter22-long")
	require.NoError(t, err)
	f.images.dataURL = "data:image/jpeg;base64,AAAA"

	evil := "https://evil.example.com/photo.jpg"
	_, err = f.svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{PhotoURL: &evil})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Zero(t, f.images.calls, "disallowed host must never reach the fetcher")

	// A suffix trick does not pass the host check.
	tricky := "https://googleusercontent.com.evil.example/photo.jpg"
	_, err = f.svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{PhotoURL: &tricky})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	ok := "https://lh3.googleusercontent.com/photo.jpg"
	updated, err := f.svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{PhotoURL: &ok})
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", updated.Photo)
}

// =========================================================================
// AUDIT TRAIL
// =========================================================================

func TestAuthEventsAreAudited(t *testing.T) {
	f := newAuthFixture(t, nil)

	user, err := f.svc.Register(context.Background(), "a@x.com", "hunter22-long")
	require.NoError(t, err)
	_, err = f.svc.Login(context.Background(), "a@x.com", "wrong-password")
	require.Error(t, err)
	f.svc.Logout(context.Background(), user)

	lines, err := f.audit.Read()
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "REGISTER")
	assert.Contains(t, lines[1], "LOGIN_FAILED")
	assert.Contains(t, lines[2], "LOGOUT")
}
