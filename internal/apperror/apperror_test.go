package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIsMatchesSentinel(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", ValidationFailed("username", "username is required"), ErrValidation},
		{"unauthenticated", Unauthenticated("invalid credentials"), ErrUnauthenticated},
		{"forbidden", Forbidden("admin access required"), ErrForbidden},
		{"not found", NotFound("user", "abc"), ErrNotFound},
		{"conflict", Conflict("username already taken"), ErrConflict},
		{"upstream", Upstream("image fetch failed", errors.New("dial tcp: timeout")), ErrUpstream},
		{"internal", Internal("identity resolution lost both re-lookups"), ErrInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tc.err, tc.sentinel)
			}
		})
	}
}

func TestErrorsIsThroughWrapping(t *testing.T) {
	// Services wrap AppErrors with context; the sentinel must survive.
	inner := Conflict("username already taken")
	wrapped := fmt.Errorf("registering user: %w", inner)

	if !errors.Is(wrapped, ErrConflict) {
		t.Error("wrapped error lost its ErrConflict sentinel")
	}

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As failed to extract *AppError from wrapped error")
	}
	if appErr.Message != "username already taken" {
		t.Errorf("Message = %q, want %q", appErr.Message, "username already taken")
	}
}

func TestUpstreamKeepsCauseInChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("failed to import photo", cause)

	if !errors.Is(err, cause) {
		t.Error("Upstream() dropped the cause from the error chain")
	}
	if err.Error() != "failed to import photo" {
		t.Errorf("Error() = %q; the cause must not leak into the client message", err.Error())
	}
}

func TestUpstreamNilCause(t *testing.T) {
	err := Upstream("provider rejected the request", nil)
	if !errors.Is(err, ErrUpstream) {
		t.Error("Upstream(nil cause) should still match ErrUpstream")
	}
}
