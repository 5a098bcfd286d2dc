package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/auth"
	"github.com/nrahman/jobtrack/internal/model"
	"github.com/nrahman/jobtrack/internal/service"
)

// sessionResponse is the payload returned by every sign-in endpoint.
type sessionResponse struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// AuthHandler exposes registration, both sign-in paths, and the
// signed-in user's own profile.
type AuthHandler struct {
	svc    *service.AuthService
	google *auth.GoogleClient
	log    *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, google *auth.GoogleClient, log *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, google: google, log: log}
}

// HandleRegister creates a password account. No token comes back; the
// client follows up with an explicit login.
//
// HTTP: POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.svc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.log.Info("account registered", "user", user.Username)
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":       user.ID,
		"username": user.Username,
	})
}

// HandleLogin signs in with username and password.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Token: session.Token, User: session.User.Public()})
}

// HandleFederatedLogin signs in with a Google ID token (the credential
// posted by the Google Identity Services button).
//
// HTTP: POST /api/auth/federated-login
func (h *AuthHandler) HandleFederatedLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credential string `json:"credential"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Credential == "" {
		writeError(w, apperror.ValidationFailed("credential", "credential is required"))
		return
	}

	session, err := h.svc.FederatedLogin(r.Context(), req.Credential)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Token: session.Token, User: session.User.Public()})
}

// HandleGoogleLogin starts the redirect variant of Google sign-in. The
// random state lands in a short-lived cookie and is checked on callback.
//
// HTTP: GET /api/auth/google/login
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the redirect flow: state check, code
// exchange, then the same account resolution the credential path uses.
//
// HTTP: GET /api/auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.log.Warn("oauth callback state mismatch")
		writeError(w, apperror.Unauthenticated("invalid OAuth state"))
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	assertion, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.log.Warn("oauth code exchange failed", "error", err)
		writeError(w, apperror.Unauthenticated("could not verify identity credential"))
		return
	}

	session, err := h.svc.SignInWithAssertion(r.Context(), assertion)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Token: session.Token, User: session.User.Public()})
}

// HandleLogout records the logout. The token itself stays valid until
// expiry; the client discards it.
//
// HTTP: POST /api/auth/logout (authenticated)
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.Identity(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	h.svc.Logout(r.Context(), user)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the caller's profile.
//
// HTTP: GET /api/auth/me (authenticated)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.Identity(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// HandleUpdateProfile updates the caller's own profile. Absent fields
// stay unchanged; empty strings clear.
//
// HTTP: PUT /api/auth/profile (authenticated)
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.Identity(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	var req struct {
		DisplayName     *string `json:"display_name"`
		Photo           *string `json:"photo"`
		PhotoURL        *string `json:"remote_photo_url"`
		NewPassword     *string `json:"new_password"`
		CurrentPassword string  `json:"current_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.svc.UpdateProfile(r.Context(), user.ID, service.ProfileUpdate{
		DisplayName:     req.DisplayName,
		Photo:           req.Photo,
		PhotoURL:        req.PhotoURL,
		NewPassword:     req.NewPassword,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated.Public())
}
