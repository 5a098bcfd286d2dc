package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Assertion is a verified statement from Google about who the user is.
// ExternalID is Google's stable subject identifier ("sub"): usernames and
// emails can change, sub never does, so account linking keys on it.
type Assertion struct {
	ExternalID string
	Email      string
	Name       string
	PictureURL string
}

// IdentityVerifier turns an opaque credential from the client into a
// verified Assertion. The production implementation is GoogleClient;
// service tests substitute a fake.
type IdentityVerifier interface {
	VerifyCredential(ctx context.Context, credential string) (*Assertion, error)
}

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleClient verifies Google ID tokens (the "credential" the Google
// Identity Services button posts to the frontend) and also drives the
// server-side authorization-code flow for the redirect variant.
type GoogleClient struct {
	clientID     string
	oauth        *oauth2.Config
	httpClient   *http.Client
	tokenInfoURL string // overridden in tests
}

// NewGoogleClient creates a GoogleClient for the given OAuth application.
// clientSecret and redirectURL are only needed for the code flow; ID-token
// verification uses just the clientID (audience check).
func NewGoogleClient(clientID, clientSecret, redirectURL string) *GoogleClient {
	return &GoogleClient{
		clientID: clientID,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		tokenInfoURL: googleTokenInfoURL,
	}
}

// tokenInfo is the subset of Google's tokeninfo response we read.
// Boolean-ish fields arrive as strings ("true"/"false") on this endpoint.
type tokenInfo struct {
	Sub           string `json:"sub"`
	Aud           string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// VerifyCredential validates a Google ID token via the tokeninfo endpoint.
//
// Google only returns 200 for a token it signed that has not expired, so
// signature and expiry checks are delegated to the endpoint. The audience
// check stays local: a valid Google token minted for some OTHER application
// must not sign users into this one.
func (g *GoogleClient) VerifyCredential(ctx context.Context, credential string) (*Assertion, error) {
	if credential == "" {
		return nil, fmt.Errorf("auth: empty credential")
	}

	endpoint := g.tokenInfoURL + "?id_token=" + url.QueryEscape(credential)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building tokeninfo request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: tokeninfo returned status %d", resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("auth: decoding tokeninfo response: %w", err)
	}

	if info.Aud != g.clientID {
		return nil, fmt.Errorf("auth: token audience mismatch")
	}
	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("auth: tokeninfo response missing subject or email")
	}
	if info.EmailVerified != "true" {
		return nil, fmt.Errorf("auth: google account email is unverified")
	}

	return &Assertion{
		ExternalID: info.Sub,
		Email:      info.Email,
		Name:       info.Name,
		PictureURL: info.Picture,
	}, nil
}

// AuthURL returns the consent URL for the redirect flow. The state value is
// verified on callback against a short-lived cookie.
func (g *GoogleClient) AuthURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the redirect flow: trades the authorization code for
// an access token, then reads the userinfo endpoint to build the same
// Assertion shape VerifyCredential produces.
func (g *GoogleClient) Exchange(ctx context.Context, code string) (*Assertion, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := g.oauth.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("auth: calling userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: userinfo returned status %d", resp.StatusCode)
	}

	var gUser struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&gUser); err != nil {
		return nil, fmt.Errorf("auth: decoding userinfo response: %w", err)
	}
	if gUser.ID == "" || gUser.Email == "" {
		return nil, fmt.Errorf("auth: userinfo response missing id or email")
	}
	if !gUser.VerifiedEmail {
		return nil, fmt.Errorf("auth: google account email is unverified")
	}

	return &Assertion{
		ExternalID: gUser.ID,
		Email:      gUser.Email,
		Name:       gUser.Name,
		PictureURL: gUser.Picture,
	}, nil
}
