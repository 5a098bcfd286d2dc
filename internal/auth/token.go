package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nrahman/jobtrack/internal/model"
)

// TokenLifetime is the fixed validity window of a session token.
//
// There is no server-side revocation list: an issued token stays valid
// until this expiry regardless of logout. Privilege changes still bite on
// the next request because the middleware re-reads the user row (see
// middleware.go); only the token's *existence* outlives logout.
const TokenLifetime = 8 * time.Hour

const tokenIssuer = "jobtrack"

// ErrTokenInvalid is returned by Verify for every rejection: malformed
// input, bad signature, expiry in the past, or a non-pinned algorithm.
// Callers get no finer detail; the distinctions only matter in logs.
var ErrTokenInvalid = errors.New("auth: token invalid")

// TokenService signs and verifies stateless session tokens.
// It holds the server-wide HMAC secret loaded once at startup.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService. The secret length is enforced at
// config load; this guards direct construction in tests and tools.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, errors.New("auth: signing secret must be at least 32 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Claims is the session token payload: the subject user id plus the
// username and role snapshot at issue time.
//
// The role claim is informational only. The request authenticator re-reads
// the current role from the store on every request, so a stale claim can
// never grant stale privileges.
type Claims struct {
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a new token for the given user with the fixed 8-hour expiry.
func (s *TokenService) Issue(userID, username string, role model.Role) (string, error) {
	now := time.Now()

	c := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// issueWithLifetime exists for expiry tests; production code always issues
// through Issue.
func (s *TokenService) issueWithLifetime(userID, username string, role model.Role, d time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.secret)
}

// Verify parses and verifies a token string and returns its claims.
//
// The accepted algorithm is pinned to HS256 on the verifier side via
// WithValidMethods; it is never taken from the token header, which is what
// makes algorithm-confusion attacks (alg=none, alg=RS256-with-public-key)
// fail at parse time.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrTokenInvalid)
	}
	return c, nil
}
