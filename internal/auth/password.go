// Package auth provides the credential primitives: bcrypt password hashing,
// JWT session tokens, the request authentication middleware, and the Google
// identity-provider client.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the production work factor. Roughly 250ms per hash
// on current server hardware: negligible for a login, expensive for an
// offline brute-force.
const DefaultBcryptCost = 12

// PasswordService provides bcrypt hashing and verification.
//
// The cost is injected so tests can run at bcrypt.MinCost instead of paying
// ~250ms per hash. The salt is generated and embedded by bcrypt itself, so
// the digest is a single self-contained string.
type PasswordService struct {
	cost      int
	dummyHash string
}

// NewPasswordService creates a PasswordService with the given cost.
//
// It precomputes one digest at the same cost, used by DummyVerify to make
// the "no such account" and "account has no password" login paths take as
// long as a genuine wrong-password comparison.
func NewPasswordService(cost int) (*PasswordService, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost %d out of range [%d,%d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("jobtrack-dummy-comparison-subject"), cost)
	if err != nil {
		return nil, fmt.Errorf("auth: precomputing dummy hash: %w", err)
	}
	return &PasswordService{cost: cost, dummyHash: string(dummy)}, nil
}

// Hash hashes the given plaintext password with bcrypt.
// The output embeds the salt and cost; store it directly.
//
// bcrypt silently truncates inputs over 72 bytes, so those are rejected
// explicitly rather than hashed to a prefix.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored digest.
// A mismatch or malformed digest is false, never an error or panic; the
// caller treats every false identically.
func (p *PasswordService) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// DummyVerify burns one full bcrypt comparison against the precomputed
// digest and always reports false.
//
// Login calls this on the failure paths that would otherwise skip hashing
// (unknown username, federated-only account), so failure latency carries no
// signal about whether the username exists.
func (p *PasswordService) DummyVerify(plaintext string) bool {
	_ = bcrypt.CompareHashAndPassword([]byte(p.dummyHash), []byte(plaintext))
	return false
}
