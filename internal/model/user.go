// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the authorization level of a user account.
// There are exactly two levels: admins curate shared vocabulary and manage
// accounts; contributors own their job records and nothing else.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleContributor Role = "contributor"
)

// Valid reports whether r is one of the two defined roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleContributor
}

// User represents an account row in the credential store.
//
// Usernames are email addresses and are unique case-insensitively; the
// store enforces the same case-folding the linking logic uses. GoogleID is
// Google's stable subject identifier, unique when present. Every row has
// PasswordHash or GoogleID or both, never neither: a password-only account
// can later link a Google identity, and a Google-only account can later set
// its first password.
//
// PasswordHash and GoogleID are never serialized; clients see PublicUser.
type User struct {
	ID           string    `json:"id"           db:"id"`
	Username     string    `json:"username"     db:"username"` // email-shaped, stored lowercased
	PasswordHash string    `json:"-"            db:"password_hash"`
	GoogleID     string    `json:"-"            db:"google_id"`
	Role         Role      `json:"role"         db:"role"`
	DisplayName  string    `json:"displayName"  db:"display_name"`
	Photo        string    `json:"photo"        db:"photo"` // base64 data URL, ≤300KB
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// PublicUser is the client-facing view of an account. It carries a derived
// has_password flag in place of the hash and omits the external identity id.
type PublicUser struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Role        Role    `json:"role"`
	DisplayName *string `json:"display_name"`
	Photo       *string `json:"photo"`
	HasPassword bool    `json:"has_password"`
}

// Public builds the serializable view of u. Empty optional fields become
// explicit JSON nulls, matching what the frontend expects.
func (u *User) Public() PublicUser {
	p := PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		HasPassword: u.HasPassword(),
	}
	if u.DisplayName != "" {
		p.DisplayName = &u.DisplayName
	}
	if u.Photo != "" {
		p.Photo = &u.Photo
	}
	return p
}

// UserSummary is the admin listing view: no profile payload, no photo.
type UserSummary struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
