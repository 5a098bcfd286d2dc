// Package config loads all runtime configuration once at process start.
//
// The resulting Config is immutable and injected into the services that
// need it. Request handling never re-reads environment state, so per-request
// behaviour stays deterministic and testable.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// minSecretLength is the floor for the JWT signing secret. Anything shorter
// is brute-forceable offline once a single token leaks.
const minSecretLength = 32

type Config struct {
	Port    int
	Env     string
	DBPath  string
	LogPath string

	// JWTSecret signs session tokens. Required, ≥32 chars.
	JWTSecret string

	// AllowedEmails, when non-empty, restricts registration and federated
	// sign-in to these addresses (compared case-insensitively).
	AllowedEmails []string

	// BootstrapAdminEmail promotes the matching account to admin at
	// creation time, so a fresh deployment has one administrator.
	BootstrapAdminEmail string

	// BcryptCost is the password hashing work factor. Production default is
	// 12; tests override it down to the bcrypt minimum.
	BcryptCost int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// Load reads configuration from the environment (and a .env file if one
// exists). It fails rather than starting with a missing or weak secret.
func Load() (*Config, error) {
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if len(secret) < minSecretLength {
		return nil, errors.New("config: JWT_SECRET must be set and at least 32 characters")
	}

	port := 8080
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("config: PORT must be an integer")
		}
		port = p
	}

	cost := 12
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		c, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("config: BCRYPT_COST must be an integer")
		}
		cost = c
	}

	return &Config{
		Port:                port,
		Env:                 getEnv("ENV", "development"),
		DBPath:              getEnv("DB_PATH", "data/jobtrack.db"),
		LogPath:             getEnv("LOG_PATH", "data/app.log"),
		JWTSecret:           secret,
		AllowedEmails:       splitList(os.Getenv("ALLOWED_EMAILS")),
		BootstrapAdminEmail: strings.ToLower(strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))),
		BcryptCost:          cost,
		GoogleClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:   os.Getenv("GOOGLE_REDIRECT_URL"),
	}, nil
}

// EmailAllowed reports whether email passes the allowlist gate.
// An empty allowlist permits everyone.
func (c *Config) EmailAllowed(email string) bool {
	if len(c.AllowedEmails) == 0 {
		return true
	}
	for _, allowed := range c.AllowedEmails {
		if strings.EqualFold(allowed, email) {
			return true
		}
	}
	return false
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
