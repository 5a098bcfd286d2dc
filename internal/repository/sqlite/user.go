package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/model"
	"github.com/nrahman/jobtrack/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, password_hash, google_id, role, display_name, photo, created_at`

// rowScanner covers *sql.Row, letting the scan helper serve both pool and
// transaction queries.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var googleID sql.NullString
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&googleID,
		&u.Role,
		&u.DisplayName,
		&u.Photo,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.GoogleID = googleID.String
	return &u, nil
}

// isUniqueViolation detects a UNIQUE constraint failure from the driver.
// modernc.org/sqlite surfaces constraint names in the error text; there is
// no typed error to match on.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts a new account row. The username is stored lowercased;
// the COLLATE NOCASE unique index would catch mixed-case duplicates anyway,
// but storing one canonical form keeps comparisons and display consistent.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.Username = strings.ToLower(user.Username)
	user.CreatedAt = time.Now().UTC()

	var googleID any
	if user.GoogleID != "" {
		googleID = user.GoogleID
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, google_id, role, display_name, photo, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.PasswordHash,
		googleID,
		user.Role,
		user.DisplayName,
		user.Photo,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("username already taken")
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername looks up case-insensitively; the column's NOCASE
// collation applies to the comparison automatically.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username: %w", err)
	}
	return u, nil
}

// ResolveGoogleUser maps a verified assertion {externalID, email} to
// exactly one row, idempotently under concurrency.
//
// One transaction per attempt:
//  1. lookup by google_id, the already-linked fast path
//  2. lookup by username (case-insensitive email match): attach the
//     google_id to an existing password account
//  3. INSERT OR IGNORE a fresh row; a concurrent attempt that won the
//     race between our step-1 check and this insert reports zero rows
//     affected instead of raising
//  4. on zero rows, repeat 1 then 2 to converge on the winner's row
//
// Both lookups missing after a conflicted insert is an invariant
// violation, not a user-facing condition.
func (db *DB) ResolveGoogleUser(ctx context.Context, externalID, email string, role model.Role) (*model.User, repository.ResolveOutcome, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: beginning resolve transaction: %w", err)
	}
	defer tx.Rollback()

	byGoogleID := func() (*model.User, error) {
		row := tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE google_id = ?`, externalID)
		return scanUser(row)
	}
	byEmail := func() (*model.User, error) {
		row := tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = ?`, email)
		return scanUser(row)
	}

	link := func(u *model.User) (*model.User, error) {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET google_id = ? WHERE id = ?`, externalID, u.ID); err != nil {
			return nil, fmt.Errorf("sqlite: linking google id to user %s: %w", u.ID, err)
		}
		u.GoogleID = externalID
		return u, nil
	}

	// Step 1: already linked.
	if u, err := byGoogleID(); err == nil {
		return u, repository.ResolvedExisting, tx.Commit()
	} else if err != sql.ErrNoRows {
		return nil, 0, fmt.Errorf("sqlite: resolving by google id: %w", err)
	}

	// Step 2: link an existing password account with the same email.
	if u, err := byEmail(); err == nil {
		linked, err := link(u)
		if err != nil {
			return nil, 0, err
		}
		return linked, repository.ResolvedLinked, tx.Commit()
	} else if err != sql.ErrNoRows {
		return nil, 0, fmt.Errorf("sqlite: resolving by email: %w", err)
	}

	// Step 3: conflict-tolerant insert.
	id := xid.New().String()
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, username, google_id, role, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, strings.ToLower(email), externalID, role, time.Now().UTC(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: inserting federated user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: reading rows affected: %w", err)
	}

	if affected == 1 {
		row := tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
		u, err := scanUser(row)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: re-reading created user: %w", err)
		}
		return u, repository.ResolvedCreated, tx.Commit()
	}

	// Step 4: a concurrent transaction won the insert; converge onto its row.
	if u, err := byGoogleID(); err == nil {
		return u, repository.ResolvedExisting, tx.Commit()
	} else if err != sql.ErrNoRows {
		return nil, 0, fmt.Errorf("sqlite: re-resolving by google id: %w", err)
	}
	if u, err := byEmail(); err == nil {
		linked, err := link(u)
		if err != nil {
			return nil, 0, err
		}
		return linked, repository.ResolvedLinked, tx.Commit()
	} else if err != sql.ErrNoRows {
		return nil, 0, fmt.Errorf("sqlite: re-resolving by email: %w", err)
	}

	return nil, 0, apperror.Internal("identity resolution lost the insert race and both re-lookups missed")
}

// UpdateUserProfile persists the mutable profile fields.
func (db *DB) UpdateUserProfile(ctx context.Context, user *model.User) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET display_name = ?, photo = ?, password_hash = ? WHERE id = ?`,
		user.DisplayName, user.Photo, user.PasswordHash, user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile for user %s: %w", user.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

func (db *DB) ListUsers(ctx context.Context) ([]model.UserSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, username, role, created_at FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	summaries := []model.UserSummary{}
	for rows.Next() {
		var s model.UserSummary
		if err := rows.Scan(&s.ID, &s.Username, &s.Role, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (db *DB) UpdateUserRole(ctx context.Context, id string, role model.Role) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return fmt.Errorf("sqlite: updating role for user %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// DeleteUser removes the row; the jobs foreign key cascades.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
