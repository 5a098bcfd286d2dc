package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/model"
	"github.com/nrahman/jobtrack/internal/repository"
)

var _ repository.DropdownRepository = (*DB)(nil)

func (db *DB) ListOptions(ctx context.Context) ([]model.DropdownOption, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, field_name, label, sort_order FROM dropdown_options
		 ORDER BY field_name, sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing dropdown options: %w", err)
	}
	defer rows.Close()

	options := []model.DropdownOption{}
	for rows.Next() {
		var o model.DropdownOption
		if err := rows.Scan(&o.ID, &o.FieldName, &o.Label, &o.SortOrder); err != nil {
			return nil, fmt.Errorf("sqlite: scanning dropdown option: %w", err)
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

func (db *DB) GetOption(ctx context.Context, id int64) (*model.DropdownOption, error) {
	var o model.DropdownOption
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, field_name, label, sort_order FROM dropdown_options WHERE id = ?`, id,
	).Scan(&o.ID, &o.FieldName, &o.Label, &o.SortOrder)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("option", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("sqlite: getting dropdown option %d: %w", id, err)
	}
	return &o, nil
}

// AddOption appends label at the end of the field's current ordering.
func (db *DB) AddOption(ctx context.Context, fieldName, label string) (*model.DropdownOption, error) {
	var maxOrder int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) FROM dropdown_options WHERE field_name = ?`,
		fieldName,
	).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading max sort_order for %q: %w", fieldName, err)
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO dropdown_options (field_name, label, sort_order) VALUES (?, ?, ?)`,
		fieldName, label, maxOrder+1,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("that option already exists for this field")
		}
		return nil, fmt.Errorf("sqlite: inserting dropdown option: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading inserted option id: %w", err)
	}
	return &model.DropdownOption{ID: id, FieldName: fieldName, Label: label, SortOrder: maxOrder + 1}, nil
}

func (db *DB) RenameOption(ctx context.Context, id int64, label string) (*model.DropdownOption, error) {
	opt, err := db.GetOption(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := db.conn.ExecContext(ctx,
		`UPDATE dropdown_options SET label = ? WHERE id = ?`, label, id); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("that option already exists for this field")
		}
		return nil, fmt.Errorf("sqlite: renaming dropdown option %d: %w", id, err)
	}

	opt.Label = label
	return opt, nil
}

// ReorderOptions rewrites sort_order to the position of each id in
// orderedIDs, in one transaction so a half-applied ordering is never
// observable. The field_name predicate stops ids of other fields from
// being hijacked into this field's ordering.
func (db *DB) ReorderOptions(ctx context.Context, fieldName string, orderedIDs []int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning reorder transaction: %w", err)
	}
	defer tx.Rollback()

	for idx, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE dropdown_options SET sort_order = ? WHERE id = ? AND field_name = ?`,
			idx, id, fieldName); err != nil {
			return fmt.Errorf("sqlite: reordering option %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func (db *DB) DeleteOption(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM dropdown_options WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting dropdown option %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("option", fmt.Sprint(id))
	}
	return nil
}
