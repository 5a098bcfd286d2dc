package model

// DropdownOption is one entry of the shared vocabulary admins curate
// (status values, sources, ...). Options are grouped by FieldName and
// ordered by SortOrder within a field; labels are unique per field.
type DropdownOption struct {
	ID        int64  `json:"id"         db:"id"`
	FieldName string `json:"-"          db:"field_name"`
	Label     string `json:"label"      db:"label"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
}
