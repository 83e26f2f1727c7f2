package models

// Teacher represents an instructor record.
type Teacher struct {
	ID       int64   `db:"id" json:"id"`
	UserID   *string `db:"user_id" json:"user_id,omitempty"`
	FullName string  `db:"full_name" json:"full_name"`
	Active   bool    `db:"active" json:"active"`
}
