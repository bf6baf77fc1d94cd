// Package models - update.go defines the UpdateRow model, the stored shape of an
// announcement banner in the updates table.
package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// UpdateRow is one row of the updates table
type UpdateRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Subtitle    string         `db:"subtitle"`
	Description sql.NullString `db:"description"`
	Features    pq.StringArray `db:"features"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}
